// Package model contains domain entities passed between pipeline stages.
package model

// MatchMethod records how a participant was linked to a wallet.
type MatchMethod string

const (
	// MatchExact means the canonical names were identical.
	MatchExact MatchMethod = "exact"
	// MatchFuzzy means the similarity score cleared the accept threshold.
	MatchFuzzy MatchMethod = "fuzzy"
)

// WalkInGroup labels wallets that never matched a registration.
const WalkInGroup = "WALK-IN"

// WalletRecord is one row of the wallet export. Address is the natural key.
type WalletRecord struct {
	Name         string `json:"name"`
	Address      string `json:"wallet"`
	ProgramID    string `json:"programId,omitempty"`
	GithubHandle string `json:"github,omitempty"`
}

// Registration is a registration-export entry merged by lower-cased email.
// Sessions counts attended sessions across batches; Groups collects the
// distinct source-group labels the email appeared under. Name keeps the
// first-seen display name.
type Registration struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	CheckedIn bool     `json:"checkedIn"`
	Status    string   `json:"status"`
	Sessions  int      `json:"sessions"`
	Groups    []string `json:"groups"`
}

// Group returns the first source-group label, or "" when none was recorded.
func (r Registration) Group() string {
	if len(r.Groups) == 0 {
		return ""
	}
	return r.Groups[0]
}

// Participant is a consolidated identity: a wallet tied to a registration,
// or a walk-in wallet with no registration. Identity fields are immutable
// once created; downstream stages only read them.
type Participant struct {
	Address    string      `json:"wallet"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Group      string      `json:"group"`
	Method     MatchMethod `json:"matchMethod"`
	Confidence float64     `json:"matchConfidence"`
}

// ReviewCandidate is a mid-confidence pairing that requires human
// adjudication. It never becomes a Participant automatically.
type ReviewCandidate struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	WalletName    string   `json:"walletName"`
	WalletAddress string   `json:"walletAddress"`
	Confidence    float64  `json:"confidence"`
	Groups        []string `json:"groups,omitempty"`
}

// Builder is a Participant whose wallet showed at least one qualifying
// on-chain transaction inside the tour window.
type Builder struct {
	Participant
	TxCount int    `json:"transactionCount"`
	FirstTx string `json:"firstTx"`
}
