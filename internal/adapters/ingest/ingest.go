// Package ingest maps raw export tables onto domain records: wallet rows
// as-is, registration rows merged by lower-cased email across batches.
package ingest

import (
	"fmt"
	"strings"

	"github.com/tourmint/tourmint/internal/adapters/records"
	"github.com/tourmint/tourmint/internal/domain/model"
)

// Header keys recognized in the export files. Alternate spellings seen in
// the wild are tried in order.
var (
	nameKeys      = []string{"name", "display_name", "displayName"}
	walletKeys    = []string{"wallet", "address", "wallet_address"}
	programKeys   = []string{"programId", "program_id"}
	githubKeys    = []string{"github", "github_handle"}
	emailKeys     = []string{"email"}
	checkedInKeys = []string{"checked_in", "checkedIn", "attended"}
	statusKeys    = []string{"status", "approval_status"}
	groupKeys     = []string{"group", "source_group"}
)

func field(row records.Row, keys []string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "x":
		return true
	}
	return false
}

// Wallets parses a wallet export. One record per row, in row order.
// Duplicate addresses are kept; the validator reports them downstream.
func Wallets(text string, opts ...records.Option) ([]model.WalletRecord, error) {
	t, err := records.Parse(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("wallet export: %w", err)
	}

	wallets := make([]model.WalletRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		addr := strings.TrimSpace(field(row, walletKeys))
		if addr == "" {
			continue
		}
		wallets = append(wallets, model.WalletRecord{
			Name:         field(row, nameKeys),
			Address:      addr,
			ProgramID:    field(row, programKeys),
			GithubHandle: field(row, githubKeys),
		})
	}
	return wallets, nil
}

// Batch is one registration export file plus its source-group label,
// used when rows carry no group column of their own.
type Batch struct {
	Label string
	Text  string
}

// Registrations parses registration batches in order and merges rows by
// lower-cased email: the attended-session count accumulates, distinct
// group labels collect in first-seen order, and the first-seen display
// name wins. Rows without an email are dropped. Merged callbacks, when
// set, fire once per row folded into an existing entry.
func Registrations(batches []Batch, onMerge func(), opts ...records.Option) ([]model.Registration, error) {
	byEmail := make(map[string]int)
	var regs []model.Registration

	for _, b := range batches {
		t, err := records.Parse(b.Text, opts...)
		if err != nil {
			return nil, fmt.Errorf("registration export %q: %w", b.Label, err)
		}

		for _, row := range t.Rows {
			email := strings.ToLower(strings.TrimSpace(field(row, emailKeys)))
			if email == "" {
				continue
			}

			group := field(row, groupKeys)
			if group == "" {
				group = b.Label
			}
			checkedIn := parseBool(field(row, checkedInKeys))

			idx, seen := byEmail[email]
			if !seen {
				reg := model.Registration{
					Email:     email,
					Name:      field(row, nameKeys),
					CheckedIn: checkedIn,
					Status:    field(row, statusKeys),
				}
				if checkedIn {
					reg.Sessions = 1
				}
				if group != "" {
					reg.Groups = []string{group}
				}
				byEmail[email] = len(regs)
				regs = append(regs, reg)
				continue
			}

			// Fold into the existing entry. First-seen name and status win.
			r := &regs[idx]
			if checkedIn {
				r.Sessions++
				r.CheckedIn = true
			}
			if group != "" && !contains(r.Groups, group) {
				r.Groups = append(r.Groups, group)
			}
			if onMerge != nil {
				onMerge()
			}
		}
	}

	return regs, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
