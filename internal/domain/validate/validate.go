// Package validate checks structural validity of consolidated participants
// and detects duplicate wallet addresses. It only reports; the orchestrator
// decides whether a report blocks the pipeline.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tourmint/tourmint/internal/domain/model"
)

// Address length bounds for base-58 wallet addresses.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

// base58 alphabet: digits and letters minus 0, O, I, l.
var base58Pattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// local@domain.tld shape: no whitespace, single @, dot in the domain.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateAddress reports whether addr is a well-formed base-58 wallet
// address: length within [32,44], no surrounding whitespace, and only
// base-58 alphabet characters.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: address is empty", ErrInvalidFormat)
	}
	if strings.TrimSpace(addr) != addr {
		return fmt.Errorf("%w: address has surrounding whitespace", ErrInvalidFormat)
	}
	if len(addr) < minAddressLen || len(addr) > maxAddressLen {
		return fmt.Errorf("%w: address length %d outside [%d,%d]", ErrInvalidFormat, len(addr), minAddressLen, maxAddressLen)
	}
	if !base58Pattern.MatchString(addr) {
		return fmt.Errorf("%w: address contains non-base58 characters", ErrInvalidFormat)
	}
	return nil
}

// ValidateEmail reports whether email is acceptable. Empty is valid (no
// notification needed; callers may flag a warning); non-empty must be
// local@domain.tld shaped.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidFormat, email)
	}
	return nil
}

// Cluster is a group of participants sharing one wallet address.
// Rows are 1-based input row numbers.
type Cluster struct {
	Address string   `json:"address"`
	Rows    []int    `json:"rows"`
	Names   []string `json:"names"`
}

// FindDuplicates groups participants by case-insensitively trimmed address
// and returns every group with more than one member, in first-seen order.
func FindDuplicates(participants []model.Participant) []Cluster {
	byAddr := make(map[string]*Cluster)
	var order []string

	for i, p := range participants {
		key := strings.ToLower(strings.TrimSpace(p.Address))
		c, ok := byAddr[key]
		if !ok {
			c = &Cluster{Address: strings.TrimSpace(p.Address)}
			byAddr[key] = c
			order = append(order, key)
		}
		c.Rows = append(c.Rows, i+1)
		c.Names = append(c.Names, p.Name)
	}

	var clusters []Cluster
	for _, key := range order {
		if c := byAddr[key]; len(c.Rows) > 1 {
			clusters = append(clusters, *c)
		}
	}
	return clusters
}

// Summary carries the aggregate counts of a validation pass.
type Summary struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
	WithEmail    int `json:"withEmail"`
	WithoutEmail int `json:"withoutEmail"`
	Duplicates   int `json:"duplicateCount"`
}

// Report is the full result of validating a participant list. Message
// ordering follows input row order. A record with only warnings is valid.
type Report struct {
	Errors     []string  `json:"errors"`
	Warnings   []string  `json:"warnings"`
	Duplicates []Cluster `json:"duplicates"`
	Summary    Summary   `json:"summary"`
}

// Clean reports whether the pipeline may proceed: no errors, no duplicates.
func (r Report) Clean() bool {
	return len(r.Errors) == 0 && len(r.Duplicates) == 0
}

// Check validates every participant, accumulating per-field messages tagged
// with 1-based row numbers, plus duplicate clusters and aggregate counts.
func Check(participants []model.Participant) Report {
	var rep Report
	rep.Summary.Total = len(participants)

	for i, p := range participants {
		row := i + 1
		invalid := false

		if err := ValidateAddress(p.Address); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("row %d: %v", row, err))
			invalid = true
		}
		if err := ValidateEmail(p.Email); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("row %d: %v", row, err))
			invalid = true
		}
		if p.Email == "" {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("row %d: no email, participant will not be notified", row))
			rep.Summary.WithoutEmail++
		} else {
			rep.Summary.WithEmail++
		}
		if strings.TrimSpace(p.Name) == "" {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("row %d: missing display name", row))
		}

		if invalid {
			rep.Summary.Invalid++
		} else {
			rep.Summary.Valid++
		}
	}

	rep.Duplicates = FindDuplicates(participants)
	rep.Summary.Duplicates = len(rep.Duplicates)

	return rep
}
