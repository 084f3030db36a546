package validate

import (
	"fmt"
	"strings"

	"github.com/tourmint/tourmint/internal/domain/model"
)

// AutoFix resolves what can be fixed mechanically: trims whitespace on all
// text fields, then drops duplicate-address records keeping the first
// occurrence. Malformed addresses are never repaired here. Returns the
// fixed list and a description of every applied fix.
func AutoFix(participants []model.Participant) ([]model.Participant, []string) {
	var fixes []string

	trimmed := make([]model.Participant, 0, len(participants))
	for i, p := range participants {
		q := p
		q.Address = strings.TrimSpace(p.Address)
		q.Name = strings.TrimSpace(p.Name)
		q.Email = strings.TrimSpace(p.Email)
		q.Group = strings.TrimSpace(p.Group)
		if q != p {
			fixes = append(fixes, fmt.Sprintf("row %d: trimmed whitespace", i+1))
		}
		trimmed = append(trimmed, q)
	}

	seen := make(map[string]int, len(trimmed))
	fixed := make([]model.Participant, 0, len(trimmed))
	for i, p := range trimmed {
		key := strings.ToLower(p.Address)
		if first, dup := seen[key]; dup {
			fixes = append(fixes, fmt.Sprintf("row %d: removed duplicate of row %d (%s)", i+1, first, p.Address))
			continue
		}
		seen[key] = i + 1
		fixed = append(fixed, p)
	}

	return fixed, fixes
}
