package core

import (
	"context"
	"fmt"
)

// MarkExistingEmails asks checker which emails of the currently valid rows
// already belong to guests of weddingID, and marks those rows invalid.
//
// The lookup is advisory. When it fails, rows are returned unchanged along
// with the error so the caller can log it; the import must still proceed.
func MarkExistingEmails(ctx context.Context, checker EmailChecker, weddingID string, rows []ImportGuestRow) ([]ImportGuestRow, error) {
	out := make([]ImportGuestRow, len(rows))
	copy(out, rows)

	var (
		emails []string
		asked  = make(map[string]bool)
	)
	for _, r := range out {
		key := r.normalizedEmail()
		if !r.IsValid || key == "" || asked[key] {
			continue
		}
		asked[key] = true
		emails = append(emails, key)
	}
	if len(emails) == 0 || checker == nil {
		return out, nil
	}

	existing, err := checker.ExistingEmails(ctx, weddingID, emails)
	if err != nil {
		return out, fmt.Errorf("check existing emails: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[NormalizeEmail(e)] = true
	}

	for i := range out {
		if !out[i].IsValid || !known[out[i].normalizedEmail()] {
			continue
		}
		out[i].Errors = append([]string(nil), out[i].Errors...)
		out[i].addError(MsgExistingEmail)
	}

	return out, nil
}
