package core

import "fmt"

// DetectDuplicateEmails flags repeated emails within one batch.
//
// Rows are scanned in order. The first row using a (lowercased) email is
// left untouched; each later row with the same email gets an error citing
// the first row's 1-based number and is marked invalid. Rows with no email
// are ignored here since the required-field rule already covers them.
func DetectDuplicateEmails(rows []ImportGuestRow) []ImportGuestRow {
	out := make([]ImportGuestRow, len(rows))
	firstSeen := make(map[string]int) // email -> RowIndex of first occurrence

	for i, r := range rows {
		r.Errors = append([]string(nil), r.Errors...)
		key := r.normalizedEmail()
		if key != "" {
			if first, ok := firstSeen[key]; ok {
				r.addError(fmt.Sprintf("%s (same as row %d)", MsgDuplicateEmail, first+1))
			} else {
				firstSeen[key] = r.RowIndex
			}
		}
		out[i] = r
	}

	return out
}
