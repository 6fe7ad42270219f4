package core

// validation.go checks candidate rows before they are sent to the backend.
//
// Each rule is checked independently and every failure is recorded, so the
// preview can show all problems of a row at once. ValidateRow rebuilds the
// error list from scratch: running it twice gives the same result.

import (
	"fmt"
	"regexp"
	"strings"
)

// Row-level validation messages, also matched by MapError.
const (
	MsgNameRequired        = "Name is required"
	MsgEmailRequired       = "Email is required"
	MsgInvalidEmail        = "Invalid email format"
	MsgUnsupportedLanguage = "Unsupported language"
	MsgDuplicateEmail      = "Duplicate email"
	MsgExistingEmail       = "A guest with this email already exists"
)

// emailPattern is a loose local@domain.tld shape check.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether email has the local@domain.tld shape.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateRow returns a copy of row with its errors recomputed.
func ValidateRow(row ImportGuestRow) ImportGuestRow {
	row.Errors = []string{}
	row.IsValid = true

	if strings.TrimSpace(row.Name) == "" {
		row.addError(MsgNameRequired)
	}

	email := strings.TrimSpace(row.Email)
	switch {
	case email == "":
		row.addError(MsgEmailRequired)
	case !IsValidEmail(email):
		row.addError(MsgInvalidEmail)
	}

	if row.PreferredLanguage != "" && !IsSupportedLanguage(row.PreferredLanguage) {
		row.addError(fmt.Sprintf("%s: %q (use %s)", MsgUnsupportedLanguage,
			row.PreferredLanguage, strings.Join(SupportedLanguages, ", ")))
	}

	return row
}

// ValidateRows applies ValidateRow to every row.
func ValidateRows(rows []ImportGuestRow) []ImportGuestRow {
	out := make([]ImportGuestRow, len(rows))
	for i, r := range rows {
		out[i] = ValidateRow(r)
	}
	return out
}
