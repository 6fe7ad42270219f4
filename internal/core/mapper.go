package core

import (
	"fmt"
	"strings"
)

// columnAliases maps normalized header text (English, Dutch, French) to
// the guest field it most likely holds.
var columnAliases = map[string]TargetField{
	// Name
	"name":            FieldName,
	"full name":       FieldName,
	"fullname":        FieldName,
	"guest":           FieldName,
	"guest name":      FieldName,
	"naam":            FieldName,
	"volledige naam":  FieldName,
	"gast":            FieldName,
	"naam gast":       FieldName,
	"nom":             FieldName,
	"nom complet":     FieldName,
	"invité":          FieldName,
	"invite":          FieldName,
	"nom de l'invité": FieldName,

	// Email
	"email":            FieldEmail,
	"e-mail":           FieldEmail,
	"email address":    FieldEmail,
	"e-mail address":   FieldEmail,
	"mail":             FieldEmail,
	"e-mailadres":      FieldEmail,
	"emailadres":       FieldEmail,
	"mailadres":        FieldEmail,
	"courriel":         FieldEmail,
	"adresse e-mail":   FieldEmail,
	"adresse email":    FieldEmail,
	"adresse courriel": FieldEmail,

	// RSVP status
	"rsvp":        FieldRSVPStatus,
	"rsvp status": FieldRSVPStatus,
	"rsvp-status": FieldRSVPStatus,
	"status":      FieldRSVPStatus,
	"response":    FieldRSVPStatus,
	"attending":   FieldRSVPStatus,
	"reactie":     FieldRSVPStatus,
	"antwoord":    FieldRSVPStatus,
	"aanwezig":    FieldRSVPStatus,
	"statut":      FieldRSVPStatus,
	"statut rsvp": FieldRSVPStatus,
	"réponse":     FieldRSVPStatus,
	"reponse":     FieldRSVPStatus,
	"présence":    FieldRSVPStatus,

	// Preferred language
	"preferred language": FieldPreferredLanguage,
	"language":           FieldPreferredLanguage,
	"lang":               FieldPreferredLanguage,
	"voorkeurstaal":      FieldPreferredLanguage,
	"taal":               FieldPreferredLanguage,
	"langue":             FieldPreferredLanguage,
	"langue préférée":    FieldPreferredLanguage,
	"langue preferee":    FieldPreferredLanguage,
}

// normalizeHeader trims and lowercases a header for alias lookup.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// AutoMapColumns guesses a mapping for every header.
//
// The pass is greedy and order dependent: the first header aliasing a field
// claims it, and later headers aliasing the same field are left as skip.
// Unknown headers are skip.
func AutoMapColumns(headers []string) []ColumnMapping {
	claimed := make(map[TargetField]bool)
	mappings := make([]ColumnMapping, len(headers))

	for i, h := range headers {
		m := ColumnMapping{Column: h, ColumnIndex: i, Field: FieldSkip}
		if field, ok := columnAliases[normalizeHeader(h)]; ok && !claimed[field] {
			claimed[field] = true
			m.Field = field
		}
		mappings[i] = m
	}

	return mappings
}

// ValidateMapping checks a user-confirmed mapping against the headers it
// claims to describe. Name and email must both be mapped; no field other
// than skip may be used twice.
func ValidateMapping(mappings []ColumnMapping, headerCount int) error {
	seen := make(map[TargetField]int)

	for _, m := range mappings {
		if !m.Field.Valid() {
			return fmt.Errorf("%w: unknown field %q for column %q", ErrInvalidMapping, m.Field, m.Column)
		}
		if m.ColumnIndex < 0 || m.ColumnIndex >= headerCount {
			return fmt.Errorf("%w: column index %d out of range", ErrInvalidMapping, m.ColumnIndex)
		}
		if m.Field == FieldSkip {
			continue
		}
		seen[m.Field]++
		if seen[m.Field] > 1 {
			return fmt.Errorf("%w: field %q mapped more than once", ErrInvalidMapping, m.Field)
		}
	}

	if seen[FieldName] == 0 || seen[FieldEmail] == 0 {
		return ErrMappingIncomplete
	}
	return nil
}

// CanProceed reports whether both name and email are mapped to some column.
func CanProceed(mappings []ColumnMapping) bool {
	var name, email bool
	for _, m := range mappings {
		switch m.Field {
		case FieldName:
			name = true
		case FieldEmail:
			email = true
		}
	}
	return name && email
}
