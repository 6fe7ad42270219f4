package core

import "strings"

// rsvpAliases maps lowercased status text (English, Dutch, French) to a status.
var rsvpAliases = map[string]RSVPStatus{
	"0":             RSVPPending,
	"pending":       RSVPPending,
	"not responded": RSVPPending,
	"awaiting":      RSVPPending,
	"invited":       RSVPPending,
	"in afwachting": RSVPPending,
	"afwachtend":    RSVPPending,
	"uitgenodigd":   RSVPPending,
	"en attente":    RSVPPending,
	"invité":        RSVPPending,

	"1":            RSVPAccepted,
	"accepted":     RSVPAccepted,
	"yes":          RSVPAccepted,
	"attending":    RSVPAccepted,
	"coming":       RSVPAccepted,
	"confirmed":    RSVPAccepted,
	"geaccepteerd": RSVPAccepted,
	"ja":           RSVPAccepted,
	"komt":         RSVPAccepted,
	"aanwezig":     RSVPAccepted,
	"bevestigd":    RSVPAccepted,
	"accepté":      RSVPAccepted,
	"accepte":      RSVPAccepted,
	"oui":          RSVPAccepted,
	"présent":      RSVPAccepted,
	"present":      RSVPAccepted,
	"confirmé":     RSVPAccepted,

	"2":             RSVPDeclined,
	"declined":      RSVPDeclined,
	"no":            RSVPDeclined,
	"not attending": RSVPDeclined,
	"not coming":    RSVPDeclined,
	"afgewezen":     RSVPDeclined,
	"nee":           RSVPDeclined,
	"komt niet":     RSVPDeclined,
	"afwezig":       RSVPDeclined,
	"geweigerd":     RSVPDeclined,
	"refusé":        RSVPDeclined,
	"refuse":        RSVPDeclined,
	"non":           RSVPDeclined,
	"absent":        RSVPDeclined,
	"décliné":       RSVPDeclined,

	"3":         RSVPMaybe,
	"maybe":     RSVPMaybe,
	"tentative": RSVPMaybe,
	"unsure":    RSVPMaybe,
	"misschien": RSVPMaybe,
	"twijfel":   RSVPMaybe,
	"peut-être": RSVPMaybe,
	"peut-etre": RSVPMaybe,
	"peut être": RSVPMaybe,
}

// ParseRSVPStatus matches status text case-insensitively. Empty or unknown
// text is Pending.
func ParseRSVPStatus(text string) RSVPStatus {
	if status, ok := rsvpAliases[strings.ToLower(strings.TrimSpace(text))]; ok {
		return status
	}
	return RSVPPending
}

// ApplyMapping builds candidate rows from raw rows using the confirmed
// mapping. Every row starts valid with no errors; validation is a separate
// pass. Row i of rows becomes RowIndex i.
func ApplyMapping(rows [][]string, mappings []ColumnMapping) []ImportGuestRow {
	col := make(map[TargetField]int)
	for _, m := range mappings {
		if m.Field == FieldSkip {
			continue
		}
		if _, dup := col[m.Field]; !dup {
			col[m.Field] = m.ColumnIndex
		}
	}

	value := func(row []string, f TargetField) string {
		idx, ok := col[f]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cellAt(row, idx))
	}

	out := make([]ImportGuestRow, len(rows))
	for i, row := range rows {
		lang := strings.ToLower(value(row, FieldPreferredLanguage))
		if lang == "" {
			lang = LangEnglish
		}

		out[i] = ImportGuestRow{
			RowIndex:          i,
			Name:              value(row, FieldName),
			Email:             value(row, FieldEmail),
			RSVPStatus:        ParseRSVPStatus(value(row, FieldRSVPStatus)),
			PreferredLanguage: lang,
			Errors:            []string{},
			IsValid:           true,
		}
	}
	return out
}
