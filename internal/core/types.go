package core

import (
	"context"
	"strings"
	"time"
)

// RSVPStatus is a guest's response state to an invitation.
type RSVPStatus int

const (
	RSVPPending RSVPStatus = iota
	RSVPAccepted
	RSVPDeclined
	RSVPMaybe
)

// String returns the English display name of the status.
func (s RSVPStatus) String() string {
	switch s {
	case RSVPAccepted:
		return "Accepted"
	case RSVPDeclined:
		return "Declined"
	case RSVPMaybe:
		return "Maybe"
	default:
		return "Pending"
	}
}

// Valid reports whether s is one of the four known statuses.
func (s RSVPStatus) Valid() bool {
	return s >= RSVPPending && s <= RSVPMaybe
}

// TargetField is the guest field a spreadsheet column is mapped to.
type TargetField string

const (
	FieldName              TargetField = "name"
	FieldEmail             TargetField = "email"
	FieldRSVPStatus        TargetField = "rsvpStatus"
	FieldPreferredLanguage TargetField = "preferredLanguage"
	FieldSkip              TargetField = "skip"
)

// Valid reports whether f is a known target field (skip included).
func (f TargetField) Valid() bool {
	switch f {
	case FieldName, FieldEmail, FieldRSVPStatus, FieldPreferredLanguage, FieldSkip:
		return true
	}
	return false
}

// Supported preferred-language codes.
const (
	LangEnglish = "en"
	LangDutch   = "nl"
	LangFrench  = "fr"
)

// SupportedLanguages lists the accepted language codes in display order.
var SupportedLanguages = []string{LangEnglish, LangDutch, LangFrench}

// IsSupportedLanguage reports whether code is one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// ColumnMapping pairs a source column with the guest field it feeds.
// ColumnIndex is the position in ParsedSheet.Headers; headers may repeat.
type ColumnMapping struct {
	Column      string      `json:"column"`
	ColumnIndex int         `json:"columnIndex"`
	Field       TargetField `json:"field"`
}

// ImportGuestRow is one candidate guest built from a spreadsheet row.
// RowIndex is the 0-based position in the uploaded data rows and stays
// stable through every pass so errors can be matched to the visible table.
type ImportGuestRow struct {
	RowIndex          int        `json:"rowIndex"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	RSVPStatus        RSVPStatus `json:"rsvpStatus"`
	PreferredLanguage string     `json:"preferredLanguage"`
	Errors            []string   `json:"errors"`
	IsValid           bool       `json:"isValid"`
}

// addError appends msg and marks the row invalid.
func (r *ImportGuestRow) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

// normalizedEmail is the key used for duplicate and existing-email checks.
func (r ImportGuestRow) normalizedEmail() string {
	return NormalizeEmail(r.Email)
}

// NormalizeEmail lowercases and trims an email for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GuestInput is a single guest in a bulk-create request.
type GuestInput struct {
	RowIndex          int        `json:"rowIndex"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	RSVPStatus        RSVPStatus `json:"rsvpStatus"`
	PreferredLanguage string     `json:"preferredLanguage"`
}

// CreatedGuest is the stub the backend returns for each created guest.
type CreatedGuest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BulkImportError describes one row the backend refused.
type BulkImportError struct {
	RowIndex int    `json:"rowIndex"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// BulkImportGuestResult is the backend's tally for a bulk create.
type BulkImportGuestResult struct {
	Created       int               `json:"created"`
	Skipped       int               `json:"skipped"`
	Failed        int               `json:"failed"`
	CreatedGuests []CreatedGuest    `json:"createdGuests"`
	Errors        []BulkImportError `json:"errors"`
}

// EmailChecker reports which emails already belong to guests of a wedding.
type EmailChecker interface {
	ExistingEmails(ctx context.Context, weddingID string, emails []string) ([]string, error)
}

// GuestCreator creates guests in one batch.
type GuestCreator interface {
	BulkCreateGuests(ctx context.Context, weddingID string, guests []GuestInput) (*BulkImportGuestResult, error)
}

// GuestDirectory is a backend that can both check and create guests.
// Satisfied by the wedding API client and the local stores.
type GuestDirectory interface {
	EmailChecker
	GuestCreator
}

// ImportStep is a stage of the import wizard.
type ImportStep string

const (
	StepUpload  ImportStep = "upload"
	StepMapping ImportStep = "mapping"
	StepPreview ImportStep = "preview"
	StepResult  ImportStep = "result"
)

// PreviewSummary counts rows in a built preview.
type PreviewSummary struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Invalid   int `json:"invalid"`
	Duplicate int `json:"duplicate"`
	Existing  int `json:"existing"`

	// ExistingCheckSkipped is true when the existing-email lookup failed
	// and the preview was built without it.
	ExistingCheckSkipped bool `json:"existingCheckSkipped"`
}

// ImportSession is the state of one wizard run.
type ImportSession struct {
	ID         string                 `json:"id"`
	WeddingID  string                 `json:"weddingId"`
	FileName   string                 `json:"fileName"`
	Step       ImportStep             `json:"step"`
	Headers    []string               `json:"headers"`
	Mappings   []ColumnMapping        `json:"mappings"`
	RowCount   int                    `json:"rowCount"`
	SampleRows [][]string             `json:"sampleRows"` // first data rows, for the mapping step
	Rows       []ImportGuestRow       `json:"rows,omitempty"`
	Summary    *PreviewSummary        `json:"summary,omitempty"`
	Result     *BulkImportGuestResult `json:"result,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// ValidRows returns the rows currently marked valid.
func (s *ImportSession) ValidRows() []ImportGuestRow {
	var out []ImportGuestRow
	for _, r := range s.Rows {
		if r.IsValid {
			out = append(out, r)
		}
	}
	return out
}
