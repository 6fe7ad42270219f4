// Package store holds what the local guest backends share. The backends
// live in subpackages: memory for demo mode, postgres for self-hosting.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/weddingplanner/internal/core"
)

// Per-guest rejection reasons reported in BulkImportGuestResult.Errors.
var (
	ErrGuestNameRequired  = errors.New("name is required")
	ErrGuestInvalidEmail  = errors.New("invalid email format")
	ErrGuestInvalidRSVP   = errors.New("invalid rsvp status")
	ErrGuestInvalidLocale = errors.New("unsupported preferred language")
)

// Guest is a stored guest.
type Guest struct {
	ID                string          `json:"id"`
	WeddingID         string          `json:"weddingId"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	RSVPStatus        core.RSVPStatus `json:"rsvpStatus"`
	PreferredLanguage string          `json:"preferredLanguage"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Lister lists a wedding's stored guests. Only the local backends keep
// guests themselves, so the wedding API client does not implement it.
type Lister interface {
	Guests(ctx context.Context, weddingID string) ([]Guest, error)
}

// Normalize trims a guest input and fills the language default.
func Normalize(g core.GuestInput) core.GuestInput {
	g.Name = strings.TrimSpace(g.Name)
	g.Email = strings.TrimSpace(g.Email)
	g.PreferredLanguage = strings.ToLower(strings.TrimSpace(g.PreferredLanguage))
	if g.PreferredLanguage == "" {
		g.PreferredLanguage = core.LangEnglish
	}
	return g
}

// Check validates a normalized guest before it is stored.
func Check(g core.GuestInput) error {
	switch {
	case g.Name == "":
		return ErrGuestNameRequired
	case !core.IsValidEmail(g.Email):
		return ErrGuestInvalidEmail
	case !g.RSVPStatus.Valid():
		return ErrGuestInvalidRSVP
	case !core.IsSupportedLanguage(g.PreferredLanguage):
		return ErrGuestInvalidLocale
	}
	return nil
}

// RowError builds a result error entry for g.
func RowError(g core.GuestInput, msg string) core.BulkImportError {
	return core.BulkImportError{RowIndex: g.RowIndex, Name: g.Name, Email: g.Email, Message: msg}
}
