// Package memory is the demo-mode guest backend: guests live in process
// memory and vanish on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/JonMunkholm/weddingplanner/internal/store"
	"github.com/google/uuid"
)

// Store is an in-memory guest directory, safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	// weddingID -> lowercased email -> guest
	guests map[string]map[string]store.Guest
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		guests: make(map[string]map[string]store.Guest),
		now:    time.Now,
	}
}

// ExistingEmails implements core.EmailChecker.
func (s *Store) ExistingEmails(ctx context.Context, weddingID string, emails []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byEmail := s.guests[weddingID]
	var found []string
	for _, e := range emails {
		if _, ok := byEmail[core.NormalizeEmail(e)]; ok {
			found = append(found, e)
		}
	}
	return found, nil
}

// BulkCreateGuests implements core.GuestCreator. Guests whose email is
// already present (including earlier in the same batch) are skipped;
// guests that fail validation are counted as failed.
func (s *Store) BulkCreateGuests(ctx context.Context, weddingID string, guests []core.GuestInput) (*core.BulkImportGuestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byEmail, ok := s.guests[weddingID]
	if !ok {
		byEmail = make(map[string]store.Guest)
		s.guests[weddingID] = byEmail
	}

	result := &core.BulkImportGuestResult{
		CreatedGuests: []core.CreatedGuest{},
		Errors:        []core.BulkImportError{},
	}
	for _, in := range guests {
		g := store.Normalize(in)
		if err := store.Check(g); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, store.RowError(g, err.Error()))
			continue
		}

		key := core.NormalizeEmail(g.Email)
		if _, exists := byEmail[key]; exists {
			result.Skipped++
			result.Errors = append(result.Errors, store.RowError(g, core.MsgExistingEmail))
			continue
		}

		guest := store.Guest{
			ID:                uuid.New().String(),
			WeddingID:         weddingID,
			Name:              g.Name,
			Email:             g.Email,
			RSVPStatus:        g.RSVPStatus,
			PreferredLanguage: g.PreferredLanguage,
			CreatedAt:         s.now(),
		}
		byEmail[key] = guest
		result.Created++
		result.CreatedGuests = append(result.CreatedGuests, core.CreatedGuest{ID: guest.ID, Name: guest.Name, Email: guest.Email})
	}

	return result, nil
}

// Guests lists a wedding's guests ordered by creation time, then name.
func (s *Store) Guests(ctx context.Context, weddingID string) ([]store.Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Guest, 0, len(s.guests[weddingID]))
	for _, g := range s.guests[weddingID] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
