package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/JonMunkholm/weddingplanner/internal/weddingapi"
)

// withGuestSession carries the caller's bearer token towards the wedding
// API so guests are checked and created on the caller's behalf.
func withGuestSession(ctx context.Context, r *http.Request) context.Context {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ctx
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return weddingapi.WithSession(ctx, weddingapi.Session{Token: token})
}
