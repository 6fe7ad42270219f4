package core

// janitor.go expires idle import sessions.
//
// A session that has not been touched for the session TTL is dropped along
// with its parsed rows. Sessions busy in another operation (for example a
// submit waiting on the guest backend) are skipped until the next sweep.

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often StartJanitor sweeps when given zero.
const DefaultSweepInterval = time.Minute

// SweepExpired drops sessions idle longer than the TTL and returns how many
// were removed.
func (s *Service) SweepExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	removed := 0
	for id, entry := range s.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		expired := entry.session.UpdatedAt.Before(cutoff)
		entry.mu.Unlock()

		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.recorder.SessionsExpired(removed)
	}
	return removed
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
// It blocks; run it in its own goroutine.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.logger.Info("import session janitor started",
		"interval", interval.String(),
		"session_ttl", s.ttl.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("import session janitor stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := s.SweepExpired(); n > 0 {
				s.logger.Info("expired import sessions",
					"sessions_expired", n,
					"sessions_active", s.ActiveSessions(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
