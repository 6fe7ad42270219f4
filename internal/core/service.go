package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for ServiceOptions zero values.
const (
	DefaultSessionTTL     = 30 * time.Minute
	DefaultSampleRowCount = 5
)

// Recorder receives import events. internal/metrics implements it.
type Recorder interface {
	SessionStarted(format string)
	PreviewBuilt(summary PreviewSummary)
	ExistingCheckFailed()
	SubmitFinished(result *BulkImportGuestResult, err error)
	SessionsExpired(n int)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(string)                        {}
func (nopRecorder) PreviewBuilt(PreviewSummary)                  {}
func (nopRecorder) ExistingCheckFailed()                         {}
func (nopRecorder) SubmitFinished(*BulkImportGuestResult, error) {}
func (nopRecorder) SessionsExpired(int)                          {}

// ServiceOptions tunes a Service. Zero values use the defaults.
type ServiceOptions struct {
	MaxFileSize          int64
	SessionTTL           time.Duration
	SampleRowCount       int
	MaxConcurrentSubmits int
	MaxWaitTime          time.Duration
	// SubmitTimeout bounds one bulk-create call. Zero leaves the caller's
	// context as the only limit.
	SubmitTimeout        time.Duration
	Recorder             Recorder
	Logger               *slog.Logger
}

// Service runs the import wizard: upload, mapping, preview, result.
//
// Each wizard run is an ImportSession held in memory and scoped to one
// wedding. Operations on the same session are serialized; callers always
// get a copy of the session, never the live value.
type Service struct {
	directory GuestDirectory
	limiter   *SubmitLimiter
	recorder  Recorder
	logger    *slog.Logger

	maxFileSize   int64
	ttl           time.Duration
	sampleRows    int
	submitTimeout time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// sessionEntry pairs a session with the raw rows it was parsed from.
type sessionEntry struct {
	mu      sync.Mutex
	session *ImportSession
	rawRows [][]string
}

// NewService creates a Service backed by directory.
func NewService(directory GuestDirectory, opts ServiceOptions) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = MaxFileSize
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.SampleRowCount <= 0 {
		opts.SampleRowCount = DefaultSampleRowCount
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		directory:     directory,
		limiter:       NewSubmitLimiter(opts.MaxConcurrentSubmits, opts.MaxWaitTime),
		recorder:      opts.Recorder,
		logger:        opts.Logger,
		maxFileSize:   opts.MaxFileSize,
		ttl:           opts.SessionTTL,
		sampleRows:    opts.SampleRowCount,
		submitTimeout: opts.SubmitTimeout,
		now:           time.Now,
		sessions:      make(map[string]*sessionEntry),
	}
}

// StartImport parses an uploaded file, guesses a column mapping and opens a
// session at the mapping step.
func (s *Service) StartImport(ctx context.Context, weddingID, fileName string, data []byte) (*ImportSession, error) {
	if fileName == "" {
		return nil, ErrNoFile
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	sheet, err := ParseFile(fileName, data)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrNoDataRows
	}

	now := s.now()
	session := &ImportSession{
		ID:         uuid.New().String(),
		WeddingID:  weddingID,
		FileName:   filepath.Base(fileName),
		Step:       StepMapping,
		Headers:    sheet.Headers,
		Mappings:   AutoMapColumns(sheet.Headers),
		RowCount:   len(sheet.Rows),
		SampleRows: cloneRows(sheet.Rows[:min(s.sampleRows, len(sheet.Rows))]),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session, rawRows: sheet.Rows}
	s.mu.Unlock()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	s.recorder.SessionStarted(format)
	s.logger.InfoContext(ctx, "import session started",
		"session_id", session.ID,
		"wedding_id", weddingID,
		"file", session.FileName,
		"format", format,
		"rows", session.RowCount,
		"columns", len(session.Headers),
		"auto_mapped", CanProceed(session.Mappings),
	)

	return session.clone(), nil
}

// GetSession returns a copy of the session.
func (s *Service) GetSession(ctx context.Context, weddingID, sessionID string) (*ImportSession, error) {
	entry, err := s.lookup(weddingID, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.clone(), nil
}

// UpdateMapping replaces the session's column mapping with the user's
// choices. Column names are taken from the session headers. Called on a
// built preview, it discards the preview and returns to the mapping step.
// An incomplete mapping is stored; BuildPreview refuses it.
func (s *Service) UpdateMapping(ctx context.Context, weddingID, sessionID string, mappings []ColumnMapping) (*ImportSession, error) {
	entry, err := s.lookup(weddingID, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if session.Step != StepMapping && session.Step != StepPreview {
		return nil, fmt.Errorf("%w: cannot change mapping at step %s", ErrWrongStep, session.Step)
	}

	if err := ValidateMapping(mappings, len(session.Headers)); err != nil && !isIncomplete(err) {
		return nil, err
	}

	next := make([]ColumnMapping, len(mappings))
	for i, m := range mappings {
		m.Column = session.Headers[m.ColumnIndex]
		next[i] = m
	}

	session.Mappings = next
	session.Step = StepMapping
	session.Rows = nil
	session.Summary = nil
	session.UpdatedAt = s.now()

	s.logger.DebugContext(ctx, "import mapping updated",
		"session_id", session.ID,
		"complete", CanProceed(next),
	)
	return session.clone(), nil
}

// BuildPreview runs the mapped rows through transform, validation,
// duplicate detection and the existing-email check, then moves the session
// to the preview step. A failed existing-email check is logged and skipped.
func (s *Service) BuildPreview(ctx context.Context, weddingID, sessionID string) (*ImportSession, error) {
	entry, err := s.lookup(weddingID, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if session.Step != StepMapping && session.Step != StepPreview {
		return nil, fmt.Errorf("%w: cannot build preview at step %s", ErrWrongStep, session.Step)
	}
	if err := ValidateMapping(session.Mappings, len(session.Headers)); err != nil {
		return nil, err
	}

	start := time.Now()
	rows := ApplyMapping(entry.rawRows, session.Mappings)
	rows = ValidateRows(rows)
	rows = DetectDuplicateEmails(rows)

	checkSkipped := false
	rows, err = MarkExistingEmails(ctx, s.directory, weddingID, rows)
	if err != nil {
		checkSkipped = true
		s.recorder.ExistingCheckFailed()
		s.logger.WarnContext(ctx, "existing email check skipped",
			"session_id", session.ID,
			"wedding_id", weddingID,
			"error", err,
		)
	}

	summary := summarize(rows)
	summary.ExistingCheckSkipped = checkSkipped

	session.Rows = rows
	session.Summary = &summary
	session.Step = StepPreview
	session.UpdatedAt = s.now()

	s.recorder.PreviewBuilt(summary)
	s.logger.InfoContext(ctx, "import preview built",
		"session_id", session.ID,
		"total", summary.Total,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"duplicate", summary.Duplicate,
		"existing", summary.Existing,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return session.clone(), nil
}

// Submit sends every valid preview row to the guest backend in one call.
//
// On success the result is stored and the session moves to the result
// step. On failure the error is returned and the session stays on the
// preview step so the user can retry.
func (s *Service) Submit(ctx context.Context, weddingID, sessionID string) (*ImportSession, error) {
	entry, err := s.lookup(weddingID, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if session.Step != StepPreview {
		return nil, fmt.Errorf("%w: cannot submit at step %s", ErrWrongStep, session.Step)
	}

	valid := session.ValidRows()
	if len(valid) == 0 {
		return nil, ErrNoValidRows
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	guests := make([]GuestInput, len(valid))
	for i, r := range valid {
		guests[i] = GuestInput{
			RowIndex:          r.RowIndex,
			Name:              r.Name,
			Email:             r.Email,
			RSVPStatus:        r.RSVPStatus,
			PreferredLanguage: r.PreferredLanguage,
		}
	}

	submitCtx := ctx
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.directory.BulkCreateGuests(submitCtx, weddingID, guests)
	s.recorder.SubmitFinished(result, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "bulk guest import failed",
			"session_id", session.ID,
			"wedding_id", weddingID,
			"guests", len(guests),
			"error", err,
		)
		session.UpdatedAt = s.now()
		return nil, fmt.Errorf("bulk create guests: %w", err)
	}

	session.Result = result
	session.Step = StepResult
	session.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "bulk guest import completed",
		"session_id", session.ID,
		"wedding_id", weddingID,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return session.clone(), nil
}

// CloseSession discards a session and everything parsed for it.
func (s *Service) CloseSession(ctx context.Context, weddingID, sessionID string) error {
	if _, err := s.lookup(weddingID, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "import session closed", "session_id", sessionID)
	return nil
}

// ActiveSessions returns the number of open sessions.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LimiterStatus reports bulk-submit slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForSubmits blocks until in-flight submits finish or ctx is done.
func (s *Service) WaitForSubmits(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// lookup finds a session visible under weddingID.
func (s *Service) lookup(weddingID, sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	// WeddingID is immutable after creation.
	if !ok || entry.session.WeddingID != weddingID {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func isIncomplete(err error) bool {
	return errors.Is(err, ErrMappingIncomplete)
}

func summarize(rows []ImportGuestRow) PreviewSummary {
	sum := PreviewSummary{Total: len(rows)}
	for _, r := range rows {
		if r.IsValid {
			sum.Valid++
		} else {
			sum.Invalid++
		}
		for _, e := range r.Errors {
			switch {
			case strings.HasPrefix(e, MsgDuplicateEmail):
				sum.Duplicate++
			case e == MsgExistingEmail:
				sum.Existing++
			}
		}
	}
	return sum
}

func (s *ImportSession) clone() *ImportSession {
	c := *s
	c.Headers = append([]string(nil), s.Headers...)
	c.Mappings = append([]ColumnMapping(nil), s.Mappings...)
	c.SampleRows = cloneRows(s.SampleRows)

	if s.Rows != nil {
		c.Rows = make([]ImportGuestRow, len(s.Rows))
		for i, r := range s.Rows {
			r.Errors = append([]string{}, r.Errors...)
			c.Rows[i] = r
		}
	}
	if s.Summary != nil {
		sum := *s.Summary
		c.Summary = &sum
	}
	if s.Result != nil {
		res := *s.Result
		res.CreatedGuests = append([]CreatedGuest(nil), s.Result.CreatedGuests...)
		res.Errors = append([]BulkImportError(nil), s.Result.Errors...)
		c.Result = &res
	}
	return &c
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
