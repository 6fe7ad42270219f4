package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

const testWedding = "wedding-1"

const guestsCSV = `Naam;E-mailadres;Reactie;Taal
Jan Peeters;jan@example.com;Komt;nl
Els;not-an-email;;
Marie;marie@example.com;oui;fr
Marie Bis;MARIE@example.com;;fr
Bob;bob@example.com;nee;en
`

type countingRecorder struct {
	mu             sync.Mutex
	started        []string
	previews       []PreviewSummary
	checkFailures  int
	submits        int
	submitFailures int
	expired        int
}

func (r *countingRecorder) SessionStarted(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, format)
}

func (r *countingRecorder) PreviewBuilt(s PreviewSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews = append(r.previews, s)
}

func (r *countingRecorder) ExistingCheckFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkFailures++
}

func (r *countingRecorder) SubmitFinished(_ *BulkImportGuestResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits++
	if err != nil {
		r.submitFailures++
	}
}

func (r *countingRecorder) SessionsExpired(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired += n
}

func newTestService(dir GuestDirectory, rec Recorder) *Service {
	return NewService(dir, ServiceOptions{
		Recorder: rec,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func startGuests(t *testing.T, svc *Service) *ImportSession {
	t.Helper()
	session, err := svc.StartImport(context.Background(), testWedding, "guests.csv", []byte(guestsCSV))
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	return session
}

// ============================================================================
// Full Wizard Flow
// ============================================================================

func TestService_FullFlow(t *testing.T) {
	dir := &fakeDirectory{existing: []string{"bob@example.com"}}
	rec := &countingRecorder{}
	svc := newTestService(dir, rec)
	ctx := context.Background()

	session := startGuests(t, svc)
	if session.Step != StepMapping {
		t.Errorf("Step = %s, want mapping", session.Step)
	}
	if session.RowCount != 5 || len(session.SampleRows) != 5 {
		t.Errorf("RowCount = %d, SampleRows = %d, want 5 and 5", session.RowCount, len(session.SampleRows))
	}
	if !CanProceed(session.Mappings) {
		t.Fatalf("Dutch headers not auto-mapped: %+v", session.Mappings)
	}

	preview, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	if preview.Step != StepPreview {
		t.Errorf("Step = %s, want preview", preview.Step)
	}

	want := PreviewSummary{Total: 5, Valid: 2, Invalid: 3, Duplicate: 1, Existing: 1}
	if *preview.Summary != want {
		t.Errorf("Summary = %+v, want %+v", *preview.Summary, want)
	}
	if preview.Rows[0].RSVPStatus != RSVPAccepted {
		t.Errorf("row 0 RSVPStatus = %v, want Accepted", preview.Rows[0].RSVPStatus)
	}
	if got := preview.Rows[3].Errors; len(got) != 1 || got[0] != "Duplicate email (same as row 3)" {
		t.Errorf("row 3 Errors = %q", got)
	}

	result, err := svc.Submit(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Step != StepResult || result.Result == nil || result.Result.Created != 2 {
		t.Errorf("Submit() = step %s result %+v, want result step with 2 created", result.Step, result.Result)
	}

	if len(dir.created) != 1 {
		t.Fatalf("BulkCreateGuests called %d times, want 1", len(dir.created))
	}
	sent := dir.created[0]
	if len(sent) != 2 || sent[0].RowIndex != 0 || sent[1].RowIndex != 2 {
		t.Errorf("sent %+v, want rows 0 and 2", sent)
	}
	if sent[1].PreferredLanguage != LangFrench || sent[1].RSVPStatus != RSVPAccepted {
		t.Errorf("sent[1] = %+v", sent[1])
	}

	if len(rec.started) != 1 || rec.started[0] != "csv" {
		t.Errorf("recorder started = %q", rec.started)
	}
	if len(rec.previews) != 1 || rec.submits != 1 || rec.submitFailures != 0 {
		t.Errorf("recorder = %+v", rec)
	}

	if _, err := svc.Submit(ctx, testWedding, session.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("second Submit() error = %v, want ErrWrongStep", err)
	}
	if len(dir.created) != 1 {
		t.Errorf("second Submit reached the backend")
	}
}

// ============================================================================
// StartImport
// ============================================================================

func TestService_StartImportErrors(t *testing.T) {
	svc := NewService(&fakeDirectory{}, ServiceOptions{
		MaxFileSize: 64,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	tests := []struct {
		name     string
		fileName string
		data     string
		want     error
	}{
		{name: "no file", fileName: "", data: "Name,Email\n", want: ErrNoFile},
		{name: "empty data", fileName: "guests.csv", data: "", want: ErrEmptyFile},
		{name: "too large", fileName: "guests.csv", data: strings.Repeat("x", 65), want: ErrFileTooLarge},
		{name: "unsupported", fileName: "guests.txt", data: "Name,Email\n", want: ErrUnsupportedFormat},
		{name: "header only", fileName: "guests.csv", data: "Name,Email\n", want: ErrNoDataRows},
		{name: "blank", fileName: "guests.csv", data: "\n\n", want: ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartImport(context.Background(), testWedding, tt.fileName, []byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("StartImport() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := svc.ActiveSessions(); n != 0 {
		t.Errorf("ActiveSessions = %d after failed starts", n)
	}
}

func TestService_StartImportStripsPath(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	session, err := svc.StartImport(context.Background(), testWedding, "C/Users/ann/guests.csv", []byte(guestsCSV))
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	if session.FileName != "guests.csv" {
		t.Errorf("FileName = %q, want guests.csv", session.FileName)
	}
}

// ============================================================================
// Sessions
// ============================================================================

func TestService_SessionsScopedToWedding(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	if _, err := svc.GetSession(ctx, "other-wedding", session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() other wedding error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.BuildPreview(ctx, "other-wedding", session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("BuildPreview() other wedding error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.CloseSession(ctx, "other-wedding", session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("CloseSession() other wedding error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.GetSession(ctx, testWedding, session.ID); err != nil {
		t.Errorf("GetSession() own wedding error = %v", err)
	}
}

func TestService_CloseSession(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	if err := svc.CloseSession(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if _, err := svc.GetSession(ctx, testWedding, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() after close error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.CloseSession(ctx, testWedding, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second CloseSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_ReturnsCopies(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	session.Headers[0] = "changed"
	session.Mappings[0].Field = FieldSkip
	session.SampleRows[0][0] = "changed"

	again, err := svc.GetSession(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if again.Headers[0] != "Naam" || again.Mappings[0].Field != FieldName || again.SampleRows[0][0] != "Jan Peeters" {
		t.Errorf("caller mutation leaked into the stored session: %+v", again)
	}

	preview, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	preview.Rows[0].Errors = append(preview.Rows[0].Errors, "changed")
	preview.Rows[0].IsValid = false

	again, _ = svc.GetSession(ctx, testWedding, session.ID)
	if !again.Rows[0].IsValid || len(again.Rows[0].Errors) != 0 {
		t.Errorf("row mutation leaked: %+v", again.Rows[0])
	}
}

// ============================================================================
// Mapping
// ============================================================================

func TestService_UpdateMapping(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	dup := []ColumnMapping{
		{ColumnIndex: 0, Field: FieldName},
		{ColumnIndex: 1, Field: FieldEmail},
		{ColumnIndex: 2, Field: FieldEmail},
	}
	if _, err := svc.UpdateMapping(ctx, testWedding, session.ID, dup); !errors.Is(err, ErrInvalidMapping) {
		t.Errorf("UpdateMapping() duplicate field error = %v, want ErrInvalidMapping", err)
	}

	incomplete := []ColumnMapping{{ColumnIndex: 0, Field: FieldName}}
	updated, err := svc.UpdateMapping(ctx, testWedding, session.ID, incomplete)
	if err != nil {
		t.Fatalf("UpdateMapping() incomplete error = %v, want it stored", err)
	}
	if updated.Mappings[0].Column != "Naam" {
		t.Errorf("Column = %q, want name filled from headers", updated.Mappings[0].Column)
	}
	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); !errors.Is(err, ErrMappingIncomplete) {
		t.Errorf("BuildPreview() error = %v, want ErrMappingIncomplete", err)
	}

	// Map the "Taal" column as the name: every row gets a language-code name.
	custom := []ColumnMapping{
		{ColumnIndex: 3, Field: FieldName},
		{ColumnIndex: 1, Field: FieldEmail},
	}
	if _, err := svc.UpdateMapping(ctx, testWedding, session.ID, custom); err != nil {
		t.Fatalf("UpdateMapping() error = %v", err)
	}
	preview, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	if preview.Rows[0].Name != "nl" {
		t.Errorf("row 0 Name = %q, want the Taal column", preview.Rows[0].Name)
	}
}

func TestService_UpdateMappingFromPreviewResets(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	back, err := svc.UpdateMapping(ctx, testWedding, session.ID, session.Mappings)
	if err != nil {
		t.Fatalf("UpdateMapping() error = %v", err)
	}
	if back.Step != StepMapping || back.Rows != nil || back.Summary != nil {
		t.Errorf("after going back: step %s rows %d summary %v", back.Step, len(back.Rows), back.Summary)
	}
	if _, err := svc.Submit(ctx, testWedding, session.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Submit() from mapping error = %v, want ErrWrongStep", err)
	}
}

func TestService_UpdateMappingAfterResult(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	if _, err := svc.Submit(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.UpdateMapping(ctx, testWedding, session.ID, session.Mappings); !errors.Is(err, ErrWrongStep) {
		t.Errorf("UpdateMapping() after result error = %v, want ErrWrongStep", err)
	}
	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("BuildPreview() after result error = %v, want ErrWrongStep", err)
	}
}

// ============================================================================
// Preview and Submit
// ============================================================================

func TestService_ExistingCheckFailureDoesNotBlock(t *testing.T) {
	dir := &fakeDirectory{checkErr: errors.New("wedding api: status 503: unavailable")}
	rec := &countingRecorder{}
	svc := newTestService(dir, rec)
	ctx := context.Background()
	session := startGuests(t, svc)

	preview, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v, want the failed check skipped", err)
	}
	if !preview.Summary.ExistingCheckSkipped {
		t.Error("ExistingCheckSkipped = false")
	}
	if preview.Summary.Valid != 3 || preview.Summary.Existing != 0 {
		t.Errorf("Summary = %+v, want 3 valid and no existing", *preview.Summary)
	}
	if rec.checkFailures != 1 {
		t.Errorf("recorder check failures = %d, want 1", rec.checkFailures)
	}

	if _, err := svc.Submit(ctx, testWedding, session.ID); err != nil {
		t.Errorf("Submit() error = %v", err)
	}
}

func TestService_SubmitFailureStaysOnPreview(t *testing.T) {
	dir := &fakeDirectory{createErr: errors.New("wedding api: status 500: boom")}
	rec := &countingRecorder{}
	svc := newTestService(dir, rec)
	ctx := context.Background()
	session := startGuests(t, svc)

	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	if _, err := svc.Submit(ctx, testWedding, session.ID); err == nil {
		t.Fatal("Submit() error = nil, want backend failure")
	}

	current, _ := svc.GetSession(ctx, testWedding, session.ID)
	if current.Step != StepPreview || current.Result != nil {
		t.Errorf("after failed submit: step %s result %+v, want preview and no result", current.Step, current.Result)
	}

	dir.mu.Lock()
	dir.createErr = nil
	dir.mu.Unlock()

	retried, err := svc.Submit(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if retried.Step != StepResult {
		t.Errorf("retry Step = %s, want result", retried.Step)
	}
	if rec.submits != 2 || rec.submitFailures != 1 {
		t.Errorf("recorder submits = %d failures = %d, want 2 and 1", rec.submits, rec.submitFailures)
	}
}

// deadlineDirectory records whether the bulk-create context had a deadline.
type deadlineDirectory struct {
	fakeDirectory
	hasDeadline bool
	remaining   time.Duration
}

func (d *deadlineDirectory) BulkCreateGuests(ctx context.Context, weddingID string, guests []GuestInput) (*BulkImportGuestResult, error) {
	deadline, ok := ctx.Deadline()
	d.hasDeadline = ok
	if ok {
		d.remaining = time.Until(deadline)
	}
	return d.fakeDirectory.BulkCreateGuests(ctx, weddingID, guests)
}

func TestService_SubmitTimeout(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "zero adds no deadline", timeout: 0, wantDeadline: false},
		{name: "configured timeout bounds the call", timeout: 5 * time.Second, wantDeadline: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &deadlineDirectory{}
			svc := NewService(dir, ServiceOptions{
				SubmitTimeout: tt.timeout,
				Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			ctx := context.Background()
			session := startGuests(t, svc)

			if _, err := svc.BuildPreview(ctx, testWedding, session.ID); err != nil {
				t.Fatalf("BuildPreview() error = %v", err)
			}
			if _, err := svc.Submit(ctx, testWedding, session.ID); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}

			if dir.hasDeadline != tt.wantDeadline {
				t.Fatalf("backend context deadline = %v, want %v", dir.hasDeadline, tt.wantDeadline)
			}
			if tt.wantDeadline && (dir.remaining <= 0 || dir.remaining > tt.timeout) {
				t.Errorf("deadline in %v, want within %v", dir.remaining, tt.timeout)
			}
		})
	}
}

func TestService_SubmitNoValidRows(t *testing.T) {
	dir := &fakeDirectory{}
	svc := newTestService(dir, nil)
	ctx := context.Background()

	data := "Name,Email\n,missing-name@example.com\nNo Email,\n"
	session, err := svc.StartImport(ctx, testWedding, "bad.csv", []byte(data))
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	if _, err := svc.BuildPreview(ctx, testWedding, session.ID); err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	if _, err := svc.Submit(ctx, testWedding, session.ID); !errors.Is(err, ErrNoValidRows) {
		t.Errorf("Submit() error = %v, want ErrNoValidRows", err)
	}
	if len(dir.created) != 0 {
		t.Error("backend called with no valid rows")
	}
}

func TestService_SubmitBeforePreview(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	session := startGuests(t, svc)
	if _, err := svc.Submit(context.Background(), testWedding, session.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Submit() error = %v, want ErrWrongStep", err)
	}
}

func TestService_PreviewRebuildIsStable(t *testing.T) {
	svc := newTestService(&fakeDirectory{existing: []string{"bob@example.com"}}, nil)
	ctx := context.Background()
	session := startGuests(t, svc)

	first, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	second, err := svc.BuildPreview(ctx, testWedding, session.ID)
	if err != nil {
		t.Fatalf("second BuildPreview() error = %v", err)
	}
	if *first.Summary != *second.Summary {
		t.Errorf("rebuild changed summary: %+v then %+v", *first.Summary, *second.Summary)
	}
}

// ============================================================================
// Janitor
// ============================================================================

func TestService_SweepExpired(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(&fakeDirectory{}, ServiceOptions{
		SessionTTL: time.Minute,
		Recorder:   rec,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale := startGuests(t, svc)
	now = now.Add(50 * time.Second)
	fresh := startGuests(t, svc)

	now = now.Add(20 * time.Second)
	if n := svc.SweepExpired(); n != 1 {
		t.Fatalf("SweepExpired() = %d, want 1", n)
	}
	if _, err := svc.GetSession(ctx, testWedding, stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("stale session error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.GetSession(ctx, testWedding, fresh.ID); err != nil {
		t.Errorf("fresh session error = %v", err)
	}
	if rec.expired != 1 {
		t.Errorf("recorder expired = %d, want 1", rec.expired)
	}
}

func TestService_ActivityExtendsSession(t *testing.T) {
	svc := NewService(&fakeDirectory{}, ServiceOptions{
		SessionTTL: time.Minute,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session := startGuests(t, svc)
	now = now.Add(45 * time.Second)
	if _, err := svc.BuildPreview(context.Background(), testWedding, session.ID); err != nil {
		t.Fatalf("BuildPreview() error = %v", err)
	}
	now = now.Add(45 * time.Second)

	if n := svc.SweepExpired(); n != 0 {
		t.Errorf("SweepExpired() = %d, want 0 for a recently used session", n)
	}
}

func TestService_StartJanitorStops(t *testing.T) {
	svc := newTestService(&fakeDirectory{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartJanitor(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
