// Package templates renders the HTML fragments and pages of the import UI.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/a-h/templ"
)

// MaxPreviewRows caps how many rows the summary page lists.
const MaxPreviewRows = 200

// htmlWriter stops writing after the first error and remembers it.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) textf(format string, args ...any) {
	h.text(fmt.Sprintf(format, args...))
}

// ErrorAlert is the fragment returned to HTMX requests that failed.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">`)
		h.text(message)
		h.raw(`</p>`)
		if action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="alert-code">Code: `)
		h.text(code)
		h.raw(`</p></div>`)
		return h.err
	})
}

// SessionSummary renders the state of an import session: mapping, preview
// counts, the rows with their errors, and the backend tally once submitted.
func SessionSummary(session *core.ImportSession) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<section class="import-summary" id="import-`)
		h.text(session.ID)
		h.raw(`"><h2>`)
		h.text(session.FileName)
		h.raw(`</h2><p class="step">Step: `)
		h.text(string(session.Step))
		h.raw(`</p>`)

		writeMappings(h, session)
		if session.Summary != nil {
			writeCounts(h, session.Summary)
			writeRows(h, session.Rows)
		}
		if session.Result != nil {
			writeResult(h, session.Result)
		}

		h.raw(`</section>`)
		return h.err
	})
}

// Page wraps body in a minimal HTML document.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(title)
		h.raw(`</title></head><body>`)
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw(`</body></html>`)
		return h.err
	})
}

func writeMappings(h *htmlWriter, session *core.ImportSession) {
	h.raw(`<table class="mappings"><thead><tr><th>Column</th><th>Field</th></tr></thead><tbody>`)
	for _, m := range session.Mappings {
		h.raw(`<tr><td>`)
		h.text(m.Column)
		h.raw(`</td><td>`)
		h.text(fieldLabel(m.Field))
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
}

func writeCounts(h *htmlWriter, s *core.PreviewSummary) {
	h.raw(`<dl class="counts">`)
	for _, c := range []struct {
		label string
		n     int
	}{
		{"Total", s.Total},
		{"Valid", s.Valid},
		{"Invalid", s.Invalid},
		{"Duplicates", s.Duplicate},
		{"Already invited", s.Existing},
	} {
		h.raw(`<dt>`)
		h.text(c.label)
		h.raw(`</dt><dd>`)
		h.textf("%d", c.n)
		h.raw(`</dd>`)
	}
	h.raw(`</dl>`)
	if s.ExistingCheckSkipped {
		h.raw(`<p class="notice">Existing guests could not be checked. Duplicates of guests already on your list may be skipped when importing.</p>`)
	}
}

func writeRows(h *htmlWriter, rows []core.ImportGuestRow) {
	h.raw(`<table class="rows"><thead><tr><th>Row</th><th>Name</th><th>Email</th><th>RSVP</th><th>Language</th><th>Issues</th></tr></thead><tbody>`)
	for i, r := range rows {
		if i == MaxPreviewRows {
			break
		}
		if r.IsValid {
			h.raw(`<tr class="valid"><td>`)
		} else {
			h.raw(`<tr class="invalid"><td>`)
		}
		h.textf("%d", r.RowIndex+1)
		h.raw(`</td><td>`)
		h.text(r.Name)
		h.raw(`</td><td>`)
		h.text(r.Email)
		h.raw(`</td><td>`)
		h.text(r.RSVPStatus.String())
		h.raw(`</td><td>`)
		h.text(r.PreferredLanguage)
		h.raw(`</td><td>`)
		h.text(strings.Join(r.Errors, "; "))
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
	if len(rows) > MaxPreviewRows {
		h.raw(`<p class="more">`)
		h.textf("%d more rows not shown", len(rows)-MaxPreviewRows)
		h.raw(`</p>`)
	}
}

func writeResult(h *htmlWriter, res *core.BulkImportGuestResult) {
	h.raw(`<div class="result"><p>`)
	h.textf("%d guests added, %d skipped, %d failed", res.Created, res.Skipped, res.Failed)
	h.raw(`</p>`)
	if len(res.Errors) > 0 {
		h.raw(`<ul class="result-errors">`)
		for _, e := range res.Errors {
			h.raw(`<li>`)
			h.textf("Row %d (%s): %s", e.RowIndex+1, e.Email, e.Message)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	}
	h.raw(`</div>`)
}

func fieldLabel(f core.TargetField) string {
	switch f {
	case core.FieldName:
		return "Name"
	case core.FieldEmail:
		return "Email"
	case core.FieldRSVPStatus:
		return "RSVP Status"
	case core.FieldPreferredLanguage:
		return "Preferred Language"
	default:
		return "Skip"
	}
}
