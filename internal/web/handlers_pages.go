package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/JonMunkholm/weddingplanner/internal/logging"
	"github.com/JonMunkholm/weddingplanner/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
	templateName    = "guest-import-template"
)

// handleDownloadTemplate returns the guest import template as xlsx
// (default) or csv.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = core.BuildTemplateXLSX()
		contentType = contentTypeXLSX
	case "csv":
		data, err = core.BuildTemplateCSV()
		contentType = contentTypeCSV
	default:
		s.fail(w, r, fmt.Errorf("%w: template format %q", core.ErrUnsupportedFormat, format))
		return
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("build template: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, templateName, format))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("template write failed", "error", err)
	}
}

// handleSessionPage renders a session summary. HTMX requests get the
// fragment only.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	component := templates.SessionSummary(session)
	if !isHTMX(r) {
		component = templates.Page("Guest import: "+session.FileName, component)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session page", "error", err)
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status         string             `json:"status"`
	ActiveSessions int                `json:"activeSessions"`
	Submits        core.LimiterStatus `json:"submits"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: s.service.ActiveSessions(),
		Submits:        s.service.LimiterStatus(),
	})
}
