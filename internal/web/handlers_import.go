package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the room left for form boundaries and other fields
// on top of the file size limit.
const multipartOverhead = 1 << 20

// multipartMemory is how much of the form ParseMultipartForm keeps in memory.
const multipartMemory = 8 << 20

// handleStartImport accepts a spreadsheet upload and opens a session at
// the mapping step.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	weddingID := chi.URLParam(r, "weddingID")

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.fail(w, r, fmt.Errorf("%w: %d bytes", core.ErrFileTooLarge, header.Size))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err))
		return
	}

	session, err := s.service.StartImport(r.Context(), weddingID, header.Filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleUpdateMapping stores the user's column choices. An incomplete
// mapping is accepted; it only blocks the preview.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: malformed request body: %v", core.ErrInvalidMapping, err))
		return
	}
	if fields, ok := req.Ok(s.validate); !ok {
		s.fail(w, r, mappingError(fields))
		return
	}

	session, err := s.service.UpdateMapping(r.Context(), chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID"), req.toMappings())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleBuildPreview(w http.ResponseWriter, r *http.Request) {
	ctx := withGuestSession(r.Context(), r)
	session, err := s.service.BuildPreview(ctx, chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := withGuestSession(r.Context(), r)
	session, err := s.service.Submit(ctx, chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(r.Context(), chi.URLParam(r, "weddingID"), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListGuests lists the guests a local backend holds for a wedding.
func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := s.guests.Guests(r.Context(), chi.URLParam(r, "weddingID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guests": guests, "count": len(guests)})
}
