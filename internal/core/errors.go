package core

import "errors"

// File-level errors. These block progression past the upload step.
var (
	ErrNoFile            = errors.New("no file provided")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrEmptyFile         = errors.New("empty file")
	ErrNoDataRows        = errors.New("no data rows after header")
)

// Wizard errors.
var (
	ErrMappingIncomplete = errors.New("mapping incomplete: name and email columns are required")
	ErrInvalidMapping    = errors.New("invalid mapping")
	ErrSessionNotFound   = errors.New("import session not found")
	ErrWrongStep         = errors.New("import session is not at the expected step")
	ErrNoValidRows       = errors.New("no valid rows to import")
)
