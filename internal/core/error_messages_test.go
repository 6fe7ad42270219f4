package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "file too large", err: fmt.Errorf("%w: 7340032 bytes", ErrFileTooLarge), wantCode: "FILE001"},
		{name: "max bytes reader", err: errors.New("http: request body too large"), wantCode: "FILE001"},
		{name: "unsupported format", err: fmt.Errorf("%w: \".pdf\"", ErrUnsupportedFormat), wantCode: "FILE002"},
		{name: "unreadable file", err: fmt.Errorf("%w: open xlsx: zip: not a valid zip file", ErrUnreadableFile), wantCode: "FILE003"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE004"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE005"},
		{name: "no data rows", err: ErrNoDataRows, wantCode: "FILE006"},
		{name: "mapping incomplete", err: ErrMappingIncomplete, wantCode: "MAP001"},
		{name: "invalid mapping", err: fmt.Errorf("%w: field \"email\" mapped more than once", ErrInvalidMapping), wantCode: "MAP002"},
		{name: "session not found", err: ErrSessionNotFound, wantCode: "IMP001"},
		{name: "wrong step", err: ErrWrongStep, wantCode: "IMP002"},
		{name: "no valid rows", err: ErrNoValidRows, wantCode: "IMP003"},
		{name: "api unauthorized", err: errors.New("bulk create guests: wedding api: status 401: invalid token"), wantCode: "API001"},
		{name: "api not found", err: errors.New("wedding api: status 404: wedding not found"), wantCode: "API002"},
		{name: "api server error", err: errors.New("wedding api: status 502: bad gateway"), wantCode: "API003"},
		{name: "too many submits", err: ErrTooManySubmits, wantCode: "UPL001"},
		{name: "cancelled", err: context.Canceled, wantCode: "UPL002"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "UPL003"},
		{name: "db down", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), wantCode: "DB001"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
		{name: "case insensitive matching", err: errors.New("EMPTY FILE"), wantCode: "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Action == "" {
				t.Error("MapError() action is empty")
			}
		})
	}
}

func TestUserMessage_String(t *testing.T) {
	tests := []struct {
		name string
		msg  UserMessage
		want string
	}{
		{
			name: "with action",
			msg:  MapError(ErrMappingIncomplete),
			want: "Name and email columns are required (Code: MAP001). Choose which columns hold the guest name and email",
		},
		{name: "without action", msg: UserMessage{Message: "Gone", Code: "X1"}, want: "Gone (Code: X1)"},
		{name: "empty", msg: UserMessage{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("start import: %w", ErrEmptyFile)
		userErr := NewUserError(techErr)

		if userErr.Error() != "The file is empty" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrEmptyFile) {
			t.Error("Unwrap() should reach the original error")
		}
		if !userErr.Expected {
			t.Error("Expected = false for a catalogued error")
		}
	})

	t.Run("unmatched error is unexpected", func(t *testing.T) {
		userErr := NewUserError(errors.New("random internal error xyz"))
		if userErr.Expected || userErr.User.Code != "ERR000" {
			t.Errorf("NewUserError() = %+v, want unexpected ERR000", userErr)
		}
	})
}
