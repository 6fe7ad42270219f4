package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		row        ImportGuestRow
		wantErrors []string
	}{
		{
			name:       "valid row",
			row:        ImportGuestRow{Name: "Ann", Email: "ann@example.com", PreferredLanguage: "en"},
			wantErrors: []string{},
		},
		{
			name:       "invalid email",
			row:        ImportGuestRow{Name: "Ann", Email: "not-an-email", PreferredLanguage: "en"},
			wantErrors: []string{MsgInvalidEmail},
		},
		{
			name:       "email without tld",
			row:        ImportGuestRow{Name: "Ann", Email: "ann@example", PreferredLanguage: "en"},
			wantErrors: []string{MsgInvalidEmail},
		},
		{
			name:       "email with space",
			row:        ImportGuestRow{Name: "Ann", Email: "ann smith@example.com", PreferredLanguage: "en"},
			wantErrors: []string{MsgInvalidEmail},
		},
		{
			name:       "missing name and email",
			row:        ImportGuestRow{PreferredLanguage: "en"},
			wantErrors: []string{MsgNameRequired, MsgEmailRequired},
		},
		{
			name:       "whitespace name",
			row:        ImportGuestRow{Name: "   ", Email: "ann@example.com"},
			wantErrors: []string{MsgNameRequired},
		},
		{
			name:       "empty language allowed",
			row:        ImportGuestRow{Name: "Ann", Email: "ann@example.com"},
			wantErrors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateRow(tt.row)
			if !reflect.DeepEqual(got.Errors, tt.wantErrors) {
				t.Errorf("Errors = %q, want %q", got.Errors, tt.wantErrors)
			}
			if got.IsValid != (len(tt.wantErrors) == 0) {
				t.Errorf("IsValid = %v with errors %q", got.IsValid, got.Errors)
			}
		})
	}
}

func TestValidateRow_UnsupportedLanguage(t *testing.T) {
	got := ValidateRow(ImportGuestRow{Name: "Ann", Email: "ann@example.com", PreferredLanguage: "de"})
	if got.IsValid {
		t.Fatal("IsValid = true for language de")
	}
	if len(got.Errors) != 1 || !strings.HasPrefix(got.Errors[0], MsgUnsupportedLanguage) {
		t.Errorf("Errors = %q, want one unsupported language error", got.Errors)
	}
}

func TestValidateRow_AccumulatesAllErrors(t *testing.T) {
	got := ValidateRow(ImportGuestRow{Email: "bad", PreferredLanguage: "xx"})
	if len(got.Errors) != 3 {
		t.Errorf("Errors = %q, want name, email and language errors", got.Errors)
	}
}

func TestValidateRow_Idempotent(t *testing.T) {
	rows := []ImportGuestRow{
		{Name: "Ann", Email: "ann@example.com", PreferredLanguage: "en"},
		{Name: "", Email: "not-an-email", PreferredLanguage: "de"},
		{Name: "Bob", Email: "", PreferredLanguage: "fr"},
		// Stale state from an earlier pass must not survive.
		{Name: "Cy", Email: "cy@example.com", PreferredLanguage: "nl", Errors: []string{"old"}, IsValid: false},
	}

	for _, row := range rows {
		once := ValidateRow(row)
		twice := ValidateRow(once)
		if !reflect.DeepEqual(once.Errors, twice.Errors) || once.IsValid != twice.IsValid {
			t.Errorf("ValidateRow not idempotent for %+v: %q/%v then %q/%v",
				row, once.Errors, once.IsValid, twice.Errors, twice.IsValid)
		}
	}

	if got := ValidateRow(rows[3]); !got.IsValid || len(got.Errors) != 0 {
		t.Errorf("stale errors kept: %+v", got)
	}
}

func TestValidateRow_DoesNotAliasInput(t *testing.T) {
	in := ImportGuestRow{Name: "", Email: "ann@example.com", Errors: make([]string, 0, 4), IsValid: true}
	_ = ValidateRow(in)
	if len(in.Errors) != 0 || !in.IsValid {
		t.Errorf("input row modified: %+v", in)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.com", "x+tag@mail.example.org"}
	invalid := []string{"", "plain", "@example.com", "a@", "a@b", "a b@c.d", "a@@b.c"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true", e)
		}
	}
}
