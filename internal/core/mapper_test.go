package core

import (
	"errors"
	"testing"
)

func TestAutoMapColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    []TargetField
	}{
		{
			name:    "english template headers",
			headers: []string{"Name", "Email", "RSVP Status", "Preferred Language"},
			want:    []TargetField{FieldName, FieldEmail, FieldRSVPStatus, FieldPreferredLanguage},
		},
		{
			name:    "dutch headers",
			headers: []string{"Naam", "E-mailadres", "Reactie", "Voorkeurstaal"},
			want:    []TargetField{FieldName, FieldEmail, FieldRSVPStatus, FieldPreferredLanguage},
		},
		{
			name:    "french headers",
			headers: []string{"Nom", "Courriel", "Réponse", "Langue"},
			want:    []TargetField{FieldName, FieldEmail, FieldRSVPStatus, FieldPreferredLanguage},
		},
		{
			name:    "case and whitespace ignored",
			headers: []string{"  FULL NAME ", "E-Mail"},
			want:    []TargetField{FieldName, FieldEmail},
		},
		{
			name:    "unknown headers skipped",
			headers: []string{"Table", "Name", "Dietary needs", "Email"},
			want:    []TargetField{FieldSkip, FieldName, FieldSkip, FieldEmail},
		},
		{
			name:    "first matching header wins",
			headers: []string{"Guest", "Name", "Email", "Mail"},
			want:    []TargetField{FieldName, FieldSkip, FieldEmail, FieldSkip},
		},
		{
			name:    "placeholder columns skipped",
			headers: []string{"Naam", "E-mailadres", "Column 1"},
			want:    []TargetField{FieldName, FieldEmail, FieldSkip},
		},
		{
			name:    "no headers",
			headers: []string{},
			want:    []TargetField{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoMapColumns(tt.headers)
			if len(got) != len(tt.headers) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.headers))
			}
			for i, m := range got {
				if m.Field != tt.want[i] {
					t.Errorf("header %q mapped to %q, want %q", tt.headers[i], m.Field, tt.want[i])
				}
				if m.Column != tt.headers[i] || m.ColumnIndex != i {
					t.Errorf("mapping %d = {%q, %d}, want {%q, %d}", i, m.Column, m.ColumnIndex, tt.headers[i], i)
				}
			}
		})
	}
}

func TestValidateMapping(t *testing.T) {
	tests := []struct {
		name     string
		mappings []ColumnMapping
		headers  int
		want     error
	}{
		{
			name: "name and email mapped",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 1, Field: FieldEmail},
				{Column: "Notes", ColumnIndex: 2, Field: FieldSkip},
			},
			headers: 3,
			want:    nil,
		},
		{
			name: "email missing",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 1, Field: FieldSkip},
			},
			headers: 2,
			want:    ErrMappingIncomplete,
		},
		{
			name:     "empty mapping",
			mappings: nil,
			headers:  2,
			want:     ErrMappingIncomplete,
		},
		{
			name: "field mapped twice",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 1, Field: FieldEmail},
				{Column: "Mail", ColumnIndex: 2, Field: FieldEmail},
			},
			headers: 3,
			want:    ErrInvalidMapping,
		},
		{
			name: "skip may repeat",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 1, Field: FieldEmail},
				{Column: "A", ColumnIndex: 2, Field: FieldSkip},
				{Column: "B", ColumnIndex: 3, Field: FieldSkip},
			},
			headers: 4,
			want:    nil,
		},
		{
			name: "unknown field",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 1, Field: FieldEmail},
				{Column: "Phone", ColumnIndex: 2, Field: TargetField("phone")},
			},
			headers: 3,
			want:    ErrInvalidMapping,
		},
		{
			name: "column index out of range",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: 0, Field: FieldName},
				{Column: "Email", ColumnIndex: 5, Field: FieldEmail},
			},
			headers: 2,
			want:    ErrInvalidMapping,
		},
		{
			name: "negative column index",
			mappings: []ColumnMapping{
				{Column: "Name", ColumnIndex: -1, Field: FieldName},
			},
			headers: 2,
			want:    ErrInvalidMapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMapping(tt.mappings, tt.headers)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateMapping() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateMapping() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCanProceed(t *testing.T) {
	if CanProceed(AutoMapColumns([]string{"Name", "Notes"})) {
		t.Error("CanProceed() = true without an email column")
	}
	if !CanProceed(AutoMapColumns([]string{"Notes", "Naam", "Courriel"})) {
		t.Error("CanProceed() = false with name and email mapped")
	}
}
