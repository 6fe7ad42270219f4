package web

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/go-playground/validator/v10"
)

// mappingRequest is the body of PUT .../imports/{sessionID}/mapping.
type mappingRequest struct {
	Mappings []mappingEntry `json:"mappings" validate:"required,min=1,dive"`
}

// mappingEntry mirrors core.ColumnMapping so a client can send back the
// mappings it was given. Column is informational; the service takes the
// name from the session headers.
type mappingEntry struct {
	Column      string `json:"column"`
	ColumnIndex *int   `json:"columnIndex" validate:"required,min=0"`
	Field       string `json:"field" validate:"required,oneof=name email rsvpStatus preferredLanguage skip"`
}

// Ok validates the request and returns field errors keyed by JSON path.
func (d *mappingRequest) Ok(v *validator.Validate) (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := v.Struct(d)
	if errs == nil {
		return errorMessages, true
	}

	verrs, ok := errs.(validator.ValidationErrors)
	if !ok {
		errorMessages["mappings"] = errs.Error()
		return errorMessages, false
	}
	for _, err := range verrs {
		errorMessages[fieldPath(err)] = validationMessage(err)
	}
	return errorMessages, len(errorMessages) == 0
}

// toMappings converts a validated request. Column names are filled in by
// the service from the session headers.
func (d *mappingRequest) toMappings() []core.ColumnMapping {
	out := make([]core.ColumnMapping, len(d.Mappings))
	for i, m := range d.Mappings {
		out[i] = core.ColumnMapping{ColumnIndex: *m.ColumnIndex, Field: core.TargetField(m.Field)}
	}
	return out
}

// mappingError folds field errors into a single ErrInvalidMapping.
func mappingError(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + fields[k]
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidMapping, strings.Join(parts, "; "))
}

// fieldPath turns "mappingRequest.Mappings[0].Field" into "mappings[0].field".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		if err.Kind().String() == "slice" {
			return "must not be empty"
		}
		return "must be at least " + err.Param()
	case "oneof":
		return "must be one of: " + err.Param()
	default:
		return "is invalid"
	}
}
