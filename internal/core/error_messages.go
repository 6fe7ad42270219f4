package core

// error_messages.go maps technical errors to messages a couple planning
// their wedding can act on, each with a code they can quote to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the file is over the upload limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Unsupported format: not an .xlsx or .csv file
//	          Patterns: "unsupported file format"
//	FILE003 - Unreadable file: the file could not be parsed
//	          Patterns: "unreadable file"
//	FILE004 - No file: no file was attached
//	          Patterns: "no file provided"
//	FILE005 - Empty file: no header row found
//	          Patterns: "empty file"
//	FILE006 - No data rows: header but no guests
//	          Patterns: "no data rows"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Incomplete mapping: name or email column not chosen
//	         Patterns: "mapping incomplete"
//	MAP002 - Invalid mapping: unknown field, bad column or field used twice
//	         Patterns: "invalid mapping"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Session expired: the import session is gone
//	         Patterns: "import session not found"
//	IMP002 - Wrong step: the action does not fit the current step
//	         Patterns: "not at the expected step"
//	IMP003 - Nothing to import: every row has errors
//	         Patterns: "no valid rows"
//
// # Guest Backend Errors (API001-API099, DB001-DB099)
//
//	API001 - Not authorized: the wedding API rejected the credentials
//	         Patterns: "status 401", "status 403"
//	API002 - Wedding not found: the wedding API does not know the wedding
//	         Patterns: "status 404"
//	API003 - Guest service error: any other wedding API failure
//	         Patterns: "wedding api"
//	DB001  - Guest store unavailable: the database could not be reached
//	         Patterns: "connection refused", "connection reset"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many imports submitting at once
//	         Patterns: "too many concurrent submits"
//	UPL002 - Request cancelled
//	         Patterns: "context canceled"
//	UPL003 - Request timeout
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Rate Limiting (RATE001) and Default (ERR000)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//	ERR000  - Unknown error; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference for support
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file is larger than 5 MB",
			Action:  "Remove unused sheets or columns, or split the guest list into two files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file is larger than 5 MB",
			Action:  "Remove unused sheets or columns, or split the guest list into two files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Save your guest list as .xlsx or .csv and upload it again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unreadable file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Open it in your spreadsheet app, save it again and retry, or start from the template",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose an .xlsx or .csv file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Add a header row and at least one guest, then upload again",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has headers but no guests",
			Action:  "Add one guest per row under the header row",
			Code:    "FILE006",
		},
	},

	// Mapping errors
	{
		pattern: "mapping incomplete",
		msg: UserMessage{
			Message: "Name and email columns are required",
			Action:  "Choose which columns hold the guest name and email",
			Code:    "MAP001",
		},
	},
	{
		pattern: "invalid mapping",
		msg: UserMessage{
			Message: "The column mapping is not valid",
			Action:  "Map each field to one column only and try again",
			Code:    "MAP002",
		},
	},

	// Import errors
	{
		pattern: "import session not found",
		msg: UserMessage{
			Message: "This import has expired",
			Action:  "Upload your file again to start a new import",
			Code:    "IMP001",
		},
	},
	{
		pattern: "not at the expected step",
		msg: UserMessage{
			Message: "This step is not available yet",
			Action:  "Go back and finish the previous step first",
			Code:    "IMP002",
		},
	},
	{
		pattern: "no valid rows",
		msg: UserMessage{
			Message: "There are no valid guests to import",
			Action:  "Fix the highlighted rows in your file and upload it again",
			Code:    "IMP003",
		},
	},

	// Guest backend errors
	{
		pattern: "status 401",
		msg: UserMessage{
			Message: "You are not signed in to the wedding planner",
			Action:  "Sign in again and retry the import",
			Code:    "API001",
		},
	},
	{
		pattern: "status 403",
		msg: UserMessage{
			Message: "You do not have access to this wedding",
			Action:  "Ask the wedding owner to give you access",
			Code:    "API001",
		},
	},
	{
		pattern: "status 404",
		msg: UserMessage{
			Message: "The wedding could not be found",
			Action:  "Check that you are importing into the right wedding",
			Code:    "API002",
		},
	},
	{
		pattern: "too many concurrent submits",
		msg: UserMessage{
			Message: "Many imports are running right now",
			Action:  "Wait a moment and submit again; your preview is kept",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Please try again; your preview is kept",
			Code:    "UPL003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Please try again; your preview is kept",
			Code:    "UPL003",
		},
	},
	{
		pattern: "wedding api",
		msg: UserMessage{
			Message: "The guest service could not complete the request",
			Action:  "Please try again in a few moments",
			Code:    "API003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The guest store is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The guest store is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Unmatched errors get the ERR000 fallback; nil gives the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// String renders "Message (Code: XXX). Action" for plain-text clients.
func (m UserMessage) String() string {
	if m.Message == "" {
		return ""
	}
	if m.Action == "" {
		return fmt.Sprintf("%s (Code: %s)", m.Message, m.Code)
	}
	return fmt.Sprintf("%s (Code: %s). %s", m.Message, m.Code, m.Action)
}

// UserError pairs a technical error with its user message. Expected is
// false when no pattern matched and the generic message was used, which
// usually means a bug rather than bad input.
type UserError struct {
	Technical error
	User      UserMessage
	Expected  bool
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err; it returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	msg := MapError(err)
	return &UserError{Technical: err, User: msg, Expected: msg.Code != defaultMessage.Code}
}
