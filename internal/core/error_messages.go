package core

// error_messages.go maps technical errors to messages users can act on.
//
// # Error Codes Reference
//
// Codes are quoted by users when they report a problem, so they never change
// meaning once assigned.
//
// # CSV Errors (CSV001-CSV099)
//
//	CSV001 - Empty file: The CSV file has no data rows
//	         Patterns: "empty csv file"
//
//	CSV002 - Invalid CSV: The file could not be parsed
//	         Patterns: "invalid csv"
//
//	CSV003 - Encoding error: The file is not UTF-8 text
//	         Patterns: "encoding error"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "file too large", "request body too large"
//
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Busy: Too many imports in progress
//	         Patterns: "too many imports"
//
// # Table Errors (ROW001, COL001-COL003)
//
//	ROW001 - Row not found
//	COL001 - Column not found
//	COL002 - Column already exists
//	COL003 - Column label is blank or reserved ("invalid column label")
//
// # Storage Errors (STO001)
//
//	STO001 - The table could not be saved or loaded
//	         Patterns: "storage unavailable"
//
// # Request Errors (REQ001-REQ003, RATE001)
//
//	REQ001 - Request cancelled ("context canceled")
//	REQ002 - Request timed out ("context deadline exceeded")
//	REQ003 - Malformed request body ("invalid request")
//	RATE001 - Too many requests ("rate limit")
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Errors reported by the table's outer surfaces (HTTP, CLI) when a Table
// method returns false.
var (
	ErrRowNotFound     = errors.New("row not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrInvalidColumn   = errors.New("invalid column label")
	ErrDuplicateColumn = errors.New("column already exists")
	ErrNoFile          = errors.New("no file provided")
	ErrStorage         = errors.New("storage unavailable")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// CSV content
	{
		pattern: "empty csv file",
		msg: UserMessage{
			Message: "Empty CSV file",
			Action:  "Add at least one data row below the header",
			Code:    "CSV001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check for unbalanced quotes and save the file as comma-separated",
			Code:    "CSV002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File is not a text CSV",
			Action:  "Export the sheet as CSV (UTF-8) and try again",
			Code:    "CSV003",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum import size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum import size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE004",
		},
	},

	// Import concurrency
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},

	// Table references
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "Row not found",
			Action:  "The row may have been deleted. Refresh the table",
			Code:    "ROW001",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found",
			Action:  "The column may have been removed. Refresh the table",
			Code:    "COL001",
		},
	},
	{
		pattern: "invalid column label",
		msg: UserMessage{
			Message: "Column name cannot be used",
			Action:  "Choose a non-blank name other than \"id\"",
			Code:    "COL003",
		},
	},
	{
		pattern: "column already exists",
		msg: UserMessage{
			Message: "A column with this name already exists",
			Action:  "Choose a different column name",
			Code:    "COL002",
		},
	},

	// Storage
	{
		pattern: "storage unavailable",
		msg: UserMessage{
			Message: "The table could not be saved or loaded",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},

	// Requests
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(ErrEmptyInput)
//	// msg.Code == "CSV001"
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

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
