package core

// error_messages.go maps errors to user-facing messages with short codes.
//
// User-facing failures carry a short code so a report like "IMP001" can be
// traced back to its cause without the technical error text.
//
// # Import Errors (IMP)
//
//	IMP001 - No valid rows: the CSV parsed but every row was empty or unmapped
//	IMP002 - Invalid JSON import: the file is not a JSON array of items
//
// # File Errors (FILE)
//
//	FILE001 - File too large
//	FILE002 - Could not read file (CSV parse failure)
//	FILE004 - No file provided
//
// # Validation Errors (VAL)
//
//	VAL003 - Item name and category are required (add/edit form)
//	VAL006 - Category is not one of the known categories
//
// # Item Errors (ITM)
//
//	ITM001 - Item not found
//	ITM002 - Unknown field name in a table or bulk edit
//
// # Image Errors (IMG)
//
//	IMG001 - Unsupported or undecodable image
//
// # Request Errors
//
//	REQ001 - Malformed request body
//	UPL002 - Too many imports running
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	RATE001 - Rate limited
//	STO001 - Inventory storage unavailable
//
// # Default Error (ERR000)
//
// Fallback when nothing matches; check the server log for the original error.
//
// Sentinel errors are matched with errors.Is first. Errors from other layers
// (net/http, pgx, sqlite) are then matched case-insensitively by substring,
// first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the core package.
var (
	ErrCSVUnreadable    = errors.New("could not read file")
	ErrNoValidRows      = errors.New("no valid rows found in CSV")
	ErrInvalidJSONFile  = errors.New("invalid file: expected an array of items")
	ErrItemNotFound     = errors.New("item not found")
	ErrUnknownField     = errors.New("unknown field")
	ErrNoFile           = errors.New("no file provided")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrInvalidRequest   = errors.New("invalid request body")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is consulted before the substring patterns.
var sentinelMessages = []sentinelMessage{
	{ErrCSVUnreadable, UserMessage{
		Message: "Could not read file",
		Action:  "Make sure the file is a comma-separated CSV with a header row",
		Code:    "FILE002",
	}},
	{ErrNoValidRows, UserMessage{
		Message: "No valid rows found in CSV",
		Action:  "Check that the header row names columns like Name, Category or Price",
		Code:    "IMP001",
	}},
	{ErrInvalidJSONFile, UserMessage{
		Message: "Invalid file: expected an array of items",
		Action:  "Import a file produced by the JSON export",
		Code:    "IMP002",
	}},
	{ErrItemNotFound, UserMessage{
		Message: "Item not found",
		Action:  "The item may have been deleted. Refresh and try again",
		Code:    "ITM001",
	}},
	{ErrUnknownField, UserMessage{
		Message: "Unknown field",
		Action:  "Use one of the inventory column names",
		Code:    "ITM002",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a file to upload",
		Code:    "FILE004",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ErrUnsupportedImage, UserMessage{
		Message: "Unsupported image",
		Action:  "Upload a JPEG, PNG or GIF image",
		Code:    "IMG001",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The request could not be understood",
		Action:  "Refresh the page and try again",
		Code:    "REQ001",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Another import is still running",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{ErrRequiredFields, UserMessage{
		Message: "Item name and category are required.",
		Action:  "Fill in the item name and pick a category",
		Code:    "VAL003",
	}},
	{ErrInvalidCategory, UserMessage{
		Message: "Category is not in the allowed list",
		Action:  "Pick one of the listed categories",
		Code:    "VAL006",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text from other layers to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
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
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Inventory storage is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Inventory storage is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
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
