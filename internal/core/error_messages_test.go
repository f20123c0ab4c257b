package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped csv parse failure",
			err:         fmt.Errorf("%w: record on line 3: wrong number of fields", ErrCSVUnreadable),
			wantCode:    "FILE002",
			wantMessage: "Could not read file",
		},
		{
			name:        "no valid rows",
			err:         ErrNoValidRows,
			wantCode:    "IMP001",
			wantMessage: "No valid rows found in CSV",
		},
		{
			name:        "json import not an array",
			err:         ErrInvalidJSONFile,
			wantCode:    "IMP002",
			wantMessage: "Invalid file: expected an array of items",
		},
		{
			name:        "item not found",
			err:         fmt.Errorf("update %q: %w", "abc", ErrItemNotFound),
			wantCode:    "ITM001",
			wantMessage: "Item not found",
		},
		{
			name:        "form validation",
			err:         ValidateItemForm(Item{}),
			wantCode:    "VAL003",
			wantMessage: "Item name and category are required.",
		},
		{
			name:        "malformed body",
			err:         fmt.Errorf("%w: unexpected EOF", ErrInvalidRequest),
			wantCode:    "REQ001",
			wantMessage: "The request could not be understood",
		},
		{
			name:        "too many imports",
			err:         ErrTooManyImports,
			wantCode:    "UPL002",
			wantMessage: "Another import is still running",
		},
		{
			name:        "body limit from net/http",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode:    "STO001",
			wantMessage: "Inventory storage is unavailable",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("CONTEXT CANCELED"),
			wantCode:    "UPL004",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoValidRows)

	expected := "No valid rows found in CSV (Code: IMP001). Check that the header row names columns like Name, Category or Price"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "sentinel error is user facing",
			err:  ErrItemNotFound,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
