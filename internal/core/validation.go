package core

// validation.go checks items submitted through the add/edit form. Only the
// form path validates: CSV imports and table edits accept anything.

import (
	"errors"
	"slices"
	"strings"
)

// Form validation failures.
var (
	ErrRequiredFields  = errors.New("required field missing: item name and category")
	ErrInvalidCategory = errors.New("invalid enum: category")
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Canonical field name
	Value   string // The rejected value
	Message string // Human-readable error message
	err     error
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func (e ValidationError) Unwrap() error {
	return e.err
}

// ValidationErrors collects every problem found in one form submission.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// ValidateItemForm checks the fields the add/edit form requires.
// Returns nil or a ValidationErrors value.
func ValidateItemForm(item Item) error {
	var errs ValidationErrors

	name := strings.TrimSpace(item.Name)
	category := strings.TrimSpace(item.Category)

	if name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "Item name and category are required.",
			err:     ErrRequiredFields,
		})
	}

	switch {
	case category == "":
		errs = append(errs, ValidationError{
			Field:   "category",
			Message: "Item name and category are required.",
			err:     ErrRequiredFields,
		})
	case !slices.Contains(Categories, category):
		errs = append(errs, ValidationError{
			Field:   "category",
			Value:   item.Category,
			Message: "value must be one of: " + strings.Join(Categories, ", "),
			err:     ErrInvalidCategory,
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NewItemFromForm validates a form submission and gives it an identity.
func NewItemFromForm(form Item, id string, createdAt int64) (Item, error) {
	if err := ValidateItemForm(form); err != nil {
		return Item{}, err
	}
	form.ID = id
	form.CreatedAt = createdAt
	return form, nil
}

// MergeEdit applies an edit form onto an existing item. Identity and
// creation time always come from the existing item.
func MergeEdit(existing, form Item) (Item, error) {
	if err := ValidateItemForm(form); err != nil {
		return Item{}, err
	}
	form.ID = existing.ID
	form.CreatedAt = existing.CreatedAt
	return form, nil
}
