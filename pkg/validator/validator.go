// Package validator provides declarative, composable validation rules.
//
// A Rule pairs a check with the error reported when it fails. Apply runs
// rules and collects failures into ValidationErrors:
//
//	err := validator.Apply(
//		validator.ValidEmail("email", req.Email).WithMessage("Please enter a valid email address"),
//		validator.MinLenString("password", req.Password, 8),
//	)
package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is one failed rule.
type ValidationError struct {
	Field          string
	Message        string
	TranslationKey string
}

// ValidationErrors is the error type returned by Apply.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, e := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (ve ValidationErrors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Get returns every message reported for field.
func (ve ValidationErrors) Get(field string) []string {
	var msgs []string
	for _, e := range ve {
		if e.Field == field {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// First returns the first message for field, or "".
func (ve ValidationErrors) First(field string) string {
	for _, e := range ve {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Rule is a single check.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// WithMessage replaces the user-facing message of a rule.
func (r Rule) WithMessage(msg string) Rule {
	r.Error.Message = msg
	return r
}

// Apply runs every rule and returns ValidationErrors, or nil.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// FirstPerField is like Apply but keeps only the first failure per field,
// which matches how forms show one message under each input.
func FirstPerField(rules ...Rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if errs.Has(r.Error.Field) {
			continue
		}
		if !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the ValidationErrors wrapped in err, or nil.
func Extract(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
