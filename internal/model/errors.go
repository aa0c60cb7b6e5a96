package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAttribute = errors.New("invalid attribute")
	ErrConstraint       = errors.New("constraint violation")
	ErrDuplicateUser    = errors.New("user already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMalformedDigest  = errors.New("malformed password digest")
)

// ConstraintError reports a write rejected by a uniqueness or integrity rule.
// Field is the logical field name: "email", "session_id".
type ConstraintError struct {
	Op    string
	Field string
}

func (e ConstraintError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConstraint)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConstraint, e.Field)
}

func (e ConstraintError) Unwrap() error { return ErrConstraint }

// IsConstraintOn reports whether err is a ConstraintError for the given field.
func IsConstraintOn(err error, field Field) bool {
	var ce ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Field == string(field)
}
