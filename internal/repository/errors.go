package repository

import (
	"errors"
	"fmt"
)

// ErrDuplicate is matched (via errors.Is) by every *DuplicateError.
var ErrDuplicate = errors.New("duplicate key")

// DuplicateError reports a unique constraint violation. Field names the
// offending column when the driver reports it ("email", "name", "title",
// "google_id"), and is empty otherwise.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("duplicate key: %v", e.Err)
	}
	return fmt.Sprintf("duplicate %s: %v", e.Field, e.Err)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDuplicate) true for any DuplicateError.
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// DuplicateField returns the field of a DuplicateError in err's chain,
// and whether there was one.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}
