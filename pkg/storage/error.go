package storage

import (
	"errors"
	"fmt"
)

// ErrAlreadyExists is returned when an insert would violate a natural key.
var ErrAlreadyExists = errors.New("already exists")

// NotFoundError is returned when a realm or memory doesn't exist in the store.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return e.Kind + " not found"
	}

	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
