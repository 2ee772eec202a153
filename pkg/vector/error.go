package vector

import "errors"

var (
	// ErrDimensions is returned when a vector's width doesn't match the
	// collection.
	ErrDimensions = errors.New("embedding dimensions mismatch")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)
