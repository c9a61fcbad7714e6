package vector

import "errors"

var (
	// ErrDuplicateRecord is returned when inserting a chunk id that already
	// exists in the index.
	ErrDuplicateRecord = errors.New("duplicate vector record")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)
