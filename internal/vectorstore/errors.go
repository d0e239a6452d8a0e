package vectorstore

import "errors"

var (
	// ErrCollectionNotFound is returned when an operation targets a collection
	// that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned by CreateCollection when the collection
	// already exists.
	ErrCollectionExists = errors.New("collection already exists")
)
