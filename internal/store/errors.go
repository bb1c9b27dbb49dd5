package store

import "errors"

var (
	// ErrStorageUnavailable marks a database that could not be opened or
	// prepared at construction time. A Store is never returned alongside it.
	ErrStorageUnavailable = errors.New("store: storage unavailable")

	// ErrMetadataEncoding marks a metadata mapping that cannot cross the
	// JSON boundary in either direction.
	ErrMetadataEncoding = errors.New("store: metadata encoding")
)
