package storage

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownKind is returned for table kinds the store has no bucket for.
	ErrUnknownKind = errors.New("unknown table kind")
)
