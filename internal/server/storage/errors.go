package storage

import "errors"

// Common storage errors
var (
	// ErrProjectNotFound indicates that the project is not registered for the user
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidSyncData indicates that stored bookkeeping cannot be decoded
	ErrInvalidSyncData = errors.New("invalid sync data")
)
