package store

import "errors"

// ErrNotFound is returned when an operation requires a record that doesn't
// exist. Plain lookups report absence as (nil, nil) instead.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "record not found"
	}

	return "record not found: " + e.ID
}

var (
	// ErrBackendUnavailable wraps connectivity or configuration failures at
	// backend construction time.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedRecord wraps stored data that cannot be decoded into a
	// record.
	ErrMalformedRecord = errors.New("malformed stored record")
)
