package dashboard

import "errors"

var (
	ErrInvalidSelector = errors.New("invalid range selector")

	// ErrInvalidRange reports a custom range with a missing or unparseable bound.
	ErrInvalidRange = errors.New("invalid custom range")

	// ErrSnapshotUnavailable marks a failed snapshot load; callers may retry.
	ErrSnapshotUnavailable = errors.New("visitor snapshot unavailable")
)
