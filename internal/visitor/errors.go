package visitor

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEvent = errors.New("duplicate event")

	ErrInvalidEventID = errors.New("invalid event id")

	ErrInvalidTimestamp = errors.New("invalid timestamp")

	ErrInvalidRequest = errors.New("invalid request")
)

func fieldTooLong(field string, max int) error {
	return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrInvalidRequest, field, max)
}
