package detection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNoDetection is matched by errors returned when an Element is queried
	// before a valid detection has been set
	ErrNoDetection = errors.New("no detection")
	// ErrInvalidDetection is matched by errors returned when SetDetection is
	// given an invalid bounding box or classification
	ErrInvalidDetection = errors.New("invalid detection")
)

// NoDetectionError is returned by Element queries when no detection has been
// set yet.  It indicates there is no result, not that something is broken
type NoDetectionError struct {
	UUID   uuid.UUID
	Reason string
}

// Error returns the error message
func (e *NoDetectionError) Error() string {
	return fmt.Sprintf("%s for in-memory detection with UUID %s", e.Reason, e.UUID)
}

// Is allows errors.Is(err, ErrNoDetection) to match
func (e *NoDetectionError) Is(target error) bool {
	return target == ErrNoDetection
}

// ValidationError is returned by SetDetection when the given values are
// rejected
type ValidationError struct {
	Reason string
	Err    error
}

// Error returns the error message
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Is allows errors.Is(err, ErrInvalidDetection) to match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDetection
}

// Unwrap returns the underlying cause
func (e *ValidationError) Unwrap() error {
	return e.Err
}
