package zoning

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every error New returns for an invalid
	// configuration.
	ErrConfiguration = errors.New("zoning: invalid configuration")

	// ErrUnknownClass matches *UnknownClassError with errors.Is.
	ErrUnknownClass = errors.New("zoning: unknown class")

	// ErrUnmatchedDetection means no tracked object corresponds to a detection.
	ErrUnmatchedDetection = errors.New("zoning: detection has no tracked object")

	// ErrMissingHistory means a tracked object has fewer than two centroids.
	ErrMissingHistory = errors.New("zoning: tracked object has no centroid history")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// UnknownClassError reports a detection whose class index is not in the
// catalog. It fails the whole frame.
type UnknownClassError struct {
	ClassIndex int
	Detection  int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("zoning: detection %d has class index %d which is not in the class catalog", e.Detection, e.ClassIndex)
}

func (e *UnknownClassError) Is(target error) bool {
	return target == ErrUnknownClass
}
