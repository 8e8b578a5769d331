package roam

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSplit is a programming error: a split was requested on a
	// node that is not a splittable leaf, or whose diamond partner cannot
	// be resolved.
	ErrInvalidSplit = errors.New("invalid split request")

	// ErrMergeSkipped means the diamond was not ready to merge. It is a
	// transient condition and the merge can be retried on a later frame.
	ErrMergeSkipped = errors.New("merge skipped")
)

// HeightSampleError reports a failed height query while splitting.
// The affected node stays a leaf.
type HeightSampleError struct {
	GridX, GridY int
	Err          error
}

func (e *HeightSampleError) Error() string {
	return fmt.Sprintf("height sample at (%d, %d): %v", e.GridX, e.GridY, e.Err)
}

func (e *HeightSampleError) Unwrap() error {
	return e.Err
}
