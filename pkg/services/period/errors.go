package period

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by Latest to a call overtaken by a newer one.
var ErrSuperseded = errors.New("request superseded by a newer one")

// InvalidWindowError reports a window or granularity that yields no
// sub-ranges to query.
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return "invalid reporting window: " + e.Reason
}

// WindowTooLargeError reports a valid window that splits into more
// sub-ranges than a single aggregation may fan out to.
type WindowTooLargeError struct {
	SubRanges int
	Limit     int
}

func (e *WindowTooLargeError) Error() string {
	return fmt.Sprintf("reporting window too large: splits into %d sub-ranges, limit is %d", e.SubRanges, e.Limit)
}
