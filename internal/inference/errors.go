package inference

import "fmt"

// OverflowError aborts inference of one method. It is raised when propagation
// recurses past the update depth limit or when the fallback search meets a
// variable with no admissible candidate.
type OverflowError struct {
	Reason string
	Limit  int
}

func (e *OverflowError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%s (limit %d)", e.Reason, e.Limit)
	}
	return e.Reason
}

func newOverflowError(limit int, format string, args ...interface{}) *OverflowError {
	return &OverflowError{Reason: fmt.Sprintf(format, args...), Limit: limit}
}
