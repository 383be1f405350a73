package jobprep

import "fmt"

// PrepareError wraps a failure at a specific phase of job preparation or
// cache-aware execution, mirroring execution.ExecutionError so callers can
// report which stage of the pipeline failed without string-matching.
type PrepareError struct {
	Phase string
	Err   error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("jobprep: %s: %v", e.Phase, e.Err)
}

func (e *PrepareError) Unwrap() error {
	return e.Err
}
