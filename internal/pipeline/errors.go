package pipeline

import "fmt"

// PermanentError marks a job failure that retrying cannot fix, such as
// an undetectable log format. The worker drops jobs failing this way
// instead of spending the retry budget on them.
type PermanentError struct {
	Cause error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure: %v", e.Cause)
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}
