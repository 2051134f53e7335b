package commands

import "fmt"

// ExitError carries a process exit code out of a command. Err may be nil
// when the report itself already explained the failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exit code %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// usageError fails a command before any analysis starts.
func usageError(err error) error {
	return NewExitError(1, err)
}
