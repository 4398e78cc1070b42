// Package errors defines the error taxonomy shared by the store, the ranker
// and the ingestion pipeline, and maps errors to process exit codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWordNotFound      = errors.New("word not found")
	ErrCorruptShard      = errors.New("corrupt shard")
	ErrDegenerateVector  = errors.New("degenerate vector")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrGenerationFailed  = errors.New("embedding generation failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStoreClosed       = errors.New("store closed")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrTimeout           = errors.New("operation timed out")
	ErrInternal          = errors.New("internal error")
)

// Exit codes returned by the command-line tools.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitData     = 4
	ExitPartial  = 5
	ExitUpstream = 6
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode returns the process exit code for err. An explicit AppError code
// wins over the sentinel mapping.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrWordNotFound):
		return ExitNotFound
	case errors.Is(err, ErrCorruptShard), errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrDegenerateVector):
		return ExitData
	case errors.Is(err, ErrGenerationFailed):
		return ExitPartial
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrTimeout):
		return ExitUpstream
	default:
		return ExitFailure
	}
}
