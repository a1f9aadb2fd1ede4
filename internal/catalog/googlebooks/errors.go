package googlebooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound    = errors.New("googlebooks: not found")
	ErrRateLimited = errors.New("googlebooks: rate limited by server")
	ErrBadRequest  = errors.New("googlebooks: bad request")
	ErrServer      = errors.New("googlebooks: server error")
	ErrNetwork     = errors.New("googlebooks: network failure")
	ErrInsecureURL = errors.New("googlebooks: base URL must use https")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // "search" or "get"
	Arg string // query or volume ID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("googlebooks %s [%s]: %v", e.Op, e.Arg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, arg string, err error) error {
	return &Error{Op: op, Arg: arg, Err: err}
}
