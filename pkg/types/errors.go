package types

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a lookup matched no row. It is data-level
// absence, not a daemon fault, and callers must handle it separately
// from internal errors.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies store and protocol failures
type ErrorKind int

const (
	// KindIO means the persistence layer could not be opened or its
	// query set could not be prepared. Fatal at store construction.
	KindIO ErrorKind = iota

	// KindInternal means a query or transaction failed for a reason
	// other than absence of data: constraint violation, transaction
	// state violation, decode failure.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified failure carrying its underlying cause
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IOError wraps err as a KindIO failure for operation op
func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// InternalError wraps err as a KindInternal failure for operation op
func InternalError(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// IsInternal reports whether err is a KindInternal failure
func IsInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInternal
}

// IsIO reports whether err is a KindIO failure
func IsIO(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindIO
}
