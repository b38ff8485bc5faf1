package pstgo

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/pstgo/internal/ltp"
	"github.com/hupe1980/pstgo/internal/ndb"
	"github.com/hupe1980/pstgo/internal/rtf"
)

var (
	// ErrFormat is returned when the header is not a supported PST or OST
	// header. It is fatal for the whole file.
	ErrFormat = errors.New("unsupported file format")

	// ErrCorrupt is returned when a structure is internally inconsistent.
	// It is scoped to the element being decoded; enumeration of siblings
	// continues.
	ErrCorrupt = errors.New("corrupt data")

	// ErrNotFound is returned when a node, row or property is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation is returned on API misuse.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidState is returned when an element outlives the file
	// generation it was read in. It matches ErrInvalidOperation.
	ErrInvalidState = fmt.Errorf("%w: element used after Clear or Close", ErrInvalidOperation)

	// ErrIO is returned when the byte source fails. Reads are not retried.
	ErrIO = errors.New("i/o error")
)

// ErrorKind classifies an Error.
type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindFormat
	ErrorKindCorrupt
	ErrorKindNotFound
	ErrorKindInvalidOperation
	ErrorKindInvalidState
	ErrorKindIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindFormat:
		return "format"
	case ErrorKindCorrupt:
		return "corrupt"
	case ErrorKindNotFound:
		return "not found"
	case ErrorKindInvalidOperation:
		return "invalid operation"
	case ErrorKindInvalidState:
		return "invalid state"
	case ErrorKindIO:
		return "io"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorKindFormat:
		return ErrFormat
	case ErrorKindCorrupt:
		return ErrCorrupt
	case ErrorKindNotFound:
		return ErrNotFound
	case ErrorKindInvalidOperation:
		return ErrInvalidOperation
	case ErrorKindInvalidState:
		return ErrInvalidState
	case ErrorKindIO:
		return ErrIO
	default:
		return nil
	}
}

// Error is the error type returned by the public API.
//
// errors.Is matches both the sentinel of Kind and the wrapped cause.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, e.g. "folder.messages".
	Op string
	// NID is the node involved, 0 if none.
	NID uint32
	Err error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.NID != 0 {
		msg += fmt.Sprintf(" nid 0x%X", e.NID)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": " + e.Kind.String()
}

// Unwrap returns the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind ErrorKind, op string, nid ndb.NID, err error) *Error {
	return &Error{Kind: kind, Op: op, NID: uint32(nid), Err: err}
}

// kindOf classifies errors of the internal packages.
func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidState):
		return ErrorKindInvalidState
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ltp.ErrType):
		return ErrorKindInvalidOperation
	case errors.Is(err, ndb.ErrFormat):
		return ErrorKindFormat
	case errors.Is(err, ndb.ErrIO), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindIO
	case errors.Is(err, ndb.ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ndb.ErrCorrupt), errors.Is(err, rtf.ErrCorrupt), errors.Is(err, rtf.ErrChecksum):
		return ErrorKindCorrupt
	default:
		return ErrorKindUnknown
	}
}

// translateError converts internal errors into *Error at the public
// boundary. Errors that already are *Error pass through unchanged.
func translateError(op string, nid ndb.NID, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return newError(kindOf(err), op, nid, err)
}
