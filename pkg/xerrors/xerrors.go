package xerrors

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"strconv"
)

// Kind classifies eigenkv errors.
type Kind int

const (
	KindInvalid Kind = iota
	KindPayloadTooLarge
	KindMalformedInput
	KindIncompleteConfirmation
	KindUnconfirmed
	KindTimeout
	KindInvalidIdentifier
	KindDeserialization
	KindRetrieval
	KindTransport
	KindNotFound
	KindCanceled
	KindInternal
)

// NoCode marks an Error that carries no network status code.
const NoCode = -1

// Error wraps an underlying error with additional metadata.
type Error struct {
	Kind Kind
	Op   string
	// Ref names the object involved: a blob identifier, request id or record name.
	Ref string
	// Code is the network status observed when the error was raised, or NoCode.
	Code int
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Kind.String()
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Ref != "" {
		base += " " + e.Ref
	}
	if e.Code != NoCode {
		base += " (status " + strconv.Itoa(e.Code) + ")"
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// String returns the human readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPayloadTooLarge:
		return "payload too large"
	case KindMalformedInput:
		return "malformed input"
	case KindIncompleteConfirmation:
		return "incomplete confirmation"
	case KindUnconfirmed:
		return "submission not confirmed"
	case KindTimeout:
		return "submission timed out"
	case KindInvalidIdentifier:
		return "invalid identifier"
	case KindDeserialization:
		return "deserialization failed"
	case KindRetrieval:
		return "retrieval failed"
	case KindTransport:
		return "transport error"
	case KindNotFound:
		return "not found"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal error"
	default:
		return "invalid"
	}
}

// Wrap annotates err with the given metadata. If err is nil, Wrap returns nil.
func Wrap(kind Kind, op, ref string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Ref: ref, Code: NoCode, Err: err}
}

// E creates a new error with the provided metadata (no underlying error).
func E(kind Kind, op, ref string) error {
	return &Error{Kind: kind, Op: op, Ref: ref, Code: NoCode}
}

// WithCode creates an error that records the network status code it observed.
func WithCode(kind Kind, op, ref string, code int) error {
	return &Error{Kind: kind, Op: op, Ref: ref, Code: code}
}

// KindOf extracts the outermost Kind from err.
func KindOf(err error) Kind {
	if err == nil {
		return KindInvalid
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, iofs.ErrNotExist),
		errors.Is(err, os.ErrNotExist):
		return KindNotFound
	case errors.Is(err, iofs.ErrInvalid):
		return KindInvalid
	default:
		return KindInternal
	}
}

// Has reports whether any Error in err's tree carries kind. Joined errors are
// searched too.
func Has(err error, kind Kind) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Kind == kind || Has(e.Err, kind)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if Has(inner, kind) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return Has(e.Unwrap(), kind)
	}
	return false
}

// CodeOf returns the status code recorded by the outermost Error carrying one.
func CodeOf(err error) (int, bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return NoCode, false
		}
		if e.Code != NoCode {
			return e.Code, true
		}
		err = e.Err
	}
	return NoCode, false
}
