package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/cmrt/mir"
)

// Runtime errors. Faults raised while a program runs wrap one of these.
var (
	ErrMissingMethod   = errors.New("method not found in method table")
	ErrBadBlock        = errors.New("dispatch to an unknown block")
	ErrUnreachable     = errors.New("unreachable block executed")
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrDivideByZero    = errors.New("integer division by zero")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoField         = errors.New("no such field")
	ErrNotABox         = errors.New("dereference of a non-box value")
	ErrDanglingBox     = errors.New("box refers to an unallocated slot")
	ErrNotAddressable  = errors.New("address of a non-addressable place")
	ErrTypeMismatch    = errors.New("operand type mismatch")
	ErrBadLocal        = errors.New("undeclared local")
	ErrUnknownVTable   = errors.New("unknown vtable")
	ErrUnknownType     = errors.New("unknown type")
	ErrMalformed       = errors.New("malformed instruction")
	ErrStackOverflow   = errors.New("call depth exceeded")
	ErrBusy            = errors.New("machine is already running")
)

// Fault is a fatal runtime error. It is raised with panic inside the
// dispatcher and turned into an error by Machine.Call. Func and Block
// locate the innermost activation that was running.
type Fault struct {
	Err    error
	Func   string
	Block  mir.BlockID
	Detail string
}

func (f *Fault) Error() string {
	msg := f.Err.Error()
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Func != "" {
		return fmt.Sprintf("%s (in %s at bb%d)", msg, f.Func, f.Block)
	}
	return msg
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// raise panics with a Fault wrapping err.
func raise(err error, format string, args ...any) {
	panic(&Fault{Err: err, Detail: fmt.Sprintf(format, args...)})
}
