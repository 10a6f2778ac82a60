// Package dcerr defines the error kinds shared by the directory client, the
// domain tool runner, the DNS topology functions and the presentation tiers.
package dcerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure independently of where it originated.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound reports an absent user, group, zone or record.
	KindNotFound
	// KindAlreadyExists reports a creation attempt on a present object.
	KindAlreadyExists
	// KindTransport reports an unreachable directory or a protocol failure.
	KindTransport
	// KindToolInvocation reports a failed domain tool process or a failed
	// post-condition check after the process ran.
	KindToolInvocation
	// KindPrecondition reports a programming or configuration error such as
	// a hostname that does not belong to the claimed zone.
	KindPrecondition
)

// String returns the kind name used in log fields and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindTransport:
		return "transport"
	case KindToolInvocation:
		return "tool_invocation"
	case KindPrecondition:
		return "precondition_violation"
	default:
		return "unknown"
	}
}

// Error is the error type carried across package boundaries.
type Error struct {
	Kind   Kind
	Op     string // operation, e.g. "add_group" or "ip_to_reverse_label"
	Object string // user name, group name, DN, zone or record identifier
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Object != "" {
		fmt.Fprintf(&b, " [%s]", e.Object)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so that sentinel comparisons such as
// errors.Is(err, &Error{Kind: KindNotFound}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Object == ""
}

func newError(kind Kind, op, object string, err error, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Object: object, Detail: detail, Err: err}
}

// NotFound creates a KindNotFound error.
func NotFound(op, object string) *Error {
	return newError(KindNotFound, op, object, nil, "")
}

// AlreadyExists creates a KindAlreadyExists error.
func AlreadyExists(op, object string) *Error {
	return newError(KindAlreadyExists, op, object, nil, "")
}

// Transport wraps a directory failure.
func Transport(op, object string, err error) *Error {
	return newError(KindTransport, op, object, err, "")
}

// ToolInvocation wraps a domain tool failure.
func ToolInvocation(op, object string, err error, format string, args ...any) *Error {
	return newError(KindToolInvocation, op, object, err, format, args...)
}

// Precondition creates a KindPrecondition error.
func Precondition(op, object, format string, args ...any) *Error {
	return newError(KindPrecondition, op, object, nil, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }
func IsTransport(err error) bool     { return KindOf(err) == KindTransport }
func IsToolInvocation(err error) bool {
	return KindOf(err) == KindToolInvocation
}
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
