// Package syncerr defines the error taxonomy shared by the local store, the
// remote gateway and the sync engine. Instead of a class hierarchy there is a
// single tagged error type: a Kind enum plus a structured context map and an
// explicit cause for chaining.
package syncerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for callers that dispatch on failure class
// rather than on message text.
type Kind int

const (
	// KindUnknown is the zero value; real errors should carry a concrete kind.
	KindUnknown Kind = iota
	// KindValidation marks bad input. Nothing is written to storage.
	KindValidation
	// KindNotFound marks a referenced entity missing from the local store.
	KindNotFound
	// KindNetworkUnavailable marks operations refused because the device is
	// offline, or transport-level failures reaching the backend.
	KindNetworkUnavailable
	// KindRemoteRejected marks a non-2xx response from the backend. The HTTP
	// status code is stored in the context under "status".
	KindRemoteRejected
	// KindStorage marks a local storage transaction failure. Fatal, surfaced.
	KindStorage
	// KindConflict marks a local uniqueness violation (duplicate ID upsert).
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindRemoteRejected:
		return "remote_rejected"
	case KindStorage:
		return "storage"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is the tagged error variant used across the sync stack.
type Error struct {
	Kind    Kind
	Op      string         // Operation that failed, e.g. "program.create"
	Context map[string]any // Structured details: ids, status codes, field names
	Err     error          // Underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on kind: errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error with a kind and operation name.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap attaches a kind and operation to an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// With adds one context entry, returning the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 2)
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the kind from anywhere in err's chain.
// Returns KindUnknown if no *Error is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCode extracts the remote HTTP status from a KindRemoteRejected error,
// or 0 if absent.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	if v, ok := e.Context["status"]; ok {
		if code, ok := v.(int); ok {
			return code
		}
	}
	return 0
}
