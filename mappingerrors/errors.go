/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package mappingerrors defines the error kinds raised by the mappings
// model, algebra, remapper, and rewriter. Programming errors
// (ArityMismatch, NamespaceNotFound on preconditions) are meant to be
// detected at the boundary and surfaced immediately; parse errors
// inside mixin-annotation string values are soft and never reach this
// package (the caller logs and passes the original string through).
package mappingerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the error categories from the design's error
// handling policy.
type Kind int

const (
	// NamespaceNotFound is raised by namespace_index and by algebra
	// preconditions that reference a namespace label that does not
	// exist.
	NamespaceNotFound Kind = iota
	// ArityMismatch is raised by ReorderNamespaces when the supplied
	// order's length disagrees with the namespace count, by
	// Mappings.Validate when an entity's name count does, and by
	// Join/JoinAll for empty inputs. RenameNamespaces takes an
	// old->new map and does not raise it: a key naming no namespace
	// gives NamespaceNotFound.
	ArityMismatch
	// JoinMissingEntity is raised only when Join is called with
	// RequireMatch true and a class of a (or a field or method of a
	// matched class) has no counterpart in b under the intermediate
	// namespace. Classes present only in b are not reported.
	JoinMissingEntity
	// DescriptorParse is raised by the descriptor package when a type
	// or method descriptor, or a owner.name(desc)ret target string,
	// is malformed.
	DescriptorParse
	// UnsupportedFormat marks input in a format this code does not
	// understand: the classfile codec raises it for a bad magic
	// number, an unknown constant-pool tag, opcode or element_value
	// tag, or an invalid method-handle kind, and a parser layer can
	// raise it too, so callers have one error taxonomy regardless of
	// which layer raised it.
	UnsupportedFormat
	// IoError wraps a failure surfaced by a classpath loader; the
	// classfile codec and RewriteJar also raise it for truncated or
	// inconsistent class data and for jar read/write failures.
	IoError
)

func (k Kind) String() string {
	switch k {
	case NamespaceNotFound:
		return "NamespaceNotFound"
	case ArityMismatch:
		return "ArityMismatch"
	case JoinMissingEntity:
		return "JoinMissingEntity"
	case DescriptorParse:
		return "DescriptorParse"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case IoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned for every Kind above. It
// carries a message and, for DescriptorParse, the offending substring
// and byte offset per spec §4.A.
type Error struct {
	Kind   Kind
	Msg    string
	Offset int    // byte offset into the offending string, -1 if not applicable
	Substr string // offending substring, empty if not applicable
	cause  error
}

func (e *Error) Error() string {
	if e.Substr != "" {
		return fmt.Sprintf("%s: %s (at %q, offset %d)", e.Kind, e.Msg, e.Substr, e.Offset)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind-tagged error with a captured stack trace (via
// github.com/pkg/errors), mirroring Jacobin's cfe() capturing the
// call site before returning.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg, Offset: -1, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a Kind and a stack trace to an existing error.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Offset: -1, cause: errors.Wrap(cause, msg)}
}

// DescriptorParseError builds the DescriptorParse error carrying the
// offending substring and byte offset required by spec §4.A.
func DescriptorParseError(desc, substr string, offset int) error {
	return &Error{
		Kind:   DescriptorParse,
		Msg:    "malformed descriptor: " + desc,
		Substr: substr,
		Offset: offset,
		cause:  errors.New("malformed descriptor"),
	}
}

// Is reports whether err is a mappingerrors.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
