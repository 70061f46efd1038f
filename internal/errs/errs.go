// Package errs defines the error conditions surfaced by the page editor.
//
// Every failure that crosses a component boundary (page model, compositor,
// export pipeline, HTTP API) is an *Error carrying a Kind. Collaborators
// return plain wrapped errors; the owning component classifies them once.
//
//	err := errs.New(errs.SelectionInvalid, "select 2 to 4 pages to merge")
//	if errs.Is(err, errs.SelectionInvalid) {
//	    // re-prompt, nothing was mutated
//	}
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error condition.
type Kind string

const (
	// SourceUnreadable: the input cannot be parsed or decoded. Fatal to the session.
	SourceUnreadable Kind = "SOURCE_UNREADABLE"
	// SelectionInvalid: a page model precondition on the selection was violated.
	SelectionInvalid Kind = "SELECTION_INVALID"
	// PageRenderFailed: rasterizing or embedding one page failed.
	PageRenderFailed Kind = "PAGE_RENDER_FAILED"
	// CompositorPrecondition: the compositor got an image count outside 2..4.
	CompositorPrecondition Kind = "COMPOSITOR_PRECONDITION"

	InvalidConfig Kind = "INVALID_CONFIG"
	NotFound      Kind = "NOT_FOUND"
)

// NoPosition marks an error that is not tied to a page.
const NoPosition = -1

// Error is a classified failure with an optional page position and cause.
type Error struct {
	Kind     Kind
	Message  string
	Position int // 0-based page position, NoPosition if not page specific
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Position != NoPosition {
		msg = fmt.Sprintf("page %d: %s", e.Position+1, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: NoPosition}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Position: NoPosition, Cause: cause}
}

// PageFailed reports a PageRenderFailed condition for the page at position.
func PageFailed(position int, cause error) *Error {
	return &Error{Kind: PageRenderFailed, Message: "render failed", Position: position, Cause: cause}
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PositionOf returns the page position attached to err, or NoPosition.
func PositionOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Position
	}
	return NoPosition
}

// IsRecoverable reports whether the caller can simply re-prompt.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case SelectionInvalid, InvalidConfig:
		return true
	}
	return false
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case SelectionInvalid, InvalidConfig:
		return http.StatusBadRequest
	case SourceUnreadable:
		return http.StatusUnprocessableEntity
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
