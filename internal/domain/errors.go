package domain

import (
	"context"
	"errors"
)

// Kind is a stable error tag that crosses the API boundary.
// Stack traces never do.
type Kind string

const (
	KindInvalidInput              Kind = "invalid_input"
	KindNotFound                  Kind = "not_found"
	KindConflict                  Kind = "conflict"
	KindStorage                   Kind = "storage_error"
	KindEmbeddingUnavailable      Kind = "embedding_unavailable"
	KindCategorizationUnavailable Kind = "categorization_unavailable"
	KindExtractionUnavailable     Kind = "extraction_unavailable"
	KindTimeout                   Kind = "timeout"
	KindCanceled                  Kind = "canceled"
	KindOverloaded                Kind = "overloaded"
	KindInternal                  Kind = "internal"
)

// Error carries a kind tag, a human message, and an optional cause chain.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// E builds an error with a kind and message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapErr attaches a kind and message to a cause.
func WrapErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from an error chain. Context errors map to their
// kinds; anything untagged is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
