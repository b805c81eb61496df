package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure for the caller
type Kind string

const (
	KindInput             Kind = "input"
	KindPreprocessing     Kind = "preprocessing"
	KindBackend           Kind = "backend"
	KindMalformedResponse Kind = "malformed_response"
	KindRender            Kind = "render"
)

// Error is a classified failure. Raw carries the backend text for
// malformed responses so it can be surfaced instead of discarded.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Raw     string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func InputError(message string, err error) *Error {
	return NewError(KindInput, message, err)
}

func PreprocessingError(message string, err error) *Error {
	return NewError(KindPreprocessing, message, err)
}

func BackendError(message string, err error) *Error {
	return NewError(KindBackend, message, err)
}

// MalformedResponseError keeps the raw backend text for diagnosis.
func MalformedResponseError(message string, raw string, err error) *Error {
	e := NewError(KindMalformedResponse, message, err)
	e.Raw = raw
	return e
}

func RenderError(message string, err error) *Error {
	return NewError(KindRender, message, err)
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
