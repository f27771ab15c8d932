package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies service errors for transport mapping.
type ErrorKind string

const (
	KindInvalidInput           ErrorKind = "invalid_input"
	KindNotFound               ErrorKind = "not_found"
	KindForbidden              ErrorKind = "forbidden"
	KindConflict               ErrorKind = "conflict"
	KindExternalServiceFailure ErrorKind = "external_service_failure"
)

// ServiceError is an error a caller can act on. Extra carries structured
// detail such as missing ids or per-field validation messages.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Extra   map[string]any
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status.
func (e *ServiceError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalServiceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidInput reports malformed input. fields maps a field name to its problems.
func NewInvalidInput(message string, fields map[string][]string) *ServiceError {
	extra := map[string]any{}
	if len(fields) > 0 {
		extra["fields"] = fields
	}
	return &ServiceError{Kind: KindInvalidInput, Message: message, Extra: extra}
}

// NewNotFound reports a missing resource, e.g. NewNotFound("Product", extra) → "Product not found".
func NewNotFound(resource string, extra map[string]any) *ServiceError {
	if extra == nil {
		extra = map[string]any{}
	}
	return &ServiceError{Kind: KindNotFound, Message: resource + " not found", Extra: extra}
}

func NewForbidden(message string) *ServiceError {
	return &ServiceError{Kind: KindForbidden, Message: message, Extra: map[string]any{}}
}

func NewConflict(resource, identifier string) *ServiceError {
	msg := resource + " already exists"
	if identifier != "" {
		msg = fmt.Sprintf("%s with this %s already exists", resource, identifier)
	}
	return &ServiceError{Kind: KindConflict, Message: msg, Extra: map[string]any{}}
}

func NewExternalServiceFailure(service string, err error) *ServiceError {
	return &ServiceError{Kind: KindExternalServiceFailure, Message: service + " unavailable", Extra: map[string]any{}, Err: err}
}

// AsServiceError unwraps err into a *ServiceError if it carries one.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	se, ok := AsServiceError(err)
	return ok && se.Kind == kind
}
