// Package apierror defines the closed error taxonomy the payment core
// reports to callers: validation errors, resource not-found errors,
// external-connector errors passed through verbatim, and opaque internal
// errors carrying a diagnostic trail.
package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConnector  Kind = "connector"
	KindInternal   Kind = "internal"
)

// ValidationError reports a missing or invalid request field before any
// state mutation.
type ValidationError struct {
	FieldName string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid request: %s", e.Message)
	}
	return fmt.Sprintf("missing required field: %s", e.FieldName)
}

// MissingField builds a ValidationError for an absent required field.
func MissingField(name string) error {
	return &ValidationError{FieldName: name}
}

// InvalidValue builds a ValidationError for a present but unusable field.
func InvalidValue(name, reason string) error {
	return &ValidationError{FieldName: name, Message: fmt.Sprintf("%s %s", name, reason)}
}

// Resource identifies what a NotFoundError is about.
type Resource string

const (
	ResourcePayment  Resource = "payment"
	ResourceCustomer Resource = "customer"
	ResourceDispute  Resource = "dispute"
	ResourceFile     Resource = "file"
	ResourceMandate  Resource = "mandate"
)

// NotFoundError is the domain-specific translation of a storage
// "record absent" signal.
type NotFoundError struct {
	Resource Resource
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource Resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConnectorError carries a connector's own failure verbatim. It is never
// flattened into a generic error.
type ConnectorError struct {
	Connector  string
	Code       string
	Message    string
	StatusCode int
	Reason     string
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector %s returned error %s: %s", e.Connector, e.Code, e.Message)
}

// InternalError is reported to callers as a single opaque kind; the wrapped
// cause stays attached for logs.
type InternalError struct {
	Trail string
	Cause error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Trail, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Trail)
}

func (e *InternalError) Unwrap() error { return e.Cause }

// Internal wraps a cause with a diagnostic trail message.
func Internal(trail string, cause error) error {
	return &InternalError{Trail: trail, Cause: cause}
}

// KindOf classifies any error into the taxonomy; unknown errors are internal.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConnectorError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &ce):
		return KindConnector
	default:
		return KindInternal
	}
}
