package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes understood by the HTTP error middleware.
const (
	CodeMalformedInput     = "MALFORMED_INPUT"
	CodeUnauthorizedDomain = "UNAUTHORIZED_DOMAIN"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeTransport          = "TRANSPORT_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewMalformedInput reports a client-correctable submission. missing lists absent required fields.
func NewMalformedInput(message string, missing []string) error {
	var details map[string]any
	if len(missing) > 0 {
		details = map[string]any{"missing_fields": missing}
	}
	return NewDomainError(CodeMalformedInput, message, http.StatusBadRequest, details)
}

func NewUnauthorizedDomain(email string) error {
	return &DomainError{
		Code:       CodeUnauthorizedDomain,
		Message:    "forbidden",
		HTTPStatus: http.StatusForbidden,
		Err:        fmt.Errorf("email %q outside authorized domain", email),
	}
}

func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "failed to store ticket",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewTransportError(err error) error {
	return &DomainError{
		Code:       CodeTransport,
		Message:    "failed to send notification",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}
