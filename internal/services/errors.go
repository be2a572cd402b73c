package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorBadGateway   ErrorCode = "bad_gateway"
	ErrorUnavailable  ErrorCode = "unavailable"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewBadGatewayError(msg string) error { return &ServiceError{Code: ErrorBadGateway, Message: msg} }

func NewUnavailableError(msg string) error {
	return &ServiceError{Code: ErrorUnavailable, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	var ae *AnswerError
	if errors.As(err, &ae) {
		return &ServiceError{Code: ErrorInvalid, Message: ae.Error()}, true
	}
	return nil, false
}

// ErrInvalidAnswer is matched by every *AnswerError.
var ErrInvalidAnswer = errors.New("invalid answer")

// AnswerError reports a malformed answer value for a known item.
type AnswerError struct {
	ItemID int
	Value  string
	Reason string
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("item %d: invalid answer %q: %s", e.ItemID, e.Value, e.Reason)
}

func (e *AnswerError) Is(target error) bool { return target == ErrInvalidAnswer }

