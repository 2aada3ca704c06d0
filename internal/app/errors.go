package app

import (
	"errors"
	"fmt"
	"net/http"

	"treeplant/api/internal/auth"
	"treeplant/api/internal/authpw"
	"treeplant/api/internal/export"
	"treeplant/api/internal/photostore"
	"treeplant/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(field, message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", field+" "+message, map[string]string{"field": field})
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

var errForbidden = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)

// mapError is the single translation from service and store failures to
// HTTP status, code and message.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var validationErr *authpw.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), map[string]string{"field": validationErr.Field}
	}

	var constraintErr *store.ConstraintError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, photostore.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrUniqueViolation):
		if errors.As(err, &constraintErr) {
			details = map[string]string{"constraint": constraintErr.Constraint}
		}
		return http.StatusConflict, "UNIQUE_VIOLATION", "Record already exists", details
	case errors.Is(err, store.ErrConstraintViolation):
		if errors.As(err, &constraintErr) {
			details = map[string]string{"constraint": constraintErr.Constraint}
		}
		return http.StatusUnprocessableEntity, "CONSTRAINT_VIOLATION", "Request violates a data constraint", details
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Database unavailable", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "VALIDATION_ERROR", "format must be pdf, docx or csv", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
