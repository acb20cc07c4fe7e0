package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/carwizard/internal/catalog"
	"github.com/rpggio/carwizard/internal/domain/recommend"
	"github.com/rpggio/carwizard/internal/domain/session"
	"github.com/rpggio/carwizard/internal/repository"
	"github.com/rpggio/carwizard/internal/validation"
)

// APIError represents an MCP tool error payload.
type APIError struct {
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	Fields       map[string]string `json:"fields,omitempty"`
	RecoveryHint string            `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to
// INTERNAL without exposing their message.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{Code: "INVALID_INPUT", Message: verr.Error(), Fields: verr.Fields()}
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Call start_session to begin a new session"}
	case errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, recommend.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: "session was updated concurrently", RecoveryHint: "Reload the session with get_session and retry"}
	case errors.Is(err, catalog.ErrUnavailable):
		return &APIError{Code: "CATALOG_UNAVAILABLE", Message: "vehicle catalog is temporarily unavailable", RecoveryHint: "Retry after a short pause"}
	case errors.Is(err, repository.ErrStorageFailure):
		return &APIError{Code: "STORAGE_FAILURE", Message: "storage is unavailable", RecoveryHint: "Retry later"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
