package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// APIError is the body of every error response.
type APIError struct {
	Message    string             `json:"message"`
	Code       string             `json:"code,omitempty"`
	Entity     string             `json:"entity,omitempty"`
	Field      string             `json:"field,omitempty"`
	Value      any                `json:"value,omitempty"`
	Op         string             `json:"op,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		ingestion  *domain.IngestionError
		violation  domain.RuleViolationError
	)
	status := http.StatusInternalServerError
	body := APIError{Message: err.Error(), Code: "internal"}
	switch {
	case errors.As(err, &validation):
		status = http.StatusUnprocessableEntity
		body.Code = "validation"
		body.Entity, body.Field, body.Value = string(validation.Entity), validation.Field, validation.Value
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		body.Code = "not_found"
		body.Entity, body.Field, body.Value = string(notFound.Entity), notFound.Field, notFound.Value
	case errors.As(err, &conflict):
		status = http.StatusConflict
		body.Code = conflict.Reason
		body.Entity, body.Field, body.Value = string(conflict.Entity), conflict.Field, conflict.Value
	case errors.As(err, &violation):
		status = http.StatusConflict
		body.Code = "rule_violation"
		body.Violations = violation.Result.Violations
	case errors.As(err, &ingestion):
		status = http.StatusBadGateway
		body.Code = "ingestion_failed"
		body.Op = ingestion.Op
	case errors.Is(err, core.ErrNoObjectReader):
		status = http.StatusServiceUnavailable
		body.Code = "unavailable"
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "bad_request", err)
}
