// Package transport writes JSON responses and maps typed errors to HTTP.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 * 1024

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Status    int               `json:"status"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:             http.StatusBadRequest,
	apperror.KindNotFound:               http.StatusNotFound,
	apperror.KindUnauthorized:           http.StatusUnauthorized,
	apperror.KindForbidden:              http.StatusForbidden,
	apperror.KindInvalidStateTransition: http.StatusConflict,
	apperror.KindInsufficientStock:      http.StatusConflict,
	apperror.KindPaymentDeclined:        http.StatusPaymentRequired,
	apperror.KindInternal:               http.StatusInternalServerError,
}

// StatusFor returns the HTTP status of an error kind.
func StatusFor(kind apperror.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L().Error("failed to encode response", zap.Error(err))
	}
}

// Error writes err as a JSON envelope. Internal failures are logged with
// their cause and reported to the client with a generic message only.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperror.As(err)
	status := StatusFor(appErr.Kind)

	body := ErrorBody{
		Error:     appErr.Code,
		Message:   appErr.Message,
		Status:    status,
		Fields:    appErr.Fields,
		Details:   appErr.Details,
		RequestID: logger.RequestIDFrom(ctx),
	}

	if appErr.Kind == apperror.KindInternal {
		logger.FromCtx(ctx).Error("request failed",
			zap.String("op", appErr.Op),
			zap.Error(appErr.Err),
		)
		body.Error = "internal"
		body.Message = "internal server error"
		body.Fields = nil
		body.Details = nil
	}

	JSON(w, status, body)
}

// Decode reads a JSON request body into dst, rejecting unknown fields and
// oversized bodies.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.Validation("invalid_body", "request body is required", nil)
		case errors.As(err, &maxErr):
			return apperror.Validation("invalid_body", "request body is too large", nil)
		default:
			return apperror.Validation("invalid_body", fmt.Sprintf("malformed JSON body: %v", err), nil)
		}
	}
	if dec.More() {
		return apperror.Validation("invalid_body", "request body must contain a single JSON object", nil)
	}
	return nil
}
