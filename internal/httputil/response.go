// Package httputil writes JSON responses and maps AppError codes to HTTP status.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("failed to write json response")
	}
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation:        http.StatusBadRequest,
	apperrors.ErrCodeInvalidInput:      http.StatusBadRequest,
	apperrors.ErrCodeMissingRequired:   http.StatusBadRequest,
	apperrors.ErrCodeUnauthorized:      http.StatusUnauthorized,
	apperrors.ErrCodeInvalidToken:      http.StatusUnauthorized,
	apperrors.ErrCodeForbidden:         http.StatusForbidden,
	apperrors.ErrCodeNotFound:          http.StatusNotFound,
	apperrors.ErrCodeAlreadyExists:     http.StatusConflict,
	apperrors.ErrCodeConflict:          http.StatusConflict,
	apperrors.ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	// A store, realtime channel or blob store call failed upstream.
	apperrors.ErrCodeRemoteOperation:   http.StatusBadGateway,
	apperrors.ErrCodePartialCompletion: http.StatusInternalServerError,
	apperrors.ErrCodeInternal:          http.StatusInternalServerError,
}

// WriteError renders err as an ErrorResponse. Errors that are not AppErrors are
// logged and hidden behind a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

func StatusFromCode(code apperrors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
