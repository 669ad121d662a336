package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{"validation", apperrors.ValidationError("Please select a rating"), http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"not found", apperrors.NotFound("Profile"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"forbidden", apperrors.Forbidden("Only the teacher can upload files"), http.StatusForbidden, apperrors.ErrCodeForbidden},
		{"conflict", apperrors.Conflict("Session already completed"), http.StatusConflict, apperrors.ErrCodeConflict},
		{"remote", apperrors.RemoteOperation("upload", errors.New("quota")), http.StatusBadGateway, apperrors.ErrCodeRemoteOperation},
		{"partial", apperrors.PartialCompletion("half", nil), http.StatusInternalServerError, apperrors.ErrCodePartialCompletion},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password authentication")
}
