package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrors.ValidationError("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeValidation, "invalid request body", err)
	}
	return nil
}
