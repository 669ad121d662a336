package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillswap/exchange-server-go/internal/audit"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/service"
	"github.com/skillswap/exchange-server-go/internal/util"
)

type AuthHandler struct {
	auth        AuthAPI
	loginLimit  func(http.Handler) http.Handler
	requireAuth func(http.Handler) http.Handler
}

func NewAuthHandler(auth AuthAPI, loginLimit, requireAuth func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{auth: auth, loginLimit: loginLimit, requireAuth: requireAuth}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", h.Signup)
	r.With(h.loginLimit).Post("/login", h.Login)
	r.With(h.requireAuth).Post("/logout", h.Logout)

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input service.SignupInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventSignup,
		UserID: result.Profile.ID,
		Email:  util.NormalizeEmail(input.Email),
	})
	writeJSON(w, http.StatusCreated, result)
}

// POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:  audit.EventLoginFailure,
			Email: util.NormalizeEmail(req.Email),
		})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventLoginSuccess,
		UserID: result.Profile.ID,
		Email:  util.NormalizeEmail(req.Email),
	})
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx, middleware.GetToken(ctx)); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventLogout,
		UserID: middleware.GetUserID(ctx),
	})
	w.WriteHeader(http.StatusNoContent)
}
