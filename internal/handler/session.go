package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/model"
)

type SessionHandler struct {
	sessions SessionAPI
	room     *RoomHandler
}

func NewSessionHandler(sessions SessionAPI, room *RoomHandler) *SessionHandler {
	return &SessionHandler{sessions: sessions, room: room}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/rating", h.Rate)

		r.Get("/messages", h.room.ListMessages)
		r.Post("/messages", h.room.SendMessage)
		r.Get("/files", h.room.ListFiles)
		r.Post("/files", h.room.UploadFile)
		r.Delete("/files/{fileID}", h.room.DeleteFile)
	})

	return r
}

type rateRequest struct {
	Rating *int `json:"rating"`
}

// GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.sessions.ListForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if views == nil {
		views = []model.SessionView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.sessions.GetForParticipant(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// POST /v1/sessions/{sessionID}/rating
func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Rating == nil {
		writeError(w, apperrors.MissingRequired("rating"))
		return
	}

	ctx := r.Context()
	result, err := h.sessions.Rate(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "sessionID"), *req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Profile != nil {
		result.Profile.Email = ""
	}
	writeJSON(w, http.StatusOK, result)
}
