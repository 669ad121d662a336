package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/model"
)

type MatchHandler struct {
	matches  MatchAPI
	sessions SessionAPI
}

func NewMatchHandler(matches MatchAPI, sessions SessionAPI) *MatchHandler {
	return &MatchHandler{matches: matches, sessions: sessions}
}

func (h *MatchHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.FindMatches)
	r.Post("/{candidateID}/connect", h.Connect)

	return r
}

// GET /v1/matches
func (h *MatchHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.matches.FindForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	hideEmails(result.Matches)
	hideEmails(result.Community)
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/matches/{candidateID}/connect
func (h *MatchHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.sessions.Connect(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "candidateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func hideEmails(profiles []model.UserProfile) {
	for i := range profiles {
		profiles[i].Email = ""
	}
}
