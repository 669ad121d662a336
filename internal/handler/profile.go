package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/model"
)

type ProfileHandler struct {
	profiles ProfileAPI
}

func NewProfileHandler(profiles ProfileAPI) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{profileID}", h.Get)

	return r
}

// updateProfileRequest keeps absent fields nil so the update merges.
type updateProfileRequest struct {
	Name          *string  `json:"name"`
	SkillsOffered []string `json:"skillsOffered"`
	SkillsWanted  []string `json:"skillsWanted"`
	Title         *string  `json:"title"`
	Bio           *string  `json:"bio"`
	Avatar        *string  `json:"avatar"`
}

// GET /v1/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.profiles.Get(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// PATCH /v1/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	profile, err := h.profiles.Update(ctx, middleware.GetUserID(ctx), model.UpdateProfileParams{
		Name:          req.Name,
		SkillsOffered: req.SkillsOffered,
		SkillsWanted:  req.SkillsWanted,
		Title:         req.Title,
		Bio:           req.Bio,
		Avatar:        req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GET /v1/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	page := ParsePagination(r)

	profiles, total, err := h.profiles.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []model.UserProfile{}
	}

	writeJSON(w, http.StatusOK, Page[model.UserProfile]{
		Items:  profiles,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// GET /v1/profiles/{profileID}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Other users' emails stay private.
	if profile.ID != middleware.GetUserID(r.Context()) {
		profile.Email = ""
	}
	writeJSON(w, http.StatusOK, profile)
}
