package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/audit"
	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/model"
	"github.com/skillswap/exchange-server-go/internal/service"
)

const (
	uploadFormField   = "file"
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

// RoomHandler serves the chat and shared files under /v1/sessions/{sessionID}.
type RoomHandler struct {
	rooms     RoomAPI
	maxUpload int64
}

func NewRoomHandler(rooms RoomAPI, maxUpload int64) *RoomHandler {
	return &RoomHandler{rooms: rooms, maxUpload: maxUpload}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// GET /v1/sessions/{sessionID}/messages
func (h *RoomHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messages, err := h.rooms.ListMessages(ctx, chi.URLParam(r, "sessionID"), middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// POST /v1/sessions/{sessionID}/messages
func (h *RoomHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	msg, err := h.rooms.SendMessage(ctx, chi.URLParam(r, "sessionID"), middleware.GetUserID(ctx), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// GET /v1/sessions/{sessionID}/files
func (h *RoomHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	files, err := h.rooms.ListFiles(ctx, chi.URLParam(r, "sessionID"), middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if files == nil {
		files = []model.SharedFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// POST /v1/sessions/{sessionID}/files
func (h *RoomHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	userID := middleware.GetUserID(ctx)

	if err := h.rooms.CanUpload(ctx, sessionID, userID); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperrors.ValidationError("file is too large"))
			return
		}
		writeError(w, apperrors.Wrap(apperrors.ErrCodeValidation, "invalid multipart form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		writeError(w, apperrors.MissingRequired(uploadFormField))
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeError(w, apperrors.ValidationError("file is too large"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	shared, err := h.rooms.UploadFile(ctx, service.UploadInput{
		SessionID:   sessionID,
		UserID:      userID,
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shared)
}

// DELETE /v1/sessions/{sessionID}/files/{fileID}
func (h *RoomHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	fileID := chi.URLParam(r, "fileID")
	userID := middleware.GetUserID(ctx)

	if err := h.rooms.DeleteFile(ctx, sessionID, fileID, userID); err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Str("fileId", fileID).Msg("failed to delete file")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventFileDelete,
		UserID:  userID,
		Details: map[string]interface{}{"sessionId": sessionID, "fileId": fileID},
	})
	w.WriteHeader(http.StatusNoContent)
}
