package service

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
	"github.com/skillswap/exchange-server-go/internal/storage"
)

const MaxMessageLength = 2000

type UploadInput struct {
	SessionID   string
	UserID      string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RoomService runs the chat and shared files of a session.
type RoomService struct {
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	fileRepo    repository.FileRepository
	store       storage.Store
	broker      EventBroker
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewRoomService(
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	fileRepo repository.FileRepository,
	store storage.Store,
	broker EventBroker,
	m *metrics.Metrics,
) *RoomService {
	return &RoomService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		fileRepo:    fileRepo,
		store:       store,
		broker:      broker,
		metrics:     m,
		now:         time.Now,
	}
}

func (s *RoomService) SendMessage(ctx context.Context, sessionID, userID, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ValidationError("message must not be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperrors.ValidationError("message is too long").
			WithDetails(map[string]any{"maxLength": MaxMessageLength})
	}

	session, err := s.participantSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	name := session.StudentName
	if session.RoleOf(userID) == model.RoleTeacher {
		name = session.TeacherName
	}

	msg, err := s.messageRepo.Create(ctx, model.CreateChatMessageParams{
		SessionID: session.ID,
		Text:      text,
		By:        userID,
		Name:      name,
	})
	if err != nil {
		return nil, apperrors.RemoteOperation("send message", err)
	}

	s.metrics.MessageSent()
	log.Debug().
		Str("sessionId", session.ID).
		Str("messageId", msg.ID).
		Str("by", userID).
		Msg("chat message sent")

	notify(ctx, s.broker, redisclient.SessionMessagesTopic(session.ID), map[string]string{"id": msg.ID})
	return msg, nil
}

// ListMessages returns the chat oldest first.
func (s *RoomService) ListMessages(ctx context.Context, sessionID, userID string) ([]model.ChatMessage, error) {
	if _, err := s.participantSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.loadMessages(ctx, sessionID)
}

// UploadFile stores the blob first and its metadata second. If the metadata
// cannot be saved the blob is removed again.
func (s *RoomService) UploadFile(ctx context.Context, input UploadInput) (*model.SharedFile, error) {
	session, err := s.uploaderSession(ctx, input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.Body == nil {
		return nil, apperrors.MissingRequired("file")
	}

	name := storage.SanitizeName(input.Name)
	path := storage.SessionFilePath(session.ID, name, s.now())

	url, err := s.store.Upload(ctx, path, input.ContentType, input.Body)
	if err != nil {
		return nil, apperrors.RemoteOperation("upload file", err)
	}

	file, err := s.fileRepo.Create(ctx, model.CreateSharedFileParams{
		SessionID:   session.ID,
		Name:        name,
		URL:         url,
		Path:        path,
		By:          input.UserID,
		ContentType: input.ContentType,
		Size:        input.Size,
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			log.Warn().Err(delErr).Str("path", path).Msg("failed to remove orphaned blob")
		}
		return nil, apperrors.RemoteOperation("save file metadata", err)
	}

	s.metrics.FileUploaded()
	log.Info().
		Str("sessionId", session.ID).
		Str("fileId", file.ID).
		Str("path", path).
		Int64("size", input.Size).
		Msg("file shared")

	notify(ctx, s.broker, redisclient.SessionFilesTopic(session.ID), map[string]string{"id": file.ID})
	return file, nil
}

// CanUpload reports whether userID may share files in the session, so callers
// can refuse before reading a request body.
func (s *RoomService) CanUpload(ctx context.Context, sessionID, userID string) error {
	_, err := s.uploaderSession(ctx, sessionID, userID)
	return err
}

func (s *RoomService) uploaderSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	session, err := s.participantSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.RoleOf(userID) != model.RoleTeacher {
		return nil, apperrors.Forbidden("only the teacher can share files")
	}
	return session, nil
}

// ListFiles returns shared files newest first.
func (s *RoomService) ListFiles(ctx context.Context, sessionID, userID string) ([]model.SharedFile, error) {
	if _, err := s.participantSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.loadFiles(ctx, sessionID)
}

// DeleteFile removes the blob, then its metadata.
func (s *RoomService) DeleteFile(ctx context.Context, sessionID, fileID, userID string) error {
	session, err := s.participantSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if session.RoleOf(userID) != model.RoleTeacher {
		return apperrors.Forbidden("only the teacher can delete files")
	}
	if err := requireID(fileID, "file"); err != nil {
		return err
	}

	file, err := s.fileRepo.FindByID(ctx, session.ID, fileID)
	if err != nil {
		return apperrors.RemoteOperation("load file", err)
	}
	if file == nil {
		return apperrors.NotFound("file")
	}

	if err := s.store.Delete(ctx, file.Path); err != nil {
		return apperrors.RemoteOperation("delete blob", err)
	}
	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		return apperrors.RemoteOperation("delete file metadata", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("fileId", file.ID).
		Msg("file deleted")

	notify(ctx, s.broker, redisclient.SessionFilesTopic(session.ID), map[string]string{"id": file.ID})
	return nil
}

func (s *RoomService) WatchMessages(ctx context.Context, sessionID, userID string, onSnapshot func([]model.ChatMessage), onError func(error)) (func(), error) {
	if _, err := s.participantSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]model.ChatMessage, error) {
		return s.loadMessages(ctx, sessionID)
	}
	return watchTopic(ctx, s.broker, redisclient.SessionMessagesTopic(sessionID), load, onSnapshot, onError), nil
}

func (s *RoomService) WatchFiles(ctx context.Context, sessionID, userID string, onSnapshot func([]model.SharedFile), onError func(error)) (func(), error) {
	if _, err := s.participantSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]model.SharedFile, error) {
		return s.loadFiles(ctx, sessionID)
	}
	return watchTopic(ctx, s.broker, redisclient.SessionFilesTopic(sessionID), load, onSnapshot, onError), nil
}

func (s *RoomService) loadMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.RemoteOperation("list messages", err)
	}
	return messages, nil
}

func (s *RoomService) loadFiles(ctx context.Context, sessionID string) ([]model.SharedFile, error) {
	files, err := s.fileRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.RemoteOperation("list files", err)
	}
	return files, nil
}

func (s *RoomService) participantSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	if err := requireID(sessionID, "session"); err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session")
	}
	if !session.IsParticipant(userID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	return session, nil
}
