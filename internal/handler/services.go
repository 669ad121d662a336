package handler

import (
	"context"

	"github.com/skillswap/exchange-server-go/internal/model"
	"github.com/skillswap/exchange-server-go/internal/service"
)

// The interfaces below are the slices of the service layer each handler uses.

type AuthAPI interface {
	Signup(ctx context.Context, input service.SignupInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

type ProfileAPI interface {
	Get(ctx context.Context, id string) (*model.UserProfile, error)
	List(ctx context.Context, limit, offset int) ([]model.UserProfile, int, error)
	Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error)
}

type MatchAPI interface {
	FindForUser(ctx context.Context, userID string) (*service.MatchResult, error)
	WatchMatches(ctx context.Context, userID string, onSnapshot func(*service.MatchResult), onError func(error)) (func(), error)
}

type SessionAPI interface {
	Connect(ctx context.Context, currentID, candidateID string) (*model.Session, error)
	GetForParticipant(ctx context.Context, userID, sessionID string) (*service.SessionDetail, error)
	ListForUser(ctx context.Context, userID string) ([]model.SessionView, error)
	Rate(ctx context.Context, raterID, sessionID string, rating int) (*service.RatingResult, error)
	WatchSessions(ctx context.Context, userID string, onSnapshot func([]model.SessionView), onError func(error)) (func(), error)
}

type RoomAPI interface {
	SendMessage(ctx context.Context, sessionID, userID, text string) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID, userID string) ([]model.ChatMessage, error)
	CanUpload(ctx context.Context, sessionID, userID string) error
	UploadFile(ctx context.Context, input service.UploadInput) (*model.SharedFile, error)
	ListFiles(ctx context.Context, sessionID, userID string) ([]model.SharedFile, error)
	DeleteFile(ctx context.Context, sessionID, fileID, userID string) error
	WatchMessages(ctx context.Context, sessionID, userID string, onSnapshot func([]model.ChatMessage), onError func(error)) (func(), error)
	WatchFiles(ctx context.Context, sessionID, userID string, onSnapshot func([]model.SharedFile), onError func(error)) (func(), error)
}

var (
	_ AuthAPI    = (*service.AuthService)(nil)
	_ ProfileAPI = (*service.ProfileService)(nil)
	_ MatchAPI   = (*service.MatchService)(nil)
	_ SessionAPI = (*service.SessionService)(nil)
	_ RoomAPI    = (*service.RoomService)(nil)
)
