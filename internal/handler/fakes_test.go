package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/model"
	"github.com/skillswap/exchange-server-go/internal/service"
)

const (
	aliceID   = "11111111-1111-4111-8111-111111111111"
	bobID     = "22222222-2222-4222-8222-222222222222"
	sessionID = "33333333-3333-4333-8333-333333333333"
	fileID    = "44444444-4444-4444-8444-444444444444"
	carolID   = "55555555-5555-4555-8555-555555555555"
)

type fakeAuth struct {
	signupFunc func(ctx context.Context, input service.SignupInput) (*service.AuthResult, error)
	loginFunc  func(ctx context.Context, email, password string) (*service.AuthResult, error)
	logoutFunc func(ctx context.Context, token string) error
}

func (f *fakeAuth) Signup(ctx context.Context, input service.SignupInput) (*service.AuthResult, error) {
	return f.signupFunc(ctx, input)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return f.loginFunc(ctx, email, password)
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error {
	return f.logoutFunc(ctx, token)
}

type fakeProfiles struct {
	getFunc    func(ctx context.Context, id string) (*model.UserProfile, error)
	listFunc   func(ctx context.Context, limit, offset int) ([]model.UserProfile, int, error)
	updateFunc func(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error)
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeProfiles) List(ctx context.Context, limit, offset int) ([]model.UserProfile, int, error) {
	return f.listFunc(ctx, limit, offset)
}

func (f *fakeProfiles) Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error) {
	return f.updateFunc(ctx, id, params)
}

type fakeMatches struct {
	findFunc  func(ctx context.Context, userID string) (*service.MatchResult, error)
	watchFunc func(ctx context.Context, userID string, onSnapshot func(*service.MatchResult), onError func(error)) (func(), error)
}

func (f *fakeMatches) FindForUser(ctx context.Context, userID string) (*service.MatchResult, error) {
	return f.findFunc(ctx, userID)
}

func (f *fakeMatches) WatchMatches(ctx context.Context, userID string, onSnapshot func(*service.MatchResult), onError func(error)) (func(), error) {
	return f.watchFunc(ctx, userID, onSnapshot, onError)
}

type fakeSessions struct {
	connectFunc func(ctx context.Context, currentID, candidateID string) (*model.Session, error)
	getFunc     func(ctx context.Context, userID, sessionID string) (*service.SessionDetail, error)
	listFunc    func(ctx context.Context, userID string) ([]model.SessionView, error)
	rateFunc    func(ctx context.Context, raterID, sessionID string, rating int) (*service.RatingResult, error)
	watchFunc   func(ctx context.Context, userID string, onSnapshot func([]model.SessionView), onError func(error)) (func(), error)
}

func (f *fakeSessions) Connect(ctx context.Context, currentID, candidateID string) (*model.Session, error) {
	return f.connectFunc(ctx, currentID, candidateID)
}

func (f *fakeSessions) GetForParticipant(ctx context.Context, userID, sessionID string) (*service.SessionDetail, error) {
	return f.getFunc(ctx, userID, sessionID)
}

func (f *fakeSessions) ListForUser(ctx context.Context, userID string) ([]model.SessionView, error) {
	return f.listFunc(ctx, userID)
}

func (f *fakeSessions) Rate(ctx context.Context, raterID, sessionID string, rating int) (*service.RatingResult, error) {
	return f.rateFunc(ctx, raterID, sessionID, rating)
}

func (f *fakeSessions) WatchSessions(ctx context.Context, userID string, onSnapshot func([]model.SessionView), onError func(error)) (func(), error) {
	return f.watchFunc(ctx, userID, onSnapshot, onError)
}

type fakeRooms struct {
	sendFunc          func(ctx context.Context, sessionID, userID, text string) (*model.ChatMessage, error)
	listMessagesFunc  func(ctx context.Context, sessionID, userID string) ([]model.ChatMessage, error)
	canUploadFunc     func(ctx context.Context, sessionID, userID string) error
	uploadFunc        func(ctx context.Context, input service.UploadInput) (*model.SharedFile, error)
	listFilesFunc     func(ctx context.Context, sessionID, userID string) ([]model.SharedFile, error)
	deleteFunc        func(ctx context.Context, sessionID, fileID, userID string) error
	watchMessagesFunc func(ctx context.Context, sessionID, userID string, onSnapshot func([]model.ChatMessage), onError func(error)) (func(), error)
	watchFilesFunc    func(ctx context.Context, sessionID, userID string, onSnapshot func([]model.SharedFile), onError func(error)) (func(), error)
}

func (f *fakeRooms) SendMessage(ctx context.Context, sessionID, userID, text string) (*model.ChatMessage, error) {
	return f.sendFunc(ctx, sessionID, userID, text)
}

func (f *fakeRooms) ListMessages(ctx context.Context, sessionID, userID string) ([]model.ChatMessage, error) {
	return f.listMessagesFunc(ctx, sessionID, userID)
}

func (f *fakeRooms) CanUpload(ctx context.Context, sessionID, userID string) error {
	if f.canUploadFunc == nil {
		return nil
	}
	return f.canUploadFunc(ctx, sessionID, userID)
}

func (f *fakeRooms) UploadFile(ctx context.Context, input service.UploadInput) (*model.SharedFile, error) {
	return f.uploadFunc(ctx, input)
}

func (f *fakeRooms) ListFiles(ctx context.Context, sessionID, userID string) ([]model.SharedFile, error) {
	return f.listFilesFunc(ctx, sessionID, userID)
}

func (f *fakeRooms) DeleteFile(ctx context.Context, sessionID, fileID, userID string) error {
	return f.deleteFunc(ctx, sessionID, fileID, userID)
}

func (f *fakeRooms) WatchMessages(ctx context.Context, sessionID, userID string, onSnapshot func([]model.ChatMessage), onError func(error)) (func(), error) {
	return f.watchMessagesFunc(ctx, sessionID, userID, onSnapshot, onError)
}

func (f *fakeRooms) WatchFiles(ctx context.Context, sessionID, userID string, onSnapshot func([]model.SharedFile), onError func(error)) (func(), error) {
	return f.watchFilesFunc(ctx, sessionID, userID, onSnapshot, onError)
}

// asUser stands in for AuthMiddleware.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUserID(r.Context(), userID)
			ctx = context.WithValue(ctx, middleware.TokenContextKey, "token-"+userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passThrough(next http.Handler) http.Handler { return next }

func mountAs(userID, prefix string, routes chi.Router) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Mount(prefix, routes)
	return r
}
