package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/skillswap/exchange-server-go/internal/database"
	"github.com/skillswap/exchange-server-go/internal/model"
	"github.com/skillswap/exchange-server-go/internal/repository"
	"github.com/skillswap/exchange-server-go/internal/sse"
)

const (
	aliceID   = "11111111-1111-4111-8111-111111111111"
	bobID     = "22222222-2222-4222-8222-222222222222"
	carolID   = "33333333-3333-4333-8333-333333333333"
	sessionID = "44444444-4444-4444-8444-444444444444"
	fileID    = "55555555-5555-4555-8555-555555555555"
)

// fakeTx runs fn without a real transaction; mock repositories ignore the tx.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(_ context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) FindAll(ctx context.Context) ([]model.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) List(ctx context.Context, limit, offset int) ([]model.UserProfile, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProfileRepo) Create(ctx context.Context, profile model.UserProfile) (*model.UserProfile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) ApplyRating(ctx context.Context, id string, rate float64, ratingCount, credits int) (*model.UserProfile, error) {
	args := m.Called(ctx, id, rate, ratingCount, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) IncrementRating(ctx context.Context, id string, rating, credits int) (*model.UserProfile, error) {
	args := m.Called(ctx, id, rating, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *mockProfileRepo) FindLedgerDivergences(ctx context.Context) ([]model.LedgerDivergence, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerDivergence), args.Error(1)
}

func (m *mockProfileRepo) WithTx(tx *sqlx.Tx) repository.ProfileRepository {
	return m
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByTeacher(ctx context.Context, teacherID string) ([]model.Session, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByStudent(ctx context.Context, studentID string) ([]model.Session, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error) {
	args := m.Called(ctx, id, params)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatMessage), args.Error(1)
}

func (m *mockMessageRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatMessage), args.Error(1)
}

func (m *mockMessageRepo) WithTx(tx *sqlx.Tx) repository.MessageRepository {
	return m
}

type mockFileRepo struct {
	mock.Mock
}

func (m *mockFileRepo) FindByID(ctx context.Context, sessionID, id string) (*model.SharedFile, error) {
	args := m.Called(ctx, sessionID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedFile), args.Error(1)
}

func (m *mockFileRepo) Create(ctx context.Context, params model.CreateSharedFileParams) (*model.SharedFile, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedFile), args.Error(1)
}

func (m *mockFileRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SharedFile, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SharedFile), args.Error(1)
}

func (m *mockFileRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockFileRepo) WithTx(tx *sqlx.Tx) repository.FileRepository {
	return m
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, objectPath, contentType, r)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, objectPath string) error {
	args := m.Called(ctx, objectPath)
	return args.Error(0)
}

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *mockRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// recordingBroker forwards to an in-memory broker and remembers published topics.
type recordingBroker struct {
	*sse.Broker
	mu     sync.Mutex
	topics []string
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{Broker: sse.NewBrokerWithTransport(sse.NewMemoryTransport())}
}

func (b *recordingBroker) Publish(ctx context.Context, topic string, event sse.Event) error {
	b.mu.Lock()
	b.topics = append(b.topics, topic)
	b.mu.Unlock()
	return b.Broker.Publish(ctx, topic, event)
}

func (b *recordingBroker) Published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}
