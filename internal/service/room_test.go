package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
)

type roomFixture struct {
	sessions *mockSessionRepo
	messages *mockMessageRepo
	files    *mockFileRepo
	store    *mockStore
	broker   *recordingBroker
	svc      *RoomService
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	f := &roomFixture{
		sessions: new(mockSessionRepo),
		messages: new(mockMessageRepo),
		files:    new(mockFileRepo),
		store:    new(mockStore),
		broker:   newRecordingBroker(),
	}
	f.svc = NewRoomService(f.sessions, f.messages, f.files, f.store, f.broker, nil)
	f.svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	f.sessions.On("FindByID", mock.Anything, sessionID).Return(pendingSession(), nil)
	t.Cleanup(f.broker.Close)
	return f
}

func TestRoomService_SendMessage(t *testing.T) {
	t.Run("trims text and uses sender name", func(t *testing.T) {
		f := newRoomFixture(t)
		want := model.CreateChatMessageParams{SessionID: sessionID, Text: "hello", By: aliceID, Name: "Alice"}
		f.messages.On("Create", mock.Anything, want).Return(&model.ChatMessage{ID: "m1", Text: "hello"}, nil)

		msg, err := f.svc.SendMessage(context.Background(), sessionID, aliceID, "  hello \n")
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, []string{redisclient.SessionMessagesTopic(sessionID)}, f.broker.Published())
	})

	t.Run("teacher name for teacher", func(t *testing.T) {
		f := newRoomFixture(t)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateChatMessageParams) bool {
			return p.Name == "Bob" && p.By == bobID
		})).Return(&model.ChatMessage{ID: "m2"}, nil)

		_, err := f.svc.SendMessage(context.Background(), sessionID, bobID, "hi")
		require.NoError(t, err)
	})

	t.Run("rejects blank text", func(t *testing.T) {
		f := newRoomFixture(t)
		_, err := f.svc.SendMessage(context.Background(), sessionID, aliceID, "   ")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects long text", func(t *testing.T) {
		f := newRoomFixture(t)
		_, err := f.svc.SendMessage(context.Background(), sessionID, aliceID, strings.Repeat("x", MaxMessageLength+1))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		f := newRoomFixture(t)
		_, err := f.svc.SendMessage(context.Background(), sessionID, carolID, "hi")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newRoomFixture(t)
		other := "77777777-7777-4777-8777-777777777777"
		f.sessions.On("FindByID", mock.Anything, other).Return(nil, nil)
		_, err := f.svc.SendMessage(context.Background(), other, aliceID, "hi")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestRoomService_UploadFile(t *testing.T) {
	path := "sessions/" + sessionID + "/files/1700000000000_notes.pdf"

	t.Run("stores blob then metadata", func(t *testing.T) {
		f := newRoomFixture(t)
		body := strings.NewReader("pdf")
		f.store.On("Upload", mock.Anything, path, "application/pdf", body).Return("https://cdn/x", nil)
		f.files.On("Create", mock.Anything, model.CreateSharedFileParams{
			SessionID: sessionID, Name: "notes.pdf", URL: "https://cdn/x", Path: path,
			By: bobID, ContentType: "application/pdf", Size: 3,
		}).Return(&model.SharedFile{ID: fileID, Name: "notes.pdf"}, nil)

		file, err := f.svc.UploadFile(context.Background(), UploadInput{
			SessionID: sessionID, UserID: bobID, Name: "notes.pdf",
			ContentType: "application/pdf", Size: 3, Body: body,
		})
		require.NoError(t, err)
		assert.Equal(t, fileID, file.ID)
		assert.Equal(t, []string{redisclient.SessionFilesTopic(sessionID)}, f.broker.Published())
	})

	t.Run("student cannot upload", func(t *testing.T) {
		f := newRoomFixture(t)
		_, err := f.svc.UploadFile(context.Background(), UploadInput{
			SessionID: sessionID, UserID: aliceID, Name: "x.txt", Body: strings.NewReader("x"),
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
		f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blob failure", func(t *testing.T) {
		f := newRoomFixture(t)
		f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

		_, err := f.svc.UploadFile(context.Background(), UploadInput{
			SessionID: sessionID, UserID: bobID, Name: "notes.pdf", Body: strings.NewReader("x"),
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRemoteOperation))
		f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("metadata failure removes blob", func(t *testing.T) {
		f := newRoomFixture(t)
		f.store.On("Upload", mock.Anything, path, "", mock.Anything).Return("https://cdn/x", nil)
		f.files.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
		f.store.On("Delete", mock.Anything, path).Return(nil)

		_, err := f.svc.UploadFile(context.Background(), UploadInput{
			SessionID: sessionID, UserID: bobID, Name: "notes.pdf", Body: strings.NewReader("x"),
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRemoteOperation))
		f.store.AssertCalled(t, "Delete", mock.Anything, path)
	})
}

func TestRoomService_CanUpload(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.CanUpload(ctx, sessionID, bobID))
	assert.True(t, apperrors.HasCode(f.svc.CanUpload(ctx, sessionID, aliceID), apperrors.ErrCodeForbidden))
	assert.True(t, apperrors.HasCode(f.svc.CanUpload(ctx, sessionID, carolID), apperrors.ErrCodeForbidden))
	assert.True(t, apperrors.HasCode(f.svc.CanUpload(ctx, "bad", bobID), apperrors.ErrCodeNotFound))
	f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomService_DeleteFile(t *testing.T) {
	stored := &model.SharedFile{ID: fileID, SessionID: sessionID, Path: "sessions/s/files/1_a.txt"}

	t.Run("deletes blob then metadata", func(t *testing.T) {
		f := newRoomFixture(t)
		f.files.On("FindByID", mock.Anything, sessionID, fileID).Return(stored, nil)
		f.store.On("Delete", mock.Anything, stored.Path).Return(nil)
		f.files.On("Delete", mock.Anything, fileID).Return(nil)

		require.NoError(t, f.svc.DeleteFile(context.Background(), sessionID, fileID, bobID))
		f.files.AssertExpectations(t)
	})

	t.Run("blob failure keeps metadata", func(t *testing.T) {
		f := newRoomFixture(t)
		f.files.On("FindByID", mock.Anything, sessionID, fileID).Return(stored, nil)
		f.store.On("Delete", mock.Anything, stored.Path).Return(errors.New("denied"))

		err := f.svc.DeleteFile(context.Background(), sessionID, fileID, bobID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRemoteOperation))
		f.files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("student cannot delete", func(t *testing.T) {
		f := newRoomFixture(t)
		err := f.svc.DeleteFile(context.Background(), sessionID, fileID, aliceID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	})

	t.Run("unknown file", func(t *testing.T) {
		f := newRoomFixture(t)
		f.files.On("FindByID", mock.Anything, sessionID, fileID).Return(nil, nil)
		err := f.svc.DeleteFile(context.Background(), sessionID, fileID, bobID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestRoomService_WatchMessages(t *testing.T) {
	f := newRoomFixture(t)
	f.messages.On("ListBySession", mock.Anything, sessionID).Return([]model.ChatMessage{{ID: "m1"}}, nil)

	snapshots := make(chan []model.ChatMessage, 10)
	stop, err := f.svc.WatchMessages(context.Background(), sessionID, aliceID, func(m []model.ChatMessage) {
		snapshots <- m
	}, nil)
	require.NoError(t, err)
	defer stop()

	select {
	case got := <-snapshots:
		assert.Len(t, got, 1)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	t.Run("outsider cannot watch", func(t *testing.T) {
		_, err := f.svc.WatchMessages(context.Background(), sessionID, carolID, func([]model.ChatMessage) {}, nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
	})
}

func TestRoomService_WatchFiles_ReportsLoadErrors(t *testing.T) {
	f := newRoomFixture(t)
	f.files.On("ListBySession", mock.Anything, sessionID).Return(nil, errors.New("down"))

	errs := make(chan error, 1)
	stop, err := f.svc.WatchFiles(context.Background(), sessionID, aliceID, func([]model.SharedFile) {
		t.Error("unexpected snapshot")
	}, func(err error) {
		errs <- err
	})
	require.NoError(t, err)
	defer stop()

	select {
	case err := <-errs:
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRemoteOperation))
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
}
