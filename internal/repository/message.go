package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/skillswap/exchange-server-go/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error)
	// ListBySession returns messages oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db sqlxDB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateChatMessageParams) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO session_messages (session_id, text, sender_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.SessionID, params.Text, params.By, params.Name)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	messages := []model.ChatMessage{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
