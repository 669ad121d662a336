package model

import (
	"time"
)

type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"sessionId"`
	Text      string    `db:"text" json:"text"`
	By        string    `db:"sender_id" json:"by"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateChatMessageParams struct {
	SessionID string
	Text      string
	By        string
	Name      string
}

type SharedFile struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	Name        string    `db:"name" json:"name"`
	URL         string    `db:"url" json:"url"`
	Path        string    `db:"path" json:"-"`
	By          string    `db:"uploaded_by" json:"by"`
	ContentType string    `db:"content_type" json:"contentType"`
	Size        int64     `db:"size" json:"size"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type CreateSharedFileParams struct {
	SessionID   string
	Name        string
	URL         string
	Path        string
	By          string
	ContentType string
	Size        int64
}
