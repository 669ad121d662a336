package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/skillswap/exchange-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByTeacher(ctx context.Context, teacherID string) ([]model.Session, error)
	FindByStudent(ctx context.Context, studentID string) ([]model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// MarkCompleted moves a pending session to completed. It reports false when the
	// session was not pending, leaving the row untouched.
	MarkCompleted(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db sqlxDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByTeacher(ctx context.Context, teacherID string) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) FindByStudent(ctx context.Context, studentID string) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE student_id = $1
		ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	mode := params.Mode
	if mode == "" {
		mode = model.SessionModeOnline
	}

	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (teacher_id, student_id, teacher_name, student_name, skill, mode, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.TeacherID, params.StudentID, params.TeacherName, params.StudentName,
		params.Skill, mode, model.SessionStatusPending)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'completed',
			rated_user_id = $2,
			rating = $3,
			completed_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, params.RatedUserID, params.Rating, params.CompletedAt)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
