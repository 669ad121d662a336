package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/skillswap/exchange-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sqlxDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1
	`, email)
	return HandleNotFound(&user, err)
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING *
	`, params.Email, params.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = $2 WHERE id = $1
	`, id, time.Now())
	return err
}
