package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/skillswap/exchange-server-go/internal/model"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*model.UserProfile, error)
	FindAll(ctx context.Context) ([]model.UserProfile, error)
	List(ctx context.Context, limit, offset int) ([]model.UserProfile, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, profile model.UserProfile) (*model.UserProfile, error)
	Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error)
	ApplyRating(ctx context.Context, id string, rate float64, ratingCount, credits int) (*model.UserProfile, error)
	// IncrementRating folds one rating into the stored aggregate in a single
	// statement, so concurrent ratings of the same user all land.
	IncrementRating(ctx context.Context, id string, rating, credits int) (*model.UserProfile, error)
	FindLedgerDivergences(ctx context.Context) ([]model.LedgerDivergence, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ProfileRepository
}

type profileRepo struct {
	db sqlxDB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) WithTx(tx *sqlx.Tx) ProfileRepository {
	return &profileRepo{db: tx}
}

func (r *profileRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM profiles WHERE id = $1
	`, id)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM profiles WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) FindAll(ctx context.Context) ([]model.UserProfile, error) {
	profiles := []model.UserProfile{}
	err := r.db.SelectContext(ctx, &profiles, `
		SELECT * FROM profiles ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepo) List(ctx context.Context, limit, offset int) ([]model.UserProfile, error) {
	profiles := []model.UserProfile{}
	err := r.db.SelectContext(ctx, &profiles, `
		SELECT * FROM profiles
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM profiles`)
	return count, err
}

func (r *profileRepo) Create(ctx context.Context, p model.UserProfile) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		INSERT INTO profiles (id, name, email, skills_offered, skills_wanted, rate, rating_count, credits, lvl, role, title, bio, avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *
	`, p.ID, p.Name, p.Email, p.SkillsOffered, p.SkillsWanted, p.Rate, p.RatingCount,
		p.Credits, p.Lvl, p.Role, p.Title, p.Bio, p.Avatar)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		UPDATE profiles SET
			name = COALESCE($2, name),
			skills_offered = COALESCE($3, skills_offered),
			skills_wanted = COALESCE($4, skills_wanted),
			title = COALESCE($5, title),
			bio = COALESCE($6, bio),
			avatar = COALESCE($7, avatar),
			updated_at = $8
		WHERE id = $1
		RETURNING *
	`, id, params.Name, nullableArray(params.SkillsOffered), nullableArray(params.SkillsWanted),
		params.Title, params.Bio, params.Avatar, time.Now())
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) ApplyRating(ctx context.Context, id string, rate float64, ratingCount, credits int) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		UPDATE profiles SET
			rate = $2,
			rating_count = $3,
			credits = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`, id, rate, ratingCount, credits, time.Now())
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) IncrementRating(ctx context.Context, id string, rating, credits int) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		UPDATE profiles SET
			rate = ROUND(
				((CASE WHEN rate > 0 THEN rate ELSE $5 END) * GREATEST(rating_count, 0) + $2)::numeric
					/ (GREATEST(rating_count, 0) + 1),
				1),
			rating_count = rating_count + 1,
			credits = credits + $3,
			updated_at = $4
		WHERE id = $1
		RETURNING *
	`, id, rating, credits, time.Now(), model.DefaultRate)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) FindLedgerDivergences(ctx context.Context) ([]model.LedgerDivergence, error) {
	divergences := []model.LedgerDivergence{}
	err := r.db.SelectContext(ctx, &divergences, `
		SELECT p.id AS user_id, p.rating_count, COUNT(s.id) AS completed_sessions
		FROM profiles p
		LEFT JOIN sessions s ON s.rated_user_id = p.id AND s.status = 'completed'
		GROUP BY p.id, p.rating_count
		HAVING p.rating_count <> COUNT(s.id)
		ORDER BY p.id
	`)
	if err != nil {
		return nil, err
	}
	return divergences, nil
}

// nullableArray keeps nil as SQL NULL so COALESCE leaves the column alone.
func nullableArray(values []string) interface{} {
	if values == nil {
		return nil
	}
	return pq.StringArray(values)
}
