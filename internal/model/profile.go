package model

import (
	"time"

	"github.com/lib/pq"
)

// Profile defaults applied when an account is created.
const (
	DefaultRate          = 5.0
	DefaultLevel         = 1
	DefaultSignupCredits = 2
)

type UserProfile struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Email         string         `db:"email" json:"email,omitempty"`
	SkillsOffered pq.StringArray `db:"skills_offered" json:"skillsOffered"`
	SkillsWanted  pq.StringArray `db:"skills_wanted" json:"skillsWanted"`
	Rate          float64        `db:"rate" json:"rate"`
	RatingCount   int            `db:"rating_count" json:"ratingCount"`
	Credits       int            `db:"credits" json:"credits"`
	Lvl           int            `db:"lvl" json:"lvl"`
	Role          string         `db:"role" json:"role"`
	Title         string         `db:"title" json:"title"`
	Bio           string         `db:"bio" json:"bio"`
	Avatar        string         `db:"avatar" json:"avatar,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewUserProfile returns a profile carrying every default in one place.
func NewUserProfile(id, name, email string) UserProfile {
	return UserProfile{
		ID:            id,
		Name:          name,
		Email:         email,
		SkillsOffered: pq.StringArray{},
		SkillsWanted:  pq.StringArray{},
		Rate:          DefaultRate,
		RatingCount:   0,
		Credits:       DefaultSignupCredits,
		Lvl:           DefaultLevel,
		Role:          DefaultProfileRole,
	}
}

// UpdateProfileParams is a merge update: nil fields are left untouched.
type UpdateProfileParams struct {
	Name          *string
	SkillsOffered []string
	SkillsWanted  []string
	Title         *string
	Bio           *string
	Avatar        *string
}

func (p UpdateProfileParams) IsEmpty() bool {
	return p.Name == nil && p.SkillsOffered == nil && p.SkillsWanted == nil &&
		p.Title == nil && p.Bio == nil && p.Avatar == nil
}

// LedgerDivergence is a profile whose rating count disagrees with the number of
// completed sessions in which it was rated.
type LedgerDivergence struct {
	UserID            string `db:"user_id" json:"userId"`
	RatingCount       int    `db:"rating_count" json:"ratingCount"`
	CompletedSessions int    `db:"completed_sessions" json:"completedSessions"`
}
