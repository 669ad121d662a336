package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserProfile(t *testing.T) {
	p := NewUserProfile("u-1", "Ada", "ada@example.com")

	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, 5.0, p.Rate)
	assert.Equal(t, 0, p.RatingCount)
	assert.Equal(t, 2, p.Credits)
	assert.Equal(t, 1, p.Lvl)
	assert.Equal(t, "student", p.Role)

	t.Run("skill lists encode as empty arrays", func(t *testing.T) {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"skillsOffered":[]`)
		assert.Contains(t, string(data), `"skillsWanted":[]`)
	})
}

func TestUpdateProfileParams_IsEmpty(t *testing.T) {
	assert.True(t, UpdateProfileParams{}.IsEmpty())

	name := "Grace"
	assert.False(t, UpdateProfileParams{Name: &name}.IsEmpty())
	assert.False(t, UpdateProfileParams{SkillsWanted: []string{}}.IsEmpty())
}

func TestSession_Participants(t *testing.T) {
	s := &Session{TeacherID: "t-1", StudentID: "s-1"}

	t.Run("IsParticipant", func(t *testing.T) {
		assert.True(t, s.IsParticipant("t-1"))
		assert.True(t, s.IsParticipant("s-1"))
		assert.False(t, s.IsParticipant("x-1"))
		assert.False(t, s.IsParticipant(""))
	})

	t.Run("RoleOf", func(t *testing.T) {
		assert.Equal(t, RoleTeacher, s.RoleOf("t-1"))
		assert.Equal(t, RoleStudent, s.RoleOf("s-1"))
		assert.Equal(t, ParticipantRole(""), s.RoleOf("x-1"))
	})

	t.Run("Counterpart", func(t *testing.T) {
		assert.Equal(t, "s-1", s.Counterpart("t-1"))
		assert.Equal(t, "t-1", s.Counterpart("s-1"))
	})
}
