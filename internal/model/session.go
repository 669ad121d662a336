package model

import (
	"time"
)

type Session struct {
	ID          string        `db:"id" json:"id"`
	TeacherID   string        `db:"teacher_id" json:"teacherId"`
	StudentID   string        `db:"student_id" json:"studentId"`
	TeacherName string        `db:"teacher_name" json:"teacherName"`
	StudentName string        `db:"student_name" json:"studentName"`
	Skill       string        `db:"skill" json:"skill"`
	Mode        SessionMode   `db:"mode" json:"mode"`
	Status      SessionStatus `db:"status" json:"status"`
	RatedUserID *string       `db:"rated_user_id" json:"ratedUserId,omitempty"`
	Rating      *int          `db:"rating" json:"rating,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
}

// IsParticipant reports whether userID is the teacher or the student.
func (s *Session) IsParticipant(userID string) bool {
	return userID != "" && (s.TeacherID == userID || s.StudentID == userID)
}

// RoleOf returns the role userID plays in the session, or "" for outsiders.
func (s *Session) RoleOf(userID string) ParticipantRole {
	switch userID {
	case s.TeacherID:
		return RoleTeacher
	case s.StudentID:
		return RoleStudent
	default:
		return ""
	}
}

// Counterpart returns the other participant's id.
func (s *Session) Counterpart(userID string) string {
	if userID == s.TeacherID {
		return s.StudentID
	}
	return s.TeacherID
}

type CreateSessionParams struct {
	TeacherID   string
	StudentID   string
	TeacherName string
	StudentName string
	Skill       string
	Mode        SessionMode
}

type CompleteSessionParams struct {
	RatedUserID string
	Rating      int
	CompletedAt time.Time
}

// SessionView is a session as listed for one participant.
type SessionView struct {
	Session
	Role      ParticipantRole `json:"role"`
	OtherName string          `json:"otherName"`
}
