package model

// SessionStatus is the lifecycle state of a Session. Only pending -> completed is
// driven by the ledger; no accept or reject step exists.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
)

type SessionMode string

const (
	SessionModeOnline SessionMode = "online"
)

// ParticipantRole is the caller's side of a Session.
type ParticipantRole string

const (
	RoleTeacher ParticipantRole = "teacher"
	RoleStudent ParticipantRole = "student"
)

const DefaultProfileRole = "student"
