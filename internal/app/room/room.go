/*
Package room defines the two chat room kinds of the platform and the access rules
that gate websocket connections to them.

A Community is a many-member room with a configurable member limit; a PrivateRoom is
a fixed two-party room between a student and a tutor, scoped to one course.
*/
package room

import (
	"errors"
	"time"
)

// Kind discriminates the two room flavours carried in websocket paths.
type Kind string

const (
	KindCommunity Kind = "community"
	KindPrivate   Kind = "private"
)

// DefaultMaxMembers is the member limit applied to communities created without one.
const DefaultMaxMembers = 50

// Sentinel errors returned by the store and the guard. The websocket layer maps
// them onto close codes, the REST layer onto error responses.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotMember      = errors.New("user is not a community member")
	ErrNotParticipant = errors.New("user is not a room participant")
	ErrCommunityFull  = errors.New("community member limit reached")
	ErrAlreadyMember  = errors.New("user already joined the community")
)

// Community is a many-to-many chat scope owned by its creator.
type Community struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	MaxMembers  int       `json:"max_members"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrivateRoom is a two-party chat scope between a student and a tutor for one course.
// The participant slots are immutable after creation.
type PrivateRoom struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	TutorID   string    `json:"tutor_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OtherParticipant returns the participant that is not the sender. Assumes the
// fixed two-party shape; group private rooms would need a different model.
func (p PrivateRoom) OtherParticipant(senderID string) string {
	if senderID == p.StudentID {
		return p.TutorID
	}
	return p.StudentID
}

// Membership records one user's membership in one community.
type Membership struct {
	UserID      string    `json:"user_id"`
	CommunityID string    `json:"community_id"`
	JoinedAt    time.Time `json:"joined_at"`
}
