package room

import (
	"context"
	"fmt"
)

// Directory is the read surface the guard needs from the room store.
type Directory interface {
	GetCommunity(ctx context.Context, id string) (Community, error)
	IsMember(ctx context.Context, userID, communityID string) (bool, error)
	GetPrivateRoom(ctx context.Context, id string) (PrivateRoom, error)
}

// Guard authorizes a connecting identity against a room's membership rule.
// It has no side effects and must run before a connection is registered.
type Guard struct {
	rooms Directory
}

// NewGuard constructs a Guard over the given directory.
func NewGuard(rooms Directory) *Guard {
	return &Guard{rooms: rooms}
}

// Authorize returns nil when userID may connect to the room, or one of
// ErrRoomNotFound, ErrNotMember, ErrNotParticipant.
func (g *Guard) Authorize(ctx context.Context, userID string, kind Kind, roomID string) error {
	switch kind {
	case KindCommunity:
		if _, err := g.rooms.GetCommunity(ctx, roomID); err != nil {
			return err
		}

		isMember, err := g.rooms.IsMember(ctx, userID, roomID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotMember
		}
		return nil

	case KindPrivate:
		p, err := g.rooms.GetPrivateRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if userID != p.StudentID && userID != p.TutorID {
			return ErrNotParticipant
		}
		return nil

	default:
		return fmt.Errorf("unknown room kind %q", kind)
	}
}
