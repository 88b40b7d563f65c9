package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sbchat/internal/app/message"
	"sbchat/internal/app/notify"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
	"sbchat/internal/pkg/logx"
)

// MessageStore persists chat messages. Implemented by message.Store.
type MessageStore interface {
	SaveCommunity(ctx context.Context, communityID, senderID, text string) (message.Message, error)
	SavePrivate(ctx context.Context, roomID, senderID, text string) (message.Message, error)
}

// AudienceDirectory resolves who should be notified about a room message.
type AudienceDirectory interface {
	ListMemberIDs(ctx context.Context, communityID string) ([]string, error)
	GetPrivateRoom(ctx context.Context, id string) (room.PrivateRoom, error)
}

// UserDirectory resolves identities for frame payloads and presence snapshots.
type UserDirectory interface {
	Get(ctx context.Context, id string) (user.Identity, error)
	GetBatch(ctx context.Context, ids []string) ([]user.Identity, error)
}

// Notifier submits asynchronous per-recipient notifications. Implemented by
// notify.Dispatcher.
type Notifier interface {
	Notify(userID, notificationType, text string)
}

// Relayer implements the persist-then-fan-out path for inbound chat messages.
type Relayer struct {
	messages MessageStore
	rooms    AudienceDirectory
	users    UserDirectory
	registry *Registry
	notifier Notifier

	logger zerolog.Logger
}

// NewRelayer wires a Relayer from its collaborators.
func NewRelayer(messages MessageStore, rooms AudienceDirectory, users UserDirectory, registry *Registry, notifier Notifier) *Relayer {
	return &Relayer{
		messages: messages,
		rooms:    rooms,
		users:    users,
		registry: registry,
		notifier: notifier,
		logger:   logx.Logger().With().Str("component", "Relayer").Logger(),
	}
}

// Relay durably stores a chat message and fans it out. Persistence must succeed
// first; a persistence failure aborts the relay and surfaces to the caller. The
// notification dispatch and the room broadcast that follow are each best-effort
// and isolated from one another: a failure in either is logged with room and
// sender context and never tears down the calling session.
func (rl *Relayer) Relay(ctx context.Context, kind room.Kind, roomID, senderID, text string) (message.Message, error) {
	sender, err := rl.users.Get(ctx, senderID)
	if err != nil {
		// The sender passed authentication earlier; a lookup failure here is
		// transient, so fall back to the raw id rather than dropping the message.
		rl.logger.Warn().Err(err).
			Str("room_id", roomID).
			Str("sender_id", senderID).
			Msg("Sender identity lookup failed, using id as display name")
		sender = user.Identity{ID: senderID, FirstName: senderID}
	}

	var msg message.Message
	switch kind {
	case room.KindCommunity:
		msg, err = rl.messages.SaveCommunity(ctx, roomID, senderID, text)
	case room.KindPrivate:
		msg, err = rl.messages.SavePrivate(ctx, roomID, senderID, text)
	default:
		return message.Message{}, fmt.Errorf("unknown room kind %q", kind)
	}
	if err != nil {
		return message.Message{}, fmt.Errorf("persist message in %s %s: %w", kind, roomID, err)
	}

	audience, err := rl.audience(ctx, kind, roomID, senderID)
	if err != nil {
		rl.logger.Error().Err(err).
			Str("room_id", roomID).
			Str("sender_id", senderID).
			Msg("Failed to compute relay audience, skipping notifications")
	} else {
		notificationText := fmt.Sprintf("New message from %s", sender.FullName())
		for _, recipientID := range audience {
			rl.notifier.Notify(recipientID, notify.TypeMessage, notificationText)
		}
	}

	rl.registry.Broadcast(RoomGroup(kind, roomID), ChatMessageFrame{
		Type:         FrameTypeChatMessage,
		ID:           msg.ID,
		Message:      msg.Text,
		SenderID:     sender.ID,
		SenderName:   sender.FullName(),
		SenderAvatar: sender.Avatar,
		CreatedAt:    msg.CreatedAt,
	})

	return msg, nil
}

// audience returns the recipients of step-3 notifications: every current member
// minus the sender for a community, the single other participant for a private room.
func (rl *Relayer) audience(ctx context.Context, kind room.Kind, roomID, senderID string) ([]string, error) {
	switch kind {
	case room.KindCommunity:
		memberIDs, err := rl.rooms.ListMemberIDs(ctx, roomID)
		if err != nil {
			return nil, err
		}

		audience := make([]string, 0, len(memberIDs))
		for _, id := range memberIDs {
			if id != senderID {
				audience = append(audience, id)
			}
		}
		return audience, nil

	case room.KindPrivate:
		p, err := rl.rooms.GetPrivateRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return []string{p.OtherParticipant(senderID)}, nil

	default:
		return nil, fmt.Errorf("unknown room kind %q", kind)
	}
}
