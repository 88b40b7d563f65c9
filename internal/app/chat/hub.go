package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sbchat/internal/app/message"
	"sbchat/internal/app/presence"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
	"sbchat/internal/pkg/logx"
)

// DefaultPresenceDebounce is how long a session waits after a disconnect before
// broadcasting the updated presence snapshot. It absorbs the near-instant
// disconnect+reconnect a page reload produces, so the list never flickers.
const DefaultPresenceDebounce = 200 * time.Millisecond

// Authenticator resolves the handshake bearer credential into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.Identity, error)
}

// Authorizer checks a connecting identity against a room's membership rule.
// Implemented by room.Guard.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, kind room.Kind, roomID string) error
}

// MessageRelay is the persist-then-fan-out path. Implemented by Relayer.
type MessageRelay interface {
	Relay(ctx context.Context, kind room.Kind, roomID, senderID, text string) (message.Message, error)
}

// Hub bundles the shared collaborators every session needs. One Hub per process,
// constructed at startup and passed down explicitly.
type Hub struct {
	registry *Registry
	presence presence.Store
	auth     Authenticator
	guard    Authorizer
	users    UserDirectory
	relayer  MessageRelay

	// PresenceDebounce is the disconnect debounce window. Exposed so tests can
	// shorten it; defaults to DefaultPresenceDebounce.
	PresenceDebounce time.Duration

	logger zerolog.Logger
}

// NewHub wires a Hub from its collaborators.
func NewHub(registry *Registry, presenceStore presence.Store, auth Authenticator, guard Authorizer, users UserDirectory, relayer MessageRelay) *Hub {
	return &Hub{
		registry:         registry,
		presence:         presenceStore,
		auth:             auth,
		guard:            guard,
		users:            users,
		relayer:          relayer,
		PresenceDebounce: DefaultPresenceDebounce,
		logger:           logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// ServeRoom runs the full session lifecycle for a room connection on the calling
// goroutine, returning when the connection closes.
func (h *Hub) ServeRoom(conn *websocket.Conn, token string, kind room.Kind, roomID string) {
	s := newSession(h, conn, token, kind, roomID)
	s.run()
}

// ServeNotifications runs the session lifecycle for a personal notification
// channel connection: authenticated, subscribed to the caller's user group only,
// no room and no presence tracking.
func (h *Hub) ServeNotifications(conn *websocket.Conn, token string) {
	s := newSession(h, conn, token, "", "")
	s.run()
}

// broadcastPresenceSnapshot reads the room's online set and broadcasts it to the
// room group: identity details for communities, bare ids for private rooms.
func (h *Hub) broadcastPresenceSnapshot(kind room.Kind, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	group := RoomGroup(kind, roomID)

	online, err := h.presence.ListOnline(ctx, group)
	if err != nil {
		h.logger.Error().Err(err).Str("group", group).Msg("Failed to read presence snapshot")
		return
	}

	switch kind {
	case room.KindCommunity:
		users, err := h.users.GetBatch(ctx, online)
		if err != nil {
			h.logger.Error().Err(err).Str("group", group).Msg("Failed to resolve online identities")
			return
		}
		h.registry.Broadcast(group, OnlineUsersFrame{Type: FrameTypeOnlineUsers, Users: users})

	case room.KindPrivate:
		h.registry.Broadcast(group, PresenceFrame{Type: FrameTypePresence, OnlineUserIDs: online})
	}
}
