package chat

import (
	"time"

	"sbchat/internal/app/user"
)

// Outbound frame type tags.
const (
	FrameTypeAccepted    = "accepted"
	FrameTypeChatMessage = "chat_message"
	FrameTypeOnlineUsers = "online_users"
	FrameTypePresence    = "presence"
)

// InboundFrame is the only client frame the receive loop understands. Any other
// shape is ignored without a reply.
type InboundFrame struct {
	Message string `json:"message"`
}

// AcceptedFrame is the initial acknowledgment sent once a session joins a room.
type AcceptedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// ChatMessageFrame carries a persisted message to the room's live connections.
type ChatMessageFrame struct {
	Type         string    `json:"type"`
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderAvatar string    `json:"sender_profile_pic,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OnlineUsersFrame is the community presence snapshot, carrying identity details
// for display.
type OnlineUsersFrame struct {
	Type  string          `json:"type"`
	Users []user.Identity `json:"users"`
}

// PresenceFrame is the private room presence snapshot, ids only.
type PresenceFrame struct {
	Type          string   `json:"type"`
	OnlineUserIDs []string `json:"online_user_ids"`
}
