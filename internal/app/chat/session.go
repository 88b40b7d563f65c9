package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sbchat/internal/app/message"
	"sbchat/internal/app/room"
	"sbchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// timeout for token verification and the room access check.
	authTimeout = 10 * time.Second

	// timeout for one persist-and-relay pass.
	relayTimeout = 15 * time.Second

	// capacity of the per-session outbound queue.
	sendQueueSize = 256
)

// Application close codes sent when a handshake is rejected.
const (
	// CloseUnauthenticated signals a missing, malformed or expired credential.
	CloseUnauthenticated = 4001

	// CloseForbidden signals that the identity is not a member/participant of the room.
	CloseForbidden = 4003

	// CloseRoomNotFound signals that the room id did not resolve.
	CloseRoomNotFound = 4004
)

// State is the session lifecycle position. Transitions are linear, from
// Connecting through Authorizing and Joined to Closed, with a terminal Rejected
// branch out of Authorizing.
type State uint8

const (
	StateConnecting State = iota
	StateAuthorizing
	StateJoined
	StateClosed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Session is the per-connection state machine. It owns the websocket for its
// lifetime and implements Subscriber for registry fan-out.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	token  string
	kind   room.Kind // empty for notification-channel sessions
	roomID string
	group  string

	identity sessionIdentity
	state    State

	// send queues outbound payloads for the write pump. sendMu and sendClosed
	// make Enqueue safe against a concurrent close of the channel.
	send       chan []byte
	sendMu     sync.RWMutex
	sendClosed bool

	logger zerolog.Logger
}

// sessionIdentity is the resolved identity of the connected user.
type sessionIdentity struct {
	id        string
	firstName string
}

func newSession(hub *Hub, conn *websocket.Conn, token string, kind room.Kind, roomID string) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		token:  token,
		kind:   kind,
		roomID: roomID,
		state:  StateConnecting,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("component", "Session").Logger(),
	}
}

// UserID implements Subscriber.
func (s *Session) UserID() string { return s.identity.id }

// Enqueue implements Subscriber: non-blocking, returns false when the queue is
// full or the session already closed.
func (s *Session) Enqueue(payload []byte) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.sendClosed {
		return false
	}

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) enqueueFrame(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal outbound frame")
		return
	}
	if !s.Enqueue(payload) {
		s.logger.Warn().Msg("Session send queue full, dropping frame")
	}
}

func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
}

func (s *Session) isRoomSession() bool { return s.kind != "" }

// run drives the state machine from handshake to close.
func (s *Session) run() {
	s.state = StateAuthorizing

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	identity, err := s.hub.auth.Authenticate(ctx, s.token)
	if err != nil {
		s.logger.Info().Err(err).Msg("Connection rejected: authentication failed")
		s.reject(CloseUnauthenticated, "unauthenticated")
		return
	}
	s.identity = sessionIdentity{id: identity.ID, firstName: identity.FirstName}

	if s.isRoomSession() {
		s.group = RoomGroup(s.kind, s.roomID)
	} else {
		s.group = UserGroup(identity.ID)
	}

	s.logger = logx.Logger().With().
		Str("component", "Session").
		Str("user_id", identity.ID).
		Str("group", s.group).
		Logger()

	if s.isRoomSession() {
		if err := s.hub.guard.Authorize(ctx, identity.ID, s.kind, s.roomID); err != nil {
			switch {
			case errors.Is(err, room.ErrRoomNotFound):
				s.logger.Info().Msg("Connection rejected: room not found")
				s.reject(CloseRoomNotFound, "room not found")
			case errors.Is(err, room.ErrNotMember), errors.Is(err, room.ErrNotParticipant):
				s.logger.Info().Msg("Connection rejected: not a member or participant")
				s.reject(CloseForbidden, "forbidden")
			default:
				s.logger.Error().Err(err).Msg("Connection rejected: authorization check failed")
				s.reject(websocket.CloseInternalServerErr, "authorization unavailable")
			}
			return
		}
	}

	s.join(ctx)

	go s.writePump()
	s.readPump()
}

// join performs the Joined entry actions exactly once and in order: register the
// connection, record presence, acknowledge the client, broadcast the snapshot.
func (s *Session) join(ctx context.Context) {
	s.state = StateJoined
	s.hub.registry.Add(s.group, s)

	if s.isRoomSession() {
		if err := s.hub.presence.MarkOnline(ctx, s.group, s.identity.id); err != nil {
			// Presence store outage degrades the online list, not the chat itself.
			s.logger.Error().Err(err).Msg("Failed to mark session online")
		}
	}

	s.enqueueFrame(AcceptedFrame{Type: FrameTypeAccepted, RoomID: s.roomID, UserID: s.identity.id})

	if s.isRoomSession() {
		s.hub.broadcastPresenceSnapshot(s.kind, s.roomID)
	}

	s.logger.Info().Msg("Session joined")
}

// leave performs the Closed exit actions: deregister, mark offline, and after
// the debounce window broadcast the updated presence snapshot.
func (s *Session) leave() {
	if s.state != StateJoined {
		return
	}
	s.state = StateClosed

	s.hub.registry.Remove(s.group, s)

	if s.isRoomSession() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.hub.presence.MarkOffline(ctx, s.group, s.identity.id); err != nil {
			s.logger.Error().Err(err).Msg("Failed to mark session offline")
		}

		kind, roomID := s.kind, s.roomID
		hub := s.hub
		time.AfterFunc(hub.PresenceDebounce, func() {
			hub.broadcastPresenceSnapshot(kind, roomID)
		})
	}

	s.closeSend()
	s.logger.Info().Msg("Session left")
}

// reject closes the handshake with an application close code. Terminal.
func (s *Session) reject(code int, reason string) {
	s.state = StateRejected

	closeMessage := websocket.FormatCloseMessage(code, reason)

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		s.logger.Warn().Err(err).Int("close_code", code).Msg("Failed to write rejection close frame")
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Connection close error after rejection")
	}
}

// readPump handles reading frames from the WebSocket connection. It handles
// heartbeats (Pong), message parsing, and performs cleanup upon connection closure.
func (s *Session) readPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.processInbound(raw)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the session's readPump terminates.
func (s *Session) cleanupOnDisconnect() {
	s.leave()

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInbound handles one raw client frame. Malformed or empty frames are
// ignored without a reply, and no failure here ends the session.
func (s *Session) processInbound(raw []byte) {
	if !s.isRoomSession() {
		// The notification channel is outbound-only.
		return
	}

	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid JSON, ignoring frame")
		return
	}

	if frame.Message == "" {
		return
	}

	if len(frame.Message) > message.MaxContentBytes {
		s.logger.Warn().Int("content_bytes", len(frame.Message)).Msg("Message content too long, ignoring frame")
		return
	}

	// Relay synchronously: the loop does not read the next frame until
	// persistence is done, preserving per-sender ordering. The context is not
	// tied to the connection, so an in-flight relay outlives a disconnect.
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	if _, err := s.hub.relayer.Relay(ctx, s.kind, s.roomID, s.identity.id, frame.Message); err != nil {
		s.logger.Error().Err(err).Msg("Failed to relay message, session stays open")
	}
}

// writePump handles writing queued payloads to the WebSocket connection and the
// periodic Ping heartbeat.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Connection close error in writePump")
		}
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if !s.writeQueuedPayload(payload, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedPayload writes one payload pulled from the send channel.
// Returns true if the writePump loop should continue, false if it should terminate.
func (s *Session) writeQueuedPayload(payload []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping to maintain the connection heartbeat.
// Returns false if the writePump loop should terminate due to write failure.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
