package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"sbchat/internal/app/notify"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
)

type fakeAuthenticator struct {
	tokens map[string]user.Identity
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (user.Identity, error) {
	identity, ok := f.tokens[token]
	if !ok {
		return user.Identity{}, errors.New("unknown token")
	}
	return identity, nil
}

type fakeAuthorizer struct {
	errs map[string]error // keyed by roomID, missing key means allowed
}

func (f *fakeAuthorizer) Authorize(_ context.Context, _ string, _ room.Kind, roomID string) error {
	return f.errs[roomID]
}

// memPresence is an in-memory counter store mirroring the Redis hash layout.
type memPresence struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func newMemPresence() *memPresence {
	return &memPresence{counts: make(map[string]map[string]int)}
}

func (m *memPresence) MarkOnline(_ context.Context, roomKey, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counts[roomKey] == nil {
		m.counts[roomKey] = make(map[string]int)
	}
	m.counts[roomKey][userID]++
	return nil
}

func (m *memPresence) MarkOffline(_ context.Context, roomKey, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counts[roomKey] == nil {
		return nil
	}
	m.counts[roomKey][userID]--
	if m.counts[roomKey][userID] <= 0 {
		delete(m.counts[roomKey], userID)
	}
	return nil
}

func (m *memPresence) ListOnline(_ context.Context, roomKey string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	online := make([]string, 0, len(m.counts[roomKey]))
	for userID, n := range m.counts[roomKey] {
		if n > 0 {
			online = append(online, userID)
		}
	}
	return online, nil
}

// chatFixture wires a Hub with in-memory collaborators behind a test server.
type chatFixture struct {
	hub      *Hub
	registry *Registry
	presence *memPresence
	rooms    *fakeAudienceDirectory
	guard    *fakeAuthorizer
	notifier *fakeNotifier
	server   *httptest.Server
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	registry := NewRegistry()
	presenceStore := newMemPresence()
	authenticator := &fakeAuthenticator{tokens: map[string]user.Identity{
		"token-alice": {ID: "alice", FirstName: "Alice"},
		"token-bob":   {ID: "bob", FirstName: "Bob"},
	}}
	guard := &fakeAuthorizer{errs: map[string]error{}}
	users := &fakeUserDirectory{users: map[string]user.Identity{
		"alice": {ID: "alice", FirstName: "Alice"},
		"bob":   {ID: "bob", FirstName: "Bob"},
	}}
	rooms := &fakeAudienceDirectory{memberIDs: []string{"alice", "bob"}}
	notifier := &fakeNotifier{}
	relayer := NewRelayer(&fakeMessageStore{}, rooms, users, registry, notifier)

	hub := NewHub(registry, presenceStore, authenticator, guard, users, relayer)
	hub.PresenceDebounce = 20 * time.Millisecond

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/community", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeRoom(conn, r.URL.Query().Get("token"), room.KindCommunity, r.URL.Query().Get("room"))
	})
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeRoom(conn, r.URL.Query().Get("token"), room.KindPrivate, r.URL.Query().Get("room"))
	})
	mux.HandleFunc("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeNotifications(conn, r.URL.Query().Get("token"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &chatFixture{
		hub:      hub,
		registry: registry,
		presence: presenceStore,
		rooms:    rooms,
		guard:    guard,
		notifier: notifier,
		server:   server,
	}
}

func (f *chatFixture) dial(t *testing.T, path, token, roomID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path + "?token=" + token
	if roomID != "" {
		url += "&room=" + roomID
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame decodes the next text frame into a generic map.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

// readUntilType skips frames until one of the wanted type arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, frameType string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if frame["type"] == frameType {
			return frame
		}
	}

	t.Fatalf("no %q frame received before deadline", frameType)
	return nil
}

// readUntilOnlineCount skips frames until a presence snapshot with the wanted
// number of online users arrives. Join order makes snapshot contents racy in
// between, so tests assert on the settled state only.
func readUntilOnlineCount(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if frame["type"] != FrameTypeOnlineUsers {
			continue
		}
		users, _ := frame["users"].([]any)
		if len(users) == want {
			return
		}
	}

	t.Fatalf("no presence snapshot with %d users received before deadline", want)
}

// expectClose asserts the next read fails with the given close code.
func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, code), "expected close code %d, got %v", code, err)
}

func TestSession_RejectsInvalidToken(t *testing.T) {
	fixture := newChatFixture(t)

	// When a client connects with an unknown token
	conn := fixture.dial(t, "/ws/community", "token-mallory", "go")

	// Then the socket is closed with the unauthenticated code
	expectClose(t, conn, CloseUnauthenticated)
}

func TestSession_RejectsUnknownRoom(t *testing.T) {
	fixture := newChatFixture(t)
	fixture.guard.errs["ghost"] = room.ErrRoomNotFound

	conn := fixture.dial(t, "/ws/community", "token-alice", "ghost")

	expectClose(t, conn, CloseRoomNotFound)
}

func TestSession_RejectsNonMember(t *testing.T) {
	fixture := newChatFixture(t)
	fixture.guard.errs["members-only"] = room.ErrNotMember

	conn := fixture.dial(t, "/ws/community", "token-alice", "members-only")

	expectClose(t, conn, CloseForbidden)
}

func TestSession_JoinSendsAcceptedAndPresenceSnapshot(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	// When alice joins a community room
	conn := fixture.dial(t, "/ws/community", "token-alice", "go")

	// Then she is acknowledged first
	accepted := readFrame(t, conn)
	req.Equal(FrameTypeAccepted, accepted["type"])
	req.Equal("go", accepted["room_id"])
	req.Equal("alice", accepted["user_id"])

	// Then the presence snapshot lists her as online
	snapshot := readUntilType(t, conn, FrameTypeOnlineUsers)
	users, ok := snapshot["users"].([]any)
	req.True(ok)
	req.Len(users, 1)
}

func TestSession_RelaysMessageToRoomPeers(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	aliceConn := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, aliceConn) // accepted

	bobConn := fixture.dial(t, "/ws/community", "token-bob", "go")
	readFrame(t, bobConn) // accepted

	// When alice sends a chat frame
	req.NoError(aliceConn.WriteJSON(map[string]string{"message": "hello bob"}))

	// Then bob receives the persisted message with sender details
	frame := readUntilType(t, bobConn, FrameTypeChatMessage)
	req.Equal("hello bob", frame["message"])
	req.Equal("alice", frame["sender_id"])
	req.Equal("Alice", frame["sender_name"])

	// Then alice receives her own message back as well
	echo := readUntilType(t, aliceConn, FrameTypeChatMessage)
	req.Equal("hello bob", echo["message"])
}

func TestSession_IgnoresMalformedFrames(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	conn := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, conn) // accepted

	// When the client sends garbage, an empty message and an oversized one
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	req.NoError(conn.WriteJSON(map[string]string{"message": ""}))
	req.NoError(conn.WriteJSON(map[string]string{"message": strings.Repeat("x", 5001)}))

	// Then the session survives and a valid message still goes through
	req.NoError(conn.WriteJSON(map[string]string{"message": "still here"}))
	frame := readUntilType(t, conn, FrameTypeChatMessage)
	req.Equal("still here", frame["message"])
}

func TestSession_MultiTabStaysOnlineUntilLastDisconnect(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	// Given alice connected from two tabs
	tab1 := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, tab1) // accepted
	tab2 := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, tab2) // accepted

	// When one tab closes and the debounce window passes
	req.NoError(tab2.Close())
	time.Sleep(4 * fixture.hub.PresenceDebounce)

	// Then alice is still online for the room
	online, err := fixture.presence.ListOnline(context.Background(), CommunityGroup("go"))
	req.NoError(err)
	req.Equal([]string{"alice"}, online)

	// When the last tab closes too
	req.NoError(tab1.Close())
	time.Sleep(4 * fixture.hub.PresenceDebounce)

	// Then she is gone from the room's online set
	online, err = fixture.presence.ListOnline(context.Background(), CommunityGroup("go"))
	req.NoError(err)
	req.Empty(online)
}

func TestSession_DisconnectSnapshotWaitsForDebounce(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	// Given bob watching the room and alice connected
	bobConn := fixture.dial(t, "/ws/community", "token-bob", "go")
	readFrame(t, bobConn) // accepted

	aliceConn := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, aliceConn) // accepted
	readUntilOnlineCount(t, bobConn, 2)

	// When alice disconnects
	req.NoError(aliceConn.Close())

	// Then the offline snapshot arrives only after the debounce window
	start := time.Now()
	readUntilOnlineCount(t, bobConn, 1)
	req.GreaterOrEqual(time.Since(start), fixture.hub.PresenceDebounce)
}

func TestSession_ReconnectWithinDebounceNeverShowsUserOffline(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	// A wide window so the redial below is always inside it.
	fixture.hub.PresenceDebounce = 100 * time.Millisecond

	// Given bob watching the room and alice connected
	bobConn := fixture.dial(t, "/ws/community", "token-bob", "go")
	readFrame(t, bobConn) // accepted

	aliceConn := fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, aliceConn) // accepted
	readUntilOnlineCount(t, bobConn, 2)

	// When alice drops and reconnects within the debounce window, the page
	// reload case the debounce exists for
	req.NoError(aliceConn.Close())
	aliceConn = fixture.dial(t, "/ws/community", "token-alice", "go")
	readFrame(t, aliceConn) // accepted

	// Then no snapshot bob sees during or after the window is missing alice
	snapshots := 0
	deadline := time.Now().Add(5 * fixture.hub.PresenceDebounce)
	for time.Now().Before(deadline) {
		req.NoError(bobConn.SetReadDeadline(deadline))
		_, raw, err := bobConn.ReadMessage()
		if err != nil {
			break // deadline reached, no more frames
		}

		var frame struct {
			Type  string `json:"type"`
			Users []struct {
				ID string `json:"id"`
			} `json:"users"`
		}
		req.NoError(json.Unmarshal(raw, &frame))
		if frame.Type != FrameTypeOnlineUsers {
			continue
		}

		snapshots++
		ids := make([]string, 0, len(frame.Users))
		for _, u := range frame.Users {
			ids = append(ids, u.ID)
		}
		req.Contains(ids, "alice")
	}
	req.Greater(snapshots, 0)
}

func TestSession_NotificationChannelReceivesPushedFrames(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	// Given alice connected to her personal channel
	conn := fixture.dial(t, "/ws/notifications", "token-alice", "")
	accepted := readFrame(t, conn)
	req.Equal(FrameTypeAccepted, accepted["type"])

	// When a notification is pushed to her user group
	delivered := fixture.registry.Broadcast(UserGroup("alice"), notify.Frame{
		Message:          "New message from Bob",
		NotificationType: notify.TypeMessage,
	})
	req.Equal(1, delivered)

	// Then the channel carries it
	frame := readFrame(t, conn)
	req.Equal("New message from Bob", frame["message"])
	req.Equal(notify.TypeMessage, frame["notification_type"])
}

func TestSession_NotificationChannelIgnoresInbound(t *testing.T) {
	req := require.New(t)
	fixture := newChatFixture(t)

	conn := fixture.dial(t, "/ws/notifications", "token-alice", "")
	readFrame(t, conn) // accepted

	// When the client writes a chat frame on the outbound-only channel
	req.NoError(conn.WriteJSON(map[string]string{"message": "hello?"}))

	// Then nothing is relayed
	time.Sleep(50 * time.Millisecond)
	req.Empty(fixture.notifier.calls)
}
