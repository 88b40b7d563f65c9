package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sbchat/internal/app/message"
	"sbchat/internal/app/notify"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
)

type fakeMessageStore struct {
	saveErr error
	saved   []message.Message
}

func (f *fakeMessageStore) SaveCommunity(_ context.Context, communityID, senderID, text string) (message.Message, error) {
	return f.save(room.KindCommunity, communityID, senderID, text)
}

func (f *fakeMessageStore) SavePrivate(_ context.Context, roomID, senderID, text string) (message.Message, error) {
	return f.save(room.KindPrivate, roomID, senderID, text)
}

func (f *fakeMessageStore) save(kind room.Kind, roomID, senderID, text string) (message.Message, error) {
	if f.saveErr != nil {
		return message.Message{}, f.saveErr
	}
	msg := message.Message{
		ID:        "m1",
		RoomKind:  kind,
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	f.saved = append(f.saved, msg)
	return msg, nil
}

type fakeAudienceDirectory struct {
	memberIDs  []string
	membersErr error
	private    room.PrivateRoom
	privateErr error
}

func (f *fakeAudienceDirectory) ListMemberIDs(_ context.Context, _ string) ([]string, error) {
	return f.memberIDs, f.membersErr
}

func (f *fakeAudienceDirectory) GetPrivateRoom(_ context.Context, _ string) (room.PrivateRoom, error) {
	return f.private, f.privateErr
}

type fakeUserDirectory struct {
	users  map[string]user.Identity
	getErr error
}

func (f *fakeUserDirectory) Get(_ context.Context, id string) (user.Identity, error) {
	if f.getErr != nil {
		return user.Identity{}, f.getErr
	}
	identity, ok := f.users[id]
	if !ok {
		return user.Identity{}, errors.New("user not found")
	}
	return identity, nil
}

func (f *fakeUserDirectory) GetBatch(_ context.Context, ids []string) ([]user.Identity, error) {
	identities := make([]user.Identity, 0, len(ids))
	for _, id := range ids {
		if identity, ok := f.users[id]; ok {
			identities = append(identities, identity)
		}
	}
	return identities, nil
}

type notifyCall struct {
	userID           string
	notificationType string
	text             string
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) Notify(userID, notificationType, text string) {
	f.calls = append(f.calls, notifyCall{userID, notificationType, text})
}

func newRelayFixture() (*Relayer, *fakeMessageStore, *fakeAudienceDirectory, *fakeUserDirectory, *fakeNotifier, *Registry) {
	messages := &fakeMessageStore{}
	rooms := &fakeAudienceDirectory{}
	users := &fakeUserDirectory{users: map[string]user.Identity{
		"alice": {ID: "alice", FirstName: "Alice", LastName: "Ngo"},
		"bob":   {ID: "bob", FirstName: "Bob"},
		"carol": {ID: "carol", FirstName: "Carol"},
	}}
	notifier := &fakeNotifier{}
	registry := NewRegistry()

	return NewRelayer(messages, rooms, users, registry, notifier), messages, rooms, users, notifier, registry
}

func TestRelayer_CommunityMessagePersistsNotifiesAndBroadcasts(t *testing.T) {
	req := require.New(t)
	relayer, messages, rooms, _, notifier, registry := newRelayFixture()

	// Given a community with three members, two of them connected
	rooms.memberIDs = []string{"alice", "bob", "carol"}
	aliceConn := &fakeSubscriber{id: "alice"}
	bobConn := &fakeSubscriber{id: "bob"}
	registry.Add(CommunityGroup("go"), aliceConn)
	registry.Add(CommunityGroup("go"), bobConn)

	// When alice sends a message
	msg, err := relayer.Relay(context.Background(), room.KindCommunity, "go", "alice", "hello all")

	// Then the message is persisted
	req.NoError(err)
	req.Equal("hello all", msg.Text)
	req.Len(messages.saved, 1)

	// Then every member except the sender gets a notification
	req.Len(notifier.calls, 2)
	recipients := map[string]bool{}
	for _, call := range notifier.calls {
		recipients[call.userID] = true
		req.Equal(notify.TypeMessage, call.notificationType)
		req.Equal("New message from Alice Ngo", call.text)
	}
	req.True(recipients["bob"])
	req.True(recipients["carol"])
	req.False(recipients["alice"])

	// Then every live connection, the sender's included, receives the frame
	req.Len(aliceConn.payloads, 1)
	req.Len(bobConn.payloads, 1)

	var frame ChatMessageFrame
	req.NoError(json.Unmarshal(bobConn.payloads[0], &frame))
	req.Equal(FrameTypeChatMessage, frame.Type)
	req.Equal("hello all", frame.Message)
	req.Equal("alice", frame.SenderID)
	req.Equal("Alice Ngo", frame.SenderName)
}

func TestRelayer_PrivateMessageNotifiesOtherParticipant(t *testing.T) {
	req := require.New(t)
	relayer, _, rooms, _, notifier, registry := newRelayFixture()

	// Given a private room between alice and bob, with bob connected
	rooms.private = room.PrivateRoom{ID: "r1", StudentID: "alice", TutorID: "bob"}
	bobConn := &fakeSubscriber{id: "bob"}
	registry.Add(PrivateGroup("r1"), bobConn)

	// When alice sends a message
	_, err := relayer.Relay(context.Background(), room.KindPrivate, "r1", "alice", "hi bob")

	// Then only bob is notified and his connection receives the frame
	req.NoError(err)
	req.Len(notifier.calls, 1)
	req.Equal("bob", notifier.calls[0].userID)
	req.Len(bobConn.payloads, 1)
}

func TestRelayer_PersistenceFailureAbortsRelay(t *testing.T) {
	req := require.New(t)
	relayer, messages, rooms, _, notifier, registry := newRelayFixture()

	rooms.memberIDs = []string{"alice", "bob"}
	bobConn := &fakeSubscriber{id: "bob"}
	registry.Add(CommunityGroup("go"), bobConn)

	// Given a failing message store
	messages.saveErr = errors.New("connection refused")

	// When alice sends a message
	_, err := relayer.Relay(context.Background(), room.KindCommunity, "go", "alice", "hello")

	// Then the error surfaces and neither notifications nor broadcast happen
	req.Error(err)
	req.Empty(notifier.calls)
	req.Empty(bobConn.payloads)
}

func TestRelayer_AudienceFailureSkipsNotificationsButBroadcasts(t *testing.T) {
	req := require.New(t)
	relayer, messages, rooms, _, notifier, registry := newRelayFixture()

	// Given a membership lookup outage
	rooms.membersErr = errors.New("connection refused")
	bobConn := &fakeSubscriber{id: "bob"}
	registry.Add(CommunityGroup("go"), bobConn)

	// When alice sends a message
	msg, err := relayer.Relay(context.Background(), room.KindCommunity, "go", "alice", "hello")

	// Then the message is persisted and broadcast, notifications are skipped
	req.NoError(err)
	req.Len(messages.saved, 1)
	req.Equal("hello", msg.Text)
	req.Empty(notifier.calls)
	req.Len(bobConn.payloads, 1)
}

func TestRelayer_SenderLookupFailureFallsBackToID(t *testing.T) {
	req := require.New(t)
	relayer, _, rooms, users, notifier, _ := newRelayFixture()

	// Given an identity lookup outage
	users.getErr = errors.New("connection refused")
	rooms.memberIDs = []string{"alice", "bob"}

	// When alice sends a message
	_, err := relayer.Relay(context.Background(), room.KindCommunity, "go", "alice", "hello")

	// Then the message still relays, with the raw id as display name
	req.NoError(err)
	req.Len(notifier.calls, 1)
	req.Equal("New message from alice", notifier.calls[0].text)
}

func TestRelayer_UnknownRoomKindIsRejected(t *testing.T) {
	req := require.New(t)
	relayer, messages, _, _, _, _ := newRelayFixture()

	_, err := relayer.Relay(context.Background(), room.Kind("broadcast"), "x", "alice", "hello")

	req.Error(err)
	req.Empty(messages.saved)
}
