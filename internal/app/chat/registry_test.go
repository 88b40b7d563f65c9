package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"sbchat/internal/app/room"
)

// fakeSubscriber records every payload it accepts. Setting full makes Enqueue
// refuse, simulating a saturated or closed session queue.
type fakeSubscriber struct {
	id       string
	full     bool
	payloads [][]byte
}

func (f *fakeSubscriber) UserID() string { return f.id }

func (f *fakeSubscriber) Enqueue(payload []byte) bool {
	if f.full {
		return false
	}
	f.payloads = append(f.payloads, payload)
	return true
}

func TestRegistry_BroadcastReachesGroupMembersOnly(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given two connections in one community and one in another
	alice := &fakeSubscriber{id: "alice"}
	bob := &fakeSubscriber{id: "bob"}
	carol := &fakeSubscriber{id: "carol"}
	registry.Add(CommunityGroup("go"), alice)
	registry.Add(CommunityGroup("go"), bob)
	registry.Add(CommunityGroup("rust"), carol)

	// When a frame is broadcast to the first community
	delivered := registry.Broadcast(CommunityGroup("go"), map[string]string{"type": "chat_message"})

	// Then both members receive it and the outsider does not
	req.Equal(2, delivered)
	req.Len(alice.payloads, 1)
	req.Len(bob.payloads, 1)
	req.Empty(carol.payloads)

	var frame map[string]string
	req.NoError(json.Unmarshal(alice.payloads[0], &frame))
	req.Equal("chat_message", frame["type"])
}

func TestRegistry_AddIsIdempotentPerConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given the same connection registered twice
	alice := &fakeSubscriber{id: "alice"}
	registry.Add(PrivateGroup("r1"), alice)
	registry.Add(PrivateGroup("r1"), alice)

	// When a frame is broadcast
	delivered := registry.Broadcast(PrivateGroup("r1"), map[string]string{"type": "presence"})

	// Then it is delivered exactly once
	req.Equal(1, delivered)
	req.Len(alice.payloads, 1)
	req.Equal(1, registry.GroupSize(PrivateGroup("r1")))
}

func TestRegistry_RemoveIsNoOpWhenAbsent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	alice := &fakeSubscriber{id: "alice"}
	registry.Add(UserGroup("alice"), alice)

	// When the connection is removed twice and an unknown group is touched
	registry.Remove(UserGroup("alice"), alice)
	registry.Remove(UserGroup("alice"), alice)
	registry.Remove(UserGroup("nobody"), alice)

	// Then the group is empty and broadcasts reach no one
	req.Equal(0, registry.GroupSize(UserGroup("alice")))
	req.Equal(0, registry.Broadcast(UserGroup("alice"), map[string]string{}))
}

func TestRegistry_BroadcastSkipsSaturatedSubscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given one healthy and one saturated connection in the same group
	healthy := &fakeSubscriber{id: "healthy"}
	saturated := &fakeSubscriber{id: "saturated", full: true}
	registry.Add(CommunityGroup("go"), healthy)
	registry.Add(CommunityGroup("go"), saturated)

	// When a frame is broadcast
	delivered := registry.Broadcast(CommunityGroup("go"), map[string]string{"type": "chat_message"})

	// Then the healthy connection still receives it
	req.Equal(1, delivered)
	req.Len(healthy.payloads, 1)
	req.Empty(saturated.payloads)
}

func TestRegistry_GroupKeysDoNotCollideAcrossKinds(t *testing.T) {
	req := require.New(t)

	// A community and a private room sharing an id map to distinct groups,
	// and personal channels live in their own namespace.
	req.NotEqual(CommunityGroup("42"), PrivateGroup("42"))
	req.NotEqual(CommunityGroup("42"), UserGroup("42"))
	req.Equal(CommunityGroup("42"), RoomGroup(room.KindCommunity, "42"))
	req.Equal(PrivateGroup("42"), RoomGroup(room.KindPrivate, "42"))
}
