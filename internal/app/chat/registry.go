/*
Package chat contains the real-time core: the connection registry, the per-connection
session state machine, and the message persistence & relay path.

One registry instance serves every fan-out need of the process (room chat, presence
snapshots and personal notification channels), parameterized by group key.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"sbchat/internal/app/room"
	"sbchat/internal/pkg/logx"
)

// Subscriber is a live connection registered under one or more groups. The
// registry never blocks on a subscriber: Enqueue must be non-blocking and report
// whether the payload was accepted.
type Subscriber interface {
	UserID() string
	Enqueue(payload []byte) bool
}

// Group key derivation. Rooms and personal channels share one namespace.
func CommunityGroup(id string) string { return string(room.KindCommunity) + ":" + id }
func PrivateGroup(id string) string   { return string(room.KindPrivate) + ":" + id }
func UserGroup(id string) string      { return "user:" + id }

// RoomGroup derives the group key for a room of the given kind.
func RoomGroup(kind room.Kind, id string) string {
	return string(kind) + ":" + id
}

// Registry is the in-process mapping from group key to the set of live
// connections subscribed to it.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[Subscriber]struct{}),
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Add registers a connection under a group. Idempotent per connection.
func (r *Registry) Add(group string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.groups[group]
	if !ok {
		subs = make(map[Subscriber]struct{})
		r.groups[group] = subs
	}
	subs[sub] = struct{}{}
}

// Remove deregisters a connection. No-op if absent, guarding against
// double-disconnect.
func (r *Registry) Remove(group string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.groups[group]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(r.groups, group)
	}
}

// Broadcast delivers frame to every connection currently registered for the
// group, best-effort. The frame is marshaled once; each delivery is attempted
// independently, and a slow or broken consumer is logged and skipped rather than
// blocking the rest. Returns the number of successful deliveries.
func (r *Registry) Broadcast(group string, frame any) int {
	payload, err := json.Marshal(frame)
	if err != nil {
		r.logger.Error().Err(err).Str("group", group).Msg("Failed to marshal broadcast frame")
		return 0
	}

	r.mu.RLock()
	subs := make([]Subscriber, 0, len(r.groups[group]))
	for sub := range r.groups[group] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.Enqueue(payload) {
			delivered++
			continue
		}
		r.logger.Warn().
			Str("group", group).
			Str("user_id", sub.UserID()).
			Msg("Subscriber queue full or closed, dropping frame")
	}

	return delivered
}

// GroupSize returns the number of connections currently registered for a group.
func (r *Registry) GroupSize(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}
