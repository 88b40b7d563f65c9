/*
Package presence tracks which users currently hold an open connection to which room.

State lives in Redis as one hash per room: field = user id, value = open connection
count. Counters rather than a plain set, because one user may hold several
simultaneous connections (multiple tabs); a user is online in a room iff their
count is > 0. The data is ephemeral and may be lost on a store restart.
*/
package presence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Store is the presence contract the chat sessions depend on.
type Store interface {
	// MarkOnline increments the connection counter for (roomKey, userID).
	MarkOnline(ctx context.Context, roomKey, userID string) error

	// MarkOffline decrements the counter; at zero or below the field is removed.
	// Repeated disconnects clamp at removal and are not an error.
	MarkOffline(ctx context.Context, roomKey, userID string) error

	// ListOnline returns every user id with a counter > 0 for the room.
	ListOnline(ctx context.Context, roomKey string) ([]string, error)
}

// RedisStore implements Store on a shared Redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore constructs a RedisStore. The client is owned by the caller and
// closed at process shutdown.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// hashKey derives the Redis key for a room's presence hash. roomKey is the
// registry group key, e.g. "community:42" or "private:17".
func hashKey(roomKey string) string {
	return "room_online:" + roomKey
}

func (s *RedisStore) MarkOnline(ctx context.Context, roomKey, userID string) error {
	if err := s.rdb.HIncrBy(ctx, hashKey(roomKey), userID, 1).Err(); err != nil {
		return fmt.Errorf("presence mark online %s/%s: %w", roomKey, userID, err)
	}
	return nil
}

func (s *RedisStore) MarkOffline(ctx context.Context, roomKey, userID string) error {
	count, err := s.rdb.HIncrBy(ctx, hashKey(roomKey), userID, -1).Result()
	if err != nil {
		return fmt.Errorf("presence mark offline %s/%s: %w", roomKey, userID, err)
	}

	if count <= 0 {
		if err := s.rdb.HDel(ctx, hashKey(roomKey), userID).Err(); err != nil {
			return fmt.Errorf("presence clear %s/%s: %w", roomKey, userID, err)
		}
	}

	return nil
}

func (s *RedisStore) ListOnline(ctx context.Context, roomKey string) ([]string, error) {
	counts, err := s.rdb.HGetAll(ctx, hashKey(roomKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list %s: %w", roomKey, err)
	}

	return onlineFromCounts(counts), nil
}

// onlineFromCounts filters a raw counter hash down to the user ids that are
// actually online. Unparseable or non-positive counters are dropped.
func onlineFromCounts(counts map[string]string) []string {
	online := make([]string, 0, len(counts))
	for userID, raw := range counts {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			continue
		}
		online = append(online, userID)
	}
	return online
}
