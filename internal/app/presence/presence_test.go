package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnlineFromCounts_KeepsPositiveCountersOnly(t *testing.T) {
	req := require.New(t)

	// Given a raw counter hash with online, offline and corrupted entries
	counts := map[string]string{
		"alice": "2",
		"bob":   "1",
		"carol": "0",
		"dave":  "-1",
		"eve":   "banana",
	}

	// When the hash is filtered down to online users
	online := onlineFromCounts(counts)

	// Then only users with a positive counter remain
	req.ElementsMatch([]string{"alice", "bob"}, online)
}

func TestOnlineFromCounts_EmptyHash(t *testing.T) {
	req := require.New(t)

	req.Empty(onlineFromCounts(nil))
	req.Empty(onlineFromCounts(map[string]string{}))
}

func TestHashKey_ScopesRoomsApart(t *testing.T) {
	req := require.New(t)

	req.Equal("room_online:community:42", hashKey("community:42"))
	req.NotEqual(hashKey("community:42"), hashKey("private:42"))
}
