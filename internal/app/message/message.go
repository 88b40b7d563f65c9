/*
Package message provides durable storage for chat messages.

Messages are immutable once created and ordered by creation time within a room.
They are owned by their room and disappear only through cascading room deletion.
*/
package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sbchat/internal/app/room"
)

// MaxContentBytes caps the size of a single message body.
const MaxContentBytes = 5000

// Message is one persisted chat message in either room kind.
type Message struct {
	ID        string    `json:"id"`
	RoomKind  room.Kind `json:"room_kind"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides Postgres-backed message persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store on top of the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveCommunity durably stores a community message.
func (s *Store) SaveCommunity(ctx context.Context, communityID, senderID, text string) (Message, error) {
	m := Message{RoomKind: room.KindCommunity, RoomID: communityID, SenderID: senderID, Text: text}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO community_messages (id, community_id, sender_id, text)
		      VALUES ($1, $2, $3, $4)
		   RETURNING id, created_at`,
		uuid.NewString(), communityID, senderID, text,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("save community message: %w", err)
	}

	return m, nil
}

// SavePrivate durably stores a private room message.
func (s *Store) SavePrivate(ctx context.Context, roomID, senderID, text string) (Message, error) {
	m := Message{RoomKind: room.KindPrivate, RoomID: roomID, SenderID: senderID, Text: text}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (id, chat_room_id, sender_id, text)
		      VALUES ($1, $2, $3, $4)
		   RETURNING id, created_at`,
		uuid.NewString(), roomID, senderID, text,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("save private message: %w", err)
	}

	return m, nil
}

// List returns up to limit messages of a room ordered by creation time, oldest
// first. A zero limit applies a sane default.
func (s *Store) List(ctx context.Context, kind room.Kind, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}

	table, column := "chat_messages", "chat_room_id"
	if kind == room.KindCommunity {
		table, column = "community_messages", "community_id"
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, %s, sender_id, text, created_at
		               FROM %s WHERE %s = $1
		           ORDER BY created_at, id LIMIT $2`, column, table, column),
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s messages: %w", kind, err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		m := Message{RoomKind: kind}
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
