/*
Package notify persists user notifications and delivers them asynchronously on each
user's personal channel.

Any business operation that needs to alert a user goes through Dispatcher.Notify.
Callers never deal with rooms, connections or presence.
*/
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification types carried on the personal channel.
const (
	// TypeMessage is produced by chat message relay.
	TypeMessage = "message"

	// TypePurchase is emitted when a course purchase completes.
	TypePurchase = "purchase"

	// TypeTradeRequest is emitted when a user receives a trade request.
	TypeTradeRequest = "trade_request"

	// TypeTrade is emitted when a trade request is accepted.
	TypeTrade = "trade"
)

// Notification is one persisted alert for one recipient.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"notification_type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides Postgres-backed notification persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store on top of the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Save creates a notification row for the recipient.
func (s *Store) Save(ctx context.Context, userID, notificationType, message string) (Notification, error) {
	n := Notification{UserID: userID, Type: notificationType, Message: message}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, user_id, notification_type, message)
		      VALUES ($1, $2, $3, $4)
		   RETURNING id, is_read, created_at`,
		uuid.NewString(), userID, notificationType, message,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("save notification: %w", err)
	}

	return n, nil
}

// ListForUser returns the recipient's notifications, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, notification_type, message, is_read, created_at
		   FROM notifications WHERE user_id = $1
	   ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkAllRead flags every unread notification of the recipient as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// DeleteRead removes the recipient's read notifications in bulk.
func (s *Store) DeleteRead(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND is_read = TRUE`,
		userID,
	); err != nil {
		return fmt.Errorf("delete read notifications: %w", err)
	}
	return nil
}
