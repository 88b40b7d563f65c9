/*
Package user contains core data structures and logic related to user identity.

It defines the basic representation of a participant within the chat system (the Identity
struct), used for passing user information both internally and to clients, plus the
Postgres-backed lookups the chat core needs. Full account management lives in a separate
service; this package only reads.
*/
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Identity represents the basic identity information of a chat participant.
// Fields use JSON tags for serialization in WebSocket messages.
type Identity struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// FirstName is the user's given name, shown in presence lists.
	FirstName string `json:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name,omitempty"`

	// Avatar is the URL for the user's profile picture.
	Avatar string `json:"avatar,omitempty"`

	// Role is the account role ("student", "tutor" or "admin").
	Role string `json:"role,omitempty"`
}

// FullName returns the display name used in notification texts.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Store provides read access to user identities.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store on top of the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get fetches a single identity by id.
func (s *Store) Get(ctx context.Context, id string) (Identity, error) {
	var identity Identity

	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, role, avatar_url FROM users WHERE id = $1`,
		id,
	).Scan(&identity.ID, &identity.FirstName, &identity.LastName, &identity.Role, &identity.Avatar)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch user %s: %w", id, err)
	}

	return identity, nil
}

// GetBatch fetches the identities for the given ids. Unknown ids are skipped,
// so the result may be shorter than the input.
func (s *Store) GetBatch(ctx context.Context, ids []string) ([]Identity, error) {
	if len(ids) == 0 {
		return []Identity{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, first_name, last_name, role, avatar_url FROM users WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer rows.Close()

	identities := make([]Identity, 0, len(ids))
	for rows.Next() {
		var identity Identity
		if err := rows.Scan(&identity.ID, &identity.FirstName, &identity.LastName, &identity.Role, &identity.Avatar); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		identities = append(identities, identity)
	}

	return identities, rows.Err()
}
