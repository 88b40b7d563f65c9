package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sbchat/internal/app/db"
)

// Store provides Postgres-backed access to communities, private rooms and memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store on top of the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetCommunity fetches a community by id. Returns ErrRoomNotFound if it does not resolve.
func (s *Store) GetCommunity(ctx context.Context, id string) (Community, error) {
	var c Community

	err := s.pool.QueryRow(ctx,
		`SELECT id, creator_id, title, description, max_members, created_at
		   FROM communities WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.CreatorID, &c.Title, &c.Description, &c.MaxMembers, &c.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Community{}, ErrRoomNotFound
		}
		return Community{}, fmt.Errorf("fetch community %s: %w", id, err)
	}

	return c, nil
}

// GetPrivateRoom fetches a private room by id. Returns ErrRoomNotFound if it does not resolve.
func (s *Store) GetPrivateRoom(ctx context.Context, id string) (PrivateRoom, error) {
	var p PrivateRoom

	err := s.pool.QueryRow(ctx,
		`SELECT id, student_id, tutor_id, course_id, created_at
		   FROM chat_rooms WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.StudentID, &p.TutorID, &p.CourseID, &p.CreatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return PrivateRoom{}, ErrRoomNotFound
		}
		return PrivateRoom{}, fmt.Errorf("fetch private room %s: %w", id, err)
	}

	return p, nil
}

// GetOrCreatePrivateRoom returns the room for (student, tutor, course), creating it
// if it does not exist yet. Unique per participant pair and course.
func (s *Store) GetOrCreatePrivateRoom(ctx context.Context, studentID, tutorID, courseID string) (PrivateRoom, error) {
	var p PrivateRoom

	err := s.pool.QueryRow(ctx,
		`SELECT id, student_id, tutor_id, course_id, created_at
		   FROM chat_rooms WHERE student_id = $1 AND tutor_id = $2 AND course_id = $3`,
		studentID, tutorID, courseID,
	).Scan(&p.ID, &p.StudentID, &p.TutorID, &p.CourseID, &p.CreatedAt)
	if err == nil {
		return p, nil
	}
	if !db.IsNoRows(err) {
		return PrivateRoom{}, fmt.Errorf("lookup private room: %w", err)
	}

	// The no-op DO UPDATE makes RETURNING yield the existing row when a
	// concurrent insert wins the race; DO NOTHING would return no rows.
	id := uuid.NewString()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO chat_rooms (id, student_id, tutor_id, course_id)
		      VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, tutor_id, course_id) DO UPDATE SET student_id = EXCLUDED.student_id
		   RETURNING id, student_id, tutor_id, course_id, created_at`,
		id, studentID, tutorID, courseID,
	).Scan(&p.ID, &p.StudentID, &p.TutorID, &p.CourseID, &p.CreatedAt)
	if err != nil {
		return PrivateRoom{}, fmt.Errorf("create private room: %w", err)
	}

	return p, nil
}

// CreateCommunity creates a community and adds the creator as its first member.
func (s *Store) CreateCommunity(ctx context.Context, creatorID, title, description string, maxMembers int) (Community, error) {
	if maxMembers <= 0 {
		maxMembers = DefaultMaxMembers
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Community{}, fmt.Errorf("begin create community: %w", err)
	}
	defer tx.Rollback(ctx)

	var c Community
	err = tx.QueryRow(ctx,
		`INSERT INTO communities (id, creator_id, title, description, max_members)
		      VALUES ($1, $2, $3, $4, $5)
		   RETURNING id, creator_id, title, description, max_members, created_at`,
		uuid.NewString(), creatorID, title, description, maxMembers,
	).Scan(&c.ID, &c.CreatorID, &c.Title, &c.Description, &c.MaxMembers, &c.CreatedAt)
	if err != nil {
		return Community{}, fmt.Errorf("insert community: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO community_members (user_id, community_id) VALUES ($1, $2)`,
		creatorID, c.ID,
	); err != nil {
		return Community{}, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Community{}, fmt.Errorf("commit create community: %w", err)
	}

	return c, nil
}

// AddMember joins a user to a community, enforcing the member limit. Returns
// ErrRoomNotFound, ErrCommunityFull or ErrAlreadyMember accordingly.
func (s *Store) AddMember(ctx context.Context, communityID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin join community: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the community row so the capacity check and insert stay consistent
	// under concurrent joins.
	var maxMembers int
	err = tx.QueryRow(ctx,
		`SELECT max_members FROM communities WHERE id = $1 FOR UPDATE`,
		communityID,
	).Scan(&maxMembers)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("lock community %s: %w", communityID, err)
	}

	var current int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM community_members WHERE community_id = $1`,
		communityID,
	).Scan(&current); err != nil {
		return fmt.Errorf("count members: %w", err)
	}

	if maxMembers > 0 && current >= maxMembers {
		return ErrCommunityFull
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO community_members (user_id, community_id) VALUES ($1, $2)`,
		userID, communityID,
	); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("insert membership: %w", err)
	}

	return tx.Commit(ctx)
}

// RemoveMember deletes a membership. No-op if the user was not a member.
func (s *Store) RemoveMember(ctx context.Context, communityID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`,
		communityID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// IsMember reports whether the user holds a membership in the community.
func (s *Store) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM community_members WHERE user_id = $1 AND community_id = $2)`,
		userID, communityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListMemberIDs returns the ids of every current member of the community.
func (s *Store) ListMemberIDs(ctx context.Context, communityID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM community_members WHERE community_id = $1`,
		communityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
