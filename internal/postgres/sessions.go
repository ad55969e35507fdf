// Package postgres holds the pgx-backed stores. The gateway persists only
// auth sessions; everything else it serves lives upstream.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nattapol/talad/internal/service"
)

// SessionStore persists auth sessions. The browser holds only the opaque
// session ID; the upstream bearer token never leaves the server.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a session store backed by the given pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, sess *service.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, token, user_id, name, email, role, remember, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.Token, sess.User.ID, sess.User.Name, sess.User.Email, sess.User.Role,
		sess.Remember, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*service.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token, user_id, name, email, role, remember, expires_at, created_at
		FROM sessions
		WHERE id = $1`,
		id,
	)

	var sess service.Session
	err := row.Scan(
		&sess.ID, &sess.Token, &sess.User.ID, &sess.User.Name, &sess.User.Email,
		&sess.User.Role, &sess.Remember, &sess.ExpiresAt, &sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns their IDs so
// in-memory checkout state keyed by them can be evicted. Run periodically
// from a background goroutine.
func (s *SessionStore) DeleteExpired(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM sessions WHERE expires_at < now() RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired session ids: %w", err)
	}
	return ids, nil
}
