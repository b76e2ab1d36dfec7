package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// User is one user record. The trust score is owned here; the engine only
// reads it per turn.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TrustScore int       `json:"trust_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EnsureUser creates the user with the given initial trust score if it does
// not exist, and returns the stored record either way.
func (s *Store) EnsureUser(ctx context.Context, id, name string, trustScore int) (User, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users(user_id, name, trust_score, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO NOTHING
`, id, name, model.ClampTrust(trustScore), ts(now), ts(now))
	if err != nil {
		return User{}, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id, name, trust_score, created_at, updated_at
FROM users
WHERE user_id = ?
`, id)
	var (
		u         User
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.TrustScore, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	var err error
	if u.CreatedAt, err = parseTS(createdAt); err != nil {
		return User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	if u.UpdatedAt, err = parseTS(updatedAt); err != nil {
		return User{}, fmt.Errorf("parse user updated_at: %w", err)
	}
	return u, nil
}

// TrustScore returns the user's current trust score.
func (s *Store) TrustScore(ctx context.Context, id string) (int, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	return u.TrustScore, nil
}

// SetTrustScore overwrites the user's trust score, clamped to [0, 100].
func (s *Store) SetTrustScore(ctx context.Context, id string, score int) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET trust_score = ?, updated_at = ? WHERE user_id = ?
`, model.ClampTrust(score), ts(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("set trust score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set trust score rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// AdjustTrustScore shifts the user's trust score by delta, clamped to
// [0, 100], and returns the new value.
func (s *Store) AdjustTrustScore(ctx context.Context, id string, delta int) (int, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	next := model.ClampTrust(u.TrustScore + delta)
	if err := s.SetTrustScore(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, name, trust_score, created_at, updated_at
FROM users
ORDER BY user_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		var (
			u         User
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.TrustScore, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if u.CreatedAt, err = parseTS(createdAt); err != nil {
			return nil, fmt.Errorf("parse user created_at: %w", err)
		}
		if u.UpdatedAt, err = parseTS(updatedAt); err != nil {
			return nil, fmt.Errorf("parse user updated_at: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter users: %w", err)
	}
	return out, nil
}
