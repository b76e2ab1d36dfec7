package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// historyLimit caps how much conversation history a turn loads. Older
// messages stay in the table; they just stop riding along in the prompt.
const historyLimit = 20

// Load assembles the conversation context for one turn: the user's current
// trust score, recent history for the session, the last executed device
// action, and a snapshot of every device's state.
func (s *Store) Load(ctx context.Context, sessionID, userID string) (*model.Context, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.recentMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	last, err := s.lastControl(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]model.State, len(devices))
	for _, d := range devices {
		states[d.ID] = d.State
	}

	return &model.Context{
		SessionID:        sessionID,
		UserID:           userID,
		TrustScore:       u.TrustScore,
		History:          history,
		LastDeviceAction: last,
		DeviceStates:     states,
	}, nil
}

// Save appends the turn's exchange to the session history and records the
// interaction. One transaction; a half-saved turn never appears.
func (s *Store) Save(ctx context.Context, result model.TurnResult, delta model.ContextDelta) error {
	var control any
	if delta.Control != nil {
		buf, err := json.Marshal(delta.Control)
		if err != nil {
			return fmt.Errorf("marshal control output: %w", err)
		}
		control = string(buf)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save turn tx: %w", err)
	}

	at := ts(result.CompletedAt)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO messages(session_id, role, content, at) VALUES (?, 'user', ?, ?)
`, result.SessionID, delta.UserInput, at); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO messages(session_id, role, content, at) VALUES (?, 'assistant', ?, ?)
`, result.SessionID, delta.Reply, at); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert assistant message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO interactions(turn_id, session_id, user_id, user_input, reply, failure, control, started_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, result.TurnID, result.SessionID, result.UserID, delta.UserInput, delta.Reply, delta.Failure, control, ts(result.StartedAt), at); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert interaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save turn: %w", err)
	}
	return nil
}

func (s *Store) recentMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content, at FROM (
	SELECT message_id, role, content, at
	FROM messages
	WHERE session_id = ?
	ORDER BY message_id DESC
	LIMIT ?
) ORDER BY message_id ASC
`, sessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]model.Message, 0, historyLimit)
	for rows.Next() {
		var (
			m  model.Message
			at string
		)
		if err := rows.Scan(&m.Role, &m.Content, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.At, err = parseTS(at); err != nil {
			return nil, fmt.Errorf("parse message at: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter history: %w", err)
	}
	return out, nil
}

func (s *Store) lastControl(ctx context.Context, sessionID string) (*model.ControlOutput, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT control
FROM interactions
WHERE session_id = ? AND control IS NOT NULL
ORDER BY completed_at DESC, turn_id DESC
LIMIT 1
`, sessionID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last control: %w", err)
	}
	var out model.ControlOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode last control: %w", err)
	}
	return &out, nil
}

// Interaction is one recorded turn, as stored.
type Interaction struct {
	TurnID    string               `json:"turn_id"`
	SessionID string               `json:"session_id"`
	UserID    string               `json:"user_id"`
	UserInput string               `json:"user_input"`
	Reply     string               `json:"reply"`
	Failure   string               `json:"failure,omitempty"`
	Control   *model.ControlOutput `json:"control,omitempty"`
}

// ListInteractions returns the session's recorded turns, oldest first.
func (s *Store) ListInteractions(ctx context.Context, sessionID string) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT turn_id, session_id, user_id, user_input, reply, failure, control
FROM interactions
WHERE session_id = ?
ORDER BY completed_at ASC, turn_id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := make([]Interaction, 0)
	for rows.Next() {
		var (
			in      Interaction
			control sql.NullString
		)
		if err := rows.Scan(&in.TurnID, &in.SessionID, &in.UserID, &in.UserInput, &in.Reply, &in.Failure, &control); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if control.Valid {
			var c model.ControlOutput
			if err := json.Unmarshal([]byte(control.String), &c); err != nil {
				return nil, fmt.Errorf("decode interaction control: %w", err)
			}
			in.Control = &c
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter interactions: %w", err)
	}
	return out, nil
}
