package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

// Store implements device.Backend over the devices table. State is one JSON
// document per device; UpdateState merges fields under a transaction so a
// concurrent reader never sees a partial write.

// UpsertDevice registers or replaces a device instance.
func (s *Store) UpsertDevice(ctx context.Context, d device.Device) error {
	if d.State == nil {
		d.State = model.State{}
	}
	state, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("marshal device state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO devices(device_id, name, type, room, state, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
	name=excluded.name,
	type=excluded.type,
	room=excluded.room,
	state=excluded.state,
	updated_at=excluded.updated_at
`, d.ID, d.Name, d.Type, d.Room, string(state), ts(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*device.Device, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT device_id, name, type, room, state
FROM devices
WHERE device_id = ?
`, id)
	d, err := scanDevice(row)
	if errors.Is(err, device.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", device.ErrNotFound, id)
	}
	return d, err
}

func (s *Store) FirstOfType(ctx context.Context, typeID string) (*device.Device, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT device_id, name, type, room, state
FROM devices
WHERE type = ?
ORDER BY device_id ASC
LIMIT 1
`, typeID)
	d, err := scanDevice(row)
	if errors.Is(err, device.ErrNotFound) {
		return nil, fmt.Errorf("%w: type %s", device.ErrNotFound, typeID)
	}
	return d, err
}

func (s *Store) List(ctx context.Context) ([]*device.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, name, type, room, state
FROM devices
ORDER BY device_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	out := make([]*device.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter devices: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateState(ctx context.Context, id string, fields model.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state update tx: %w", err)
	}

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT state FROM devices WHERE device_id = ?`, id).Scan(&raw)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", device.ErrNotFound, id)
		}
		return fmt.Errorf("read device state: %w", err)
	}

	state := model.State{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("decode device state: %w", err)
	}
	for k, v := range fields {
		state[k] = v
	}
	merged, err := json.Marshal(state)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("marshal device state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE devices SET state = ?, updated_at = ? WHERE device_id = ?
`, string(merged), ts(time.Now().UTC()), id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("write device state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state update: %w", err)
	}
	return nil
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", device.ErrNotFound, id)
	}
	return nil
}

func scanDevice(scanner interface{ Scan(dest ...any) error }) (*device.Device, error) {
	var (
		d   device.Device
		raw string
	)
	if err := scanner.Scan(&d.ID, &d.Name, &d.Type, &d.Room, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w", device.ErrNotFound)
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}
	d.State = model.State{}
	if err := json.Unmarshal([]byte(raw), &d.State); err != nil {
		return nil, fmt.Errorf("decode device state: %w", err)
	}
	return &d, nil
}
