package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "hoorii.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hoorii.db")
	ctx := context.Background()

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.EnsureUser(ctx, "u1", "Alice", 50); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	// Reopen applies migrations again without clobbering data.
	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	u, err := s2.GetUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.TrustScore != 50 {
		t.Errorf("trust score lost across reopen: %d", u.TrustScore)
	}
}

func TestUserTrustScore(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "u1", "Alice", 30)
	if err != nil {
		t.Fatal(err)
	}
	if u.TrustScore != 30 {
		t.Fatalf("initial trust = %d", u.TrustScore)
	}

	// Ensure is create-if-missing, never an overwrite.
	u, err = s.EnsureUser(ctx, "u1", "Alice", 90)
	if err != nil {
		t.Fatal(err)
	}
	if u.TrustScore != 30 {
		t.Errorf("ensure overwrote existing trust: %d", u.TrustScore)
	}

	if err := s.SetTrustScore(ctx, "u1", 140); err != nil {
		t.Fatal(err)
	}
	u, _ = s.GetUser(ctx, "u1")
	if u.TrustScore != 100 {
		t.Errorf("set must clamp to 100, got %d", u.TrustScore)
	}

	next, err := s.AdjustTrustScore(ctx, "u1", -250)
	if err != nil {
		t.Fatal(err)
	}
	if next != 0 {
		t.Errorf("adjust must clamp to 0, got %d", next)
	}

	if err := s.SetTrustScore(ctx, "ghost", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestDeviceBackend(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var _ device.Backend = s

	if err := s.UpsertDevice(ctx, device.Device{
		ID:    "lamp-1",
		Name:  "Lamp",
		Type:  "dimmable_light",
		Room:  "living room",
		State: model.State{"isOn": false, "brightness": float64(20), "hue": float64(120)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDevice(ctx, device.Device{ID: "lamp-2", Name: "Lamp 2", Type: "dimmable_light"}); err != nil {
		t.Fatal(err)
	}

	d, err := s.FirstOfType(ctx, "dimmable_light")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "lamp-1" {
		t.Errorf("FirstOfType = %s, want lamp-1", d.ID)
	}

	if _, err := s.FirstOfType(ctx, "toaster"); !errors.Is(err, device.ErrNotFound) {
		t.Errorf("unknown type must be ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, device.ErrNotFound) {
		t.Errorf("unknown id must be ErrNotFound, got %v", err)
	}

	// Merge semantics: only given fields change.
	if err := s.UpdateState(ctx, "lamp-1", model.State{"isOn": true, "brightness": float64(80)}); err != nil {
		t.Fatal(err)
	}
	d, err = s.Get(ctx, "lamp-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.State["isOn"] != true || d.State["brightness"] != float64(80) {
		t.Errorf("state not merged: %v", d.State)
	}
	if d.State["hue"] != float64(120) {
		t.Errorf("untouched field lost: %v", d.State["hue"])
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("list = %d devices, want 2", len(list))
	}
}

func TestContextLoadSave(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.EnsureUser(ctx, "u1", "Alice", 65); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDevice(ctx, device.Device{ID: "lamp-1", Name: "Lamp", Type: "dimmable_light", State: model.State{"isOn": true}}); err != nil {
		t.Fatal(err)
	}

	c, err := s.Load(ctx, "sess-1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if c.TrustScore != 65 {
		t.Errorf("trust = %d", c.TrustScore)
	}
	if len(c.History) != 0 || c.LastDeviceAction != nil {
		t.Errorf("fresh session must be empty: %+v", c)
	}
	if _, ok := c.DeviceStates["lamp-1"]; !ok {
		t.Error("device states missing lamp-1")
	}

	now := time.Now().UTC()
	control := &model.ControlOutput{
		DeviceID:   "lamp-1",
		DeviceName: "Lamp",
		DeviceType: "dimmable_light",
		Command:    "turn_on",
		Parameters: map[string]any{"isOn": true},
		Timestamp:  now,
		UserID:     "u1",
		TrustScore: 65,
	}
	err = s.Save(ctx, model.TurnResult{
		TurnID:      "turn-1",
		SessionID:   "sess-1",
		UserID:      "u1",
		StartedAt:   now,
		CompletedAt: now,
	}, model.ContextDelta{
		UserInput: "turn on the lamp",
		Reply:     "Done, the lamp is on.",
		Control:   control,
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err = s.Load(ctx, "sess-1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.History) != 2 {
		t.Fatalf("history = %d messages, want 2", len(c.History))
	}
	if c.History[0].Role != "user" || c.History[1].Role != "assistant" {
		t.Errorf("history order wrong: %+v", c.History)
	}
	if c.LastDeviceAction == nil || c.LastDeviceAction.Command != "turn_on" {
		t.Errorf("last device action not loaded: %+v", c.LastDeviceAction)
	}

	// Sessions are isolated.
	other, err := s.Load(ctx, "sess-2", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(other.History) != 0 || other.LastDeviceAction != nil {
		t.Errorf("session isolation broken: %+v", other)
	}

	turns, err := s.ListInteractions(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Control == nil || turns[0].Control.DeviceID != "lamp-1" {
		t.Errorf("interaction record wrong: %+v", turns)
	}
}

func TestHistoryWindowCapped(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.EnsureUser(ctx, "u1", "", 30); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	for i := 0; i < historyLimit; i++ {
		err := s.Save(ctx, model.TurnResult{
			TurnID:      "turn-" + string(rune('a'+i)),
			SessionID:   "sess-1",
			UserID:      "u1",
			StartedAt:   now,
			CompletedAt: now.Add(time.Duration(i) * time.Second),
		}, model.ContextDelta{UserInput: "hi", Reply: "hello"})
		if err != nil {
			t.Fatal(err)
		}
	}

	c, err := s.Load(ctx, "sess-1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.History) != historyLimit {
		t.Errorf("history = %d, want capped at %d", len(c.History), historyLimit)
	}
	// Oldest first within the window.
	if c.History[0].At.After(c.History[len(c.History)-1].At) {
		t.Error("history must be oldest first")
	}
}
