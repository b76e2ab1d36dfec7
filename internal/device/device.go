// Package device applies validated commands to device state. Execution is
// serialized per device id; commands to different devices proceed
// independently.
package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// ErrNotFound is returned when a device id does not resolve to a registered
// instance.
var ErrNotFound = errors.New("device not found")

// UnavailableError wraps a backend failure while reading or writing device
// state. Recoverable per-turn; the orchestrator annotates and finalizes.
type UnavailableError struct {
	DeviceID string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("device %s unavailable: %v", e.DeviceID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Device is one registered device instance.
type Device struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Room  string      `json:"room,omitempty"`
	State model.State `json:"state"`
}

// Backend stores device instances and their current state.
//
// UpdateState merges exactly the given fields into the device's state,
// preserving every other field — callers own the narrow-field-set
// discipline, the backend must never whole-overwrite.
type Backend interface {
	Get(ctx context.Context, id string) (*Device, error)
	FirstOfType(ctx context.Context, typeID string) (*Device, error)
	List(ctx context.Context) ([]*Device, error)
	UpdateState(ctx context.Context, id string, fields model.State) error
}

// MemoryBackend is an in-process Backend used by tests, the simulator CLI
// commands, and deployments without persistence.
type MemoryBackend struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{devices: make(map[string]*Device)}
}

// Add registers a device instance. Replaces any existing instance with the
// same id.
func (m *MemoryBackend) Add(d Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.State == nil {
		d.State = model.State{}
	}
	if _, exists := m.devices[d.ID]; !exists {
		m.order = append(m.order, d.ID)
	}
	m.devices[d.ID] = &d
}

func (m *MemoryBackend) Get(_ context.Context, id string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyDevice(d), nil
}

func (m *MemoryBackend) FirstOfType(_ context.Context, typeID string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if m.devices[id].Type == typeID {
			return copyDevice(m.devices[id]), nil
		}
	}
	return nil, fmt.Errorf("%w: type %s", ErrNotFound, typeID)
}

func (m *MemoryBackend) List(_ context.Context) ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, 0, len(m.devices))
	for _, id := range m.order {
		out = append(out, copyDevice(m.devices[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryBackend) UpdateState(_ context.Context, id string, fields model.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for k, v := range fields {
		d.State[k] = v
	}
	return nil
}

func copyDevice(d *Device) *Device {
	state := make(model.State, len(d.State))
	for k, v := range d.State {
		state[k] = v
	}
	c := *d
	c.State = state
	return &c
}
