package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// Request carries everything Execute needs beyond the validated command:
// the state fields the CommandSpec declares, and the requesting user for the
// control-output record.
type Request struct {
	Command     model.ValidatedCommand
	StateFields []string
	UserID      string
	TrustScore  int
}

// Executor applies validated commands to device state through a Backend.
//
// One in-flight execution per device id at a time. An execution that has
// started always settles before its lock is released — cancellation is
// honored only while waiting for the lock, never mid-write, so device state
// is never left half-applied. No internal retries; retry policy belongs to
// the caller.
type Executor struct {
	backend Backend

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewExecutor creates an executor over the given backend.
func NewExecutor(backend Backend) *Executor {
	return &Executor{
		backend: backend,
		locks:   make(map[string]chan struct{}),
	}
}

// lockFor returns the buffered-token lock for a device id. Entries are kept
// for the process lifetime: a lock may be evicted only when no goroutine
// holds a reference to it, and the handful of bytes per device id is cheaper
// than the refcounting that would prove it.
func (e *Executor) lockFor(id string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		l <- struct{}{}
		e.locks[id] = l
	}
	return l
}

// Execute applies the command to the addressed device, updating only the
// declared state fields and preserving all others. Returns the immutable
// ControlOutput record, created exactly once per successful execution.
func (e *Executor) Execute(ctx context.Context, req Request) (*model.ControlOutput, error) {
	id := req.Command.DeviceID
	lock := e.lockFor(id)

	select {
	case <-lock:
		// Acquired; from here on the execution settles regardless of ctx.
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for device %s: %w", id, ctx.Err())
	}
	defer func() { lock <- struct{}{} }()

	dev, err := e.backend.Get(ctx, id)
	if err != nil {
		return nil, &UnavailableError{DeviceID: id, Err: err}
	}

	written := applyCommand(req.Command, req.StateFields, dev.State)
	if err := e.backend.UpdateState(context.WithoutCancel(ctx), id, written); err != nil {
		return nil, &UnavailableError{DeviceID: id, Err: err}
	}

	return &model.ControlOutput{
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		DeviceType: dev.Type,
		Command:    req.Command.CommandName,
		Parameters: written,
		Timestamp:  time.Now().UTC(),
		UserID:     req.UserID,
		TrustScore: req.TrustScore,
	}, nil
}

// applyCommand computes the new values for exactly the declared state
// fields: parameter values map by name, on/off-style fields derive from the
// command verb, and fields with no derivable value keep their current value
// (read-modify-write on a narrow field set).
func applyCommand(cmd model.ValidatedCommand, stateFields []string, current model.State) model.State {
	off := isOffCommand(cmd.CommandName)
	open := strings.HasPrefix(cmd.CommandName, "open_")

	written := make(model.State, len(stateFields))
	for _, field := range stateFields {
		if v, ok := cmd.Params[field]; ok {
			written[field] = v
			continue
		}
		switch field {
		case "isOn":
			written[field] = !off
		case "status":
			if off {
				written[field] = "off"
			} else {
				written[field] = "on"
			}
		case "targetPosition":
			if open {
				written[field] = 100
			} else if off {
				written[field] = 0
			} else if v, ok := current[field]; ok {
				written[field] = v
			} else {
				written[field] = 0
			}
		case "currentPosition":
			// Position tracks target immediately; real hardware integration
			// would report actual travel.
			if v, ok := written["targetPosition"]; ok {
				written[field] = v
			} else if v, ok := cmd.Params["targetPosition"]; ok {
				written[field] = v
			} else if v, ok := current[field]; ok {
				written[field] = v
			} else {
				written[field] = 0
			}
		default:
			if v, ok := current[field]; ok {
				written[field] = v
			}
		}
	}

	// Curtain-style devices: fully closed counts as off.
	if pos, ok := written["targetPosition"]; ok {
		closed := false
		if n, isInt := pos.(int); isInt {
			closed = n == 0
		}
		if _, declared := written["isOn"]; declared {
			written["isOn"] = !closed
		}
		if _, declared := written["status"]; declared {
			if closed {
				written["status"] = "off"
			} else {
				written["status"] = "on"
			}
		}
	}

	return written
}

func isOffCommand(name string) bool {
	return name == "turn_off" || strings.HasPrefix(name, "close_")
}
