package device

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openmda/mda-core/internal/capability"
)

// ─── Fake Device ────────────────────────────────────────────────────────────

// fakeDevice is a minimal Device implementation for registry tests.
type fakeDevice struct {
	id        string
	mu        sync.Mutex
	connected bool

	connectErr    error
	disconnectErr error
	disconnects   int
}

func (d *fakeDevice) ID() string { return d.id }

func (d *fakeDevice) Info() Info {
	return Info{ID: d.id, Name: d.id, Driver: "fake", Connected: d.IsConnected()}
}

func (d *fakeDevice) Connect(_ context.Context) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Disconnect(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects++
	if d.disconnectErr != nil {
		return d.disconnectErr
	}
	d.connected = false
	return nil
}

func (d *fakeDevice) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *fakeDevice) Detectors() map[int]capability.Detector { return nil }
func (d *fakeDevice) Actuators() map[int]capability.Actuator { return nil }

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	dev := &fakeDevice{id: "stage-01"}

	if err := reg.Register(dev); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := reg.Get("stage-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != Device(dev) {
		t.Error("Get() should return the same live instance, not a copy")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeDevice{id: "stage-01"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := reg.Register(&fakeDevice{id: "stage-01"})
	if !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Register() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestRegistry_RegisterEmptyID(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&fakeDevice{id: "  "})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Register() empty ID error = %v, want ErrInvalidID", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nope")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() unknown error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&fakeDevice{id: id}); err != nil {
			t.Fatalf("Register(%q) error = %v", id, err)
		}
	}

	infos := reg.List()
	if len(infos) != 3 {
		t.Fatalf("List() returned %d devices, want 3", len(infos))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, info := range infos {
		if info.ID != want[i] {
			t.Errorf("List()[%d].ID = %q, want %q", i, info.ID, want[i])
		}
	}
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeDevice{id: "stage-01"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := reg.Unregister("stage-01"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, err := reg.Get("stage-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Error("device should be gone after Unregister")
	}

	if err := reg.Unregister("stage-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Unregister() twice error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_DisconnectAll(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	connected := &fakeDevice{id: "a", connected: true}
	alreadyOff := &fakeDevice{id: "b"}
	failing := &fakeDevice{id: "c", connected: true,
		disconnectErr: NewConnectionError("c", ReasonTimeout, nil)}

	for _, dev := range []*fakeDevice{connected, alreadyOff, failing} {
		if err := reg.Register(dev); err != nil {
			t.Fatalf("Register(%q) error = %v", dev.id, err)
		}
	}

	err := reg.DisconnectAll(ctx)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("DisconnectAll() error = %v, want wrapped ErrConnectionFailed", err)
	}

	if connected.IsConnected() {
		t.Error("connected device should be disconnected")
	}
	if alreadyOff.disconnects != 0 {
		t.Error("already-disconnected device should be skipped")
	}
	if failing.disconnects != 1 {
		t.Error("failing device should still be attempted")
	}
}

func TestConnectionError_Classification(t *testing.T) {
	inner := errors.New("port busy")
	err := NewConnectionError("stage-01", ReasonInUse, inner)

	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("ConnectionError should wrap ErrConnectionFailed")
	}
	if !errors.Is(err, inner) {
		t.Error("ConnectionError should expose the underlying error")
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatal("errors.As should recover *ConnectionError")
	}
	if connErr.Reason != ReasonInUse {
		t.Errorf("Reason = %q, want %q", connErr.Reason, ReasonInUse)
	}
}
