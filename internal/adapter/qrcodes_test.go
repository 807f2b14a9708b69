package adapter

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/qr"
	"github.com/danmuck/isarlink/internal/testutil/testlog"
	"github.com/danmuck/isarlink/internal/trackable"
)

var g1 = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func codeEvent(kind qr.MessageType, id uuid.UUID, x float32) qr.CodeEvent {
	return qr.CodeEvent{Kind: kind, Code: qr.Code{
		ID:                 id,
		PhysicalSideLength: 0.2,
		Version:            3,
		Pose: coords.Pose{
			Position: coords.Vector3{X: x, Y: 0, Z: 1},
			Rotation: coords.Identity(),
		},
	}}
}

func newQRHarness(t *testing.T, convention coords.Convention) (*QRCodes, *dispatch.QR, *trackable.Registry, *fakeControl) {
	t.Helper()
	reg := trackable.NewRegistry()
	control := &fakeControl{}
	codes := NewQRCodes(reg, control, convention)
	d := dispatch.NewQR()
	codes.Register(d)
	return codes, d, reg, control
}

func TestQRLifecycle(t *testing.T) {
	testlog.Start(t)
	codes, d, reg, _ := newQRHarness(t, coords.ConventionHMD)
	codes.OnConnectionStateChanged(protocol.StateConnected)

	if _, ok := codes.Get(g1); ok {
		t.Fatalf("marker must not exist before added")
	}
	d.Dispatch(encodeQR(t, codeEvent(qr.TypeAdded, g1, 1)))
	code, ok := codes.Get(g1)
	if !ok {
		t.Fatalf("marker must exist after added")
	}
	first := code.Payload().Pose

	d.Dispatch(encodeQR(t, codeEvent(qr.TypeUpdated, g1, 2)))
	if code.Payload().Pose == first {
		t.Fatalf("update must move the marker")
	}
	if _, ok := codes.Get(g1); !ok {
		t.Fatalf("marker must stay retrievable after update")
	}

	d.Dispatch(encodeQR(t, codeEvent(qr.TypeRemoved, g1, 2)))
	if _, ok := codes.Get(g1); !ok {
		t.Fatalf("removed marker must stay retrievable until acknowledged")
	}
	changes := codes.Changes()
	if len(changes.Removed) != 1 || changes.Removed[0] != code.ID() {
		t.Fatalf("expected removal to be reported: %+v", changes)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry must be empty after acknowledgement, got %d", reg.Len())
	}
	if _, ok := codes.Get(g1); ok {
		t.Fatalf("marker must be gone after acknowledgement")
	}
}

func TestQRPoseConventions(t *testing.T) {
	testlog.Start(t)
	codes, d, _, _ := newQRHarness(t, coords.ConventionHMD)
	d.Dispatch(encodeQR(t, codeEvent(qr.TypeAdded, g1, 1)))
	code, _ := codes.Get(g1)
	want := coords.ConventionHMD.Apply(codeEvent(qr.TypeAdded, g1, 1).Code.Pose, 0.1)
	if code.Payload().Pose != want {
		t.Fatalf("hmd pose mismatch: got=%+v want=%+v", code.Payload().Pose, want)
	}

	handheld, hd, _, _ := newQRHarness(t, coords.ConventionHandheld)
	hd.Dispatch(encodeQR(t, codeEvent(qr.TypeAdded, g1, 1)))
	hcode, _ := handheld.Get(g1)
	if got := hcode.Payload().Pose; got.Position != (coords.Vector3{X: 1, Z: -1}) || got.Rotation.W != -1 {
		t.Fatalf("handheld pose mismatch: %+v", got)
	}
}

func TestQRNaNKeepsPreviousPose(t *testing.T) {
	testlog.Start(t)
	codes, d, _, _ := newQRHarness(t, coords.ConventionHandheld)
	d.Dispatch(encodeQR(t, codeEvent(qr.TypeAdded, g1, 1)))
	code, _ := codes.Get(g1)
	before := code.Payload().Pose

	lost := codeEvent(qr.TypeUpdated, g1, float32(math.NaN()))
	lost.Code.Timestamp = 99
	d.Dispatch(encodeQR(t, lost))
	after := code.Payload()
	if after.Pose != before {
		t.Fatalf("NaN position must keep the previous pose: %+v", after.Pose)
	}
	if after.Timestamp != 99 {
		t.Fatalf("non-pose fields must still update")
	}
}

func TestQRUnknownUpdatesAreNoops(t *testing.T) {
	testlog.Start(t)
	_, d, reg, _ := newQRHarness(t, coords.ConventionHMD)
	d.Dispatch(encodeQR(t, codeEvent(qr.TypeUpdated, g1, 1)))
	d.Dispatch(encodeQR(t, codeEvent(qr.TypeRemoved, g1, 1)))
	if reg.Len() != 0 {
		t.Fatalf("updates for unknown markers must not create entities")
	}
	if res := d.Dispatch(encodeQR(t, qr.GetList{})); res != dispatch.Unhandled {
		t.Fatalf("get-list must be ignored, got %s", res)
	}
}

func TestQRControls(t *testing.T) {
	testlog.Start(t)
	codes, d, _, control := newQRHarness(t, coords.ConventionHMD)

	for _, fn := range []func() error{codes.IsSupported, codes.RequestAccess, codes.StartWatching} {
		if err := fn(); !errors.Is(err, protocol.ErrConnectionNotReady) {
			t.Fatalf("expected connection not ready, got %v", err)
		}
	}

	codes.OnConnectionStateChanged(protocol.StateConnected)
	if err := codes.StartWatching(); err != nil || !codes.Watching() {
		t.Fatalf("start watching: %v watching=%v", err, codes.Watching())
	}
	if err := codes.StartWatching(); err != nil {
		t.Fatalf("second start must be a no-op: %v", err)
	}

	var completed, supported bool
	var status qr.AccessStatus = -1
	codes.SetCallbacks(QRCallbacks{
		IsSupported:          func(v bool) { supported = v },
		AccessStatus:         func(s qr.AccessStatus) { status = s },
		EnumerationCompleted: func() { completed = true },
	})
	d.Dispatch(encodeQR(t, qr.IsSupported{Supported: true}))
	d.Dispatch(encodeQR(t, qr.AccessStatusReceived{Status: qr.AccessAllowed}))
	d.Dispatch(encodeQR(t, qr.EnumerationCompleted{}))
	if !supported || status != qr.AccessAllowed || !completed {
		t.Fatalf("callbacks not invoked: supported=%v status=%s completed=%v", supported, status, completed)
	}
	if codes.Watching() {
		t.Fatalf("enumeration completed must reset watching")
	}

	codes.StartWatching()
	codes.OnConnectionStateChanged(protocol.StateDisconnected)
	if codes.Watching() {
		t.Fatalf("disconnect must reset watching")
	}
	if len(control.calls) != 2 || control.calls[0] != "Start" || control.calls[1] != "Start" {
		t.Fatalf("unexpected control calls: %v", control.calls)
	}

	codes.OnConnectionStateChanged(protocol.StateConnected)
	control.err = errors.New("host busy")
	if err := codes.StartWatching(); err == nil || codes.Watching() {
		t.Fatalf("failed start must not set watching")
	}
}

func TestQRIsarIDStable(t *testing.T) {
	testlog.Start(t)
	if QRIsarID(g1) != QRIsarID(g1) || QRIsarID(g1) < 0 {
		t.Fatalf("isar id must be stable and non-negative")
	}
}
