package adapter

import (
	"testing"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/testutil/testlog"
	"github.com/danmuck/isarlink/internal/trackable"
)

func planeRecord(id int32, state custom.TrackingState) custom.PlaneRecord {
	return custom.PlaneRecord{
		ID:    id,
		State: state,
		Pose: coords.Pose{
			Position: coords.Vector3{X: 1, Y: 2, Z: 3},
			Rotation: coords.Quaternion{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5},
		},
		Size:    coords.Vector2{X: 2, Y: 1},
		Polygon: []coords.Vector2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}},
	}
}

func dispatchPlanes(t *testing.T, d *dispatch.Custom, recs ...custom.PlaneRecord) {
	t.Helper()
	if res := d.Dispatch(encodeCustom(t, custom.PlaneResults{Planes: recs})); res != dispatch.Handled {
		t.Fatalf("dispatch planes: %s", res)
	}
}

func TestPlaneLifecycle(t *testing.T) {
	testlog.Start(t)
	reg := trackable.NewRegistry()
	planes := NewPlanes(reg, &recordSender{}, custom.PlaneDetectionBoth)
	d := dispatch.NewCustom()
	planes.Register(d)

	// unknown planes are only added once tracking
	dispatchPlanes(t, d, planeRecord(1, custom.TrackingLimited), planeRecord(2, custom.TrackingTracking))
	if reg.Contains(1) || !reg.Contains(2) {
		t.Fatalf("unexpected registry contents after first results")
	}

	p, _ := trackable.Lookup[*trackable.Plane](reg, 2)
	data := p.Payload()
	if data.Pose.Position.Z != -3 || data.Pose.Rotation.X != -0.5 || data.Pose.Rotation.Y != -0.5 || data.Pose.Rotation.Z != 0.5 {
		t.Fatalf("unexpected flipped pose: %+v", data.Pose)
	}
	wantPoly := []coords.Vector2{{X: 1, Y: -2}, {X: 1, Y: -1}, {X: 0, Y: -1}}
	for i := range wantPoly {
		if data.Polygon[i] != wantPoly[i] {
			t.Fatalf("polygon point %d: got=%+v want=%+v", i, data.Polygon[i], wantPoly[i])
		}
	}
	if poly, ok := planes.Boundary(p.ID()); !ok || len(poly) != 3 {
		t.Fatalf("boundary lookup failed")
	}

	changes := planes.Changes()
	if len(changes.Added) != 1 || changes.Added[0].IsarID != 2 {
		t.Fatalf("expected plane 2 added: %+v", changes)
	}

	sub := planeRecord(3, custom.TrackingTracking)
	sub.Subsumed = true
	sub.SubsumedBy = 2
	dispatchPlanes(t, d, planeRecord(2, custom.TrackingTracking), sub)
	changes = planes.Changes()
	if len(changes.Updated) != 1 || len(changes.Added) != 1 {
		t.Fatalf("expected one update and one add: %+v", changes)
	}
	if changes.Added[0].Data.SubsumedBy != p.ID() {
		t.Fatalf("subsumed-by must resolve to the subsuming plane id")
	}

	// a known plane dropping to limited is removed
	dispatchPlanes(t, d, planeRecord(2, custom.TrackingLimited))
	changes = planes.Changes()
	if len(changes.Removed) != 1 || changes.Removed[0] != p.ID() || reg.Contains(2) {
		t.Fatalf("expected plane 2 removed: %+v", changes)
	}
}

func TestPlaneModeAndConnection(t *testing.T) {
	testlog.Start(t)
	reg := trackable.NewRegistry()
	sender := &recordSender{}
	planes := NewPlanes(reg, sender, custom.PlaneDetectionHorizontal)
	d := dispatch.NewCustom()
	planes.Register(d)

	if err := planes.SetMode(custom.PlaneDetectionVertical); err != nil {
		t.Fatalf("set mode while disconnected: %v", err)
	}
	if len(sender.messages(t)) != 0 {
		t.Fatalf("config must wait for a connection")
	}

	planes.OnConnectionStateChanged(protocol.StateConnected)
	msgs := sender.messages(t)
	if len(msgs) != 1 || msgs[0] != (custom.PlaneConfig{Enabled: true, Mode: custom.PlaneDetectionVertical}) {
		t.Fatalf("unexpected config on connect: %+v", msgs)
	}

	dispatchPlanes(t, d, planeRecord(9, custom.TrackingTracking))
	planes.Changes()

	sender.reset()
	if err := planes.SetMode(custom.PlaneDetectionNone); err != nil {
		t.Fatalf("set mode none: %v", err)
	}
	msgs = sender.messages(t)
	if len(msgs) != 1 || msgs[0] != (custom.PlaneConfig{Enabled: false, Mode: custom.PlaneDetectionNone}) {
		t.Fatalf("unexpected config for none: %+v", msgs)
	}
	if changes := planes.Changes(); len(changes.Removed) != 1 {
		t.Fatalf("mode none must remove planes: %+v", changes)
	}

	dispatchPlanes(t, d, planeRecord(10, custom.TrackingTracking))
	if reg.Len() != 0 {
		t.Fatalf("results must be ignored while mode is none")
	}

	planes.SetMode(custom.PlaneDetectionBoth)
	dispatchPlanes(t, d, planeRecord(11, custom.TrackingTracking))
	planes.OnConnectionStateChanged(protocol.StateDisconnected)
	if changes := planes.Changes(); len(changes.Removed) != 1 || reg.Len() != 0 {
		t.Fatalf("disconnect must remove planes: %+v", changes)
	}
}
