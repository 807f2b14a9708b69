package adapter

import (
	"errors"
	"testing"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/testutil/testlog"
	"github.com/danmuck/isarlink/internal/trackable"
)

func newImagesHarness(t *testing.T) (*Images, *dispatch.Custom, *trackable.Registry, *recordSender) {
	t.Helper()
	reg := trackable.NewRegistry()
	sender := &recordSender{}
	images := NewImages(reg, sender)
	d := dispatch.NewCustom()
	images.Register(d)
	return images, d, reg, sender
}

func imageEvent(kind custom.MessageType, id int32, z float32) custom.ImageEvent {
	return custom.ImageEvent{
		Kind:    kind,
		ImageID: id,
		Pose: coords.Pose{
			Position: coords.Vector3{X: 1, Y: 2, Z: z},
			Rotation: coords.Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
		},
		Width:  0.2,
		Height: 0.1,
	}
}

func TestImageUpdateForUndeclaredImageIsIgnored(t *testing.T) {
	testlog.Start(t)
	_, d, reg, _ := newImagesHarness(t)

	buf := encodeCustom(t, imageEvent(custom.TypeImageUpdated, 42, 3))
	if len(buf) != 52 {
		t.Fatalf("expected 52-byte buffer, got %d", len(buf))
	}
	if res := d.Dispatch(buf); res != dispatch.Handled {
		t.Fatalf("expected handled, got %s", res)
	}
	if res := d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageAdded, 42, 3))); res != dispatch.Handled {
		t.Fatalf("expected handled, got %s", res)
	}
	if reg.Len() != 0 {
		t.Fatalf("undeclared image must not create a trackable")
	}
}

func TestImageLifecycle(t *testing.T) {
	testlog.Start(t)
	images, d, reg, _ := newImagesHarness(t)
	id, err := images.Declare(ReferenceImage{Name: "poster", JPEG: []byte{0xff, 0xd8}, Type: custom.ImageMoving, WidthMeters: 0.3})
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if id != ImageServerID("poster") || id < 0 {
		t.Fatalf("unexpected server id %d", id)
	}

	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageAdded, id, 3)))
	img, ok := trackable.Lookup[*trackable.Image](reg, id)
	if !ok {
		t.Fatalf("declared image must be tracked after added")
	}
	data := img.Payload()
	if data.Name != "poster" || data.Pose.Position.Z != -3 || data.Pose.Rotation.X != -0.1 || data.Pose.Rotation.Y != -0.2 {
		t.Fatalf("unexpected image data: %+v", data)
	}
	if data.TrackingState != custom.TrackingTracking {
		t.Fatalf("expected tracking state, got %s", data.TrackingState)
	}

	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageUpdated, id, 5)))
	changes := images.Changes()
	if len(changes.Added) != 1 || len(changes.Updated) != 0 || changes.Added[0].Data.Pose.Position.Z != -5 {
		t.Fatalf("unread added must absorb the update: %+v", changes)
	}

	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageUpdated, id, 6)))
	changes = images.Changes()
	if len(changes.Updated) != 1 || changes.Updated[0].ID != img.ID() {
		t.Fatalf("expected one updated image: %+v", changes)
	}

	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageRemoved, id, 6)))
	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageUpdated, id, 7)))
	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageAdded, id, 8)))
	if img.UpdateType() != trackable.UpdateRemoved || img.Payload().Pose.Position.Z != -6 {
		t.Fatalf("removed image must ignore late traffic: %s %+v", img.UpdateType(), img.Payload().Pose)
	}
	changes = images.Changes()
	if len(changes.Removed) != 1 || changes.Removed[0] != img.ID() {
		t.Fatalf("expected removal: %+v", changes)
	}
	if reg.Len() != 0 {
		t.Fatalf("acknowledged removal must purge the registry")
	}
	if !images.Changes().Empty() {
		t.Fatalf("second poll must be empty")
	}
}

func TestImageIDHeldByPlane(t *testing.T) {
	testlog.Start(t)
	images, d, reg, _ := newImagesHarness(t)
	id := ImageServerID("poster")
	plane := trackable.NewPlane(id, trackable.PlaneData{Size: coords.Vector2{X: 2, Y: 1}})
	if err := reg.Add(plane); err != nil {
		t.Fatalf("add plane: %v", err)
	}
	if _, err := images.Declare(ReferenceImage{Name: "poster", JPEG: []byte{0xff, 0xd8}, WidthMeters: 0.3}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	for _, kind := range []custom.MessageType{custom.TypeImageAdded, custom.TypeImageUpdated, custom.TypeImageRemoved} {
		if res := d.Dispatch(encodeCustom(t, imageEvent(kind, id, 3))); res != dispatch.Handled {
			t.Fatalf("%s: expected handled, got %s", kind, res)
		}
	}
	if _, ok := trackable.Lookup[*trackable.Image](reg, id); ok {
		t.Fatalf("image must not replace the plane holding its id")
	}
	got, ok := trackable.Lookup[*trackable.Plane](reg, id)
	if !ok || got.Payload().Size != (coords.Vector2{X: 2, Y: 1}) || got.UpdateType() == trackable.UpdateRemoved {
		t.Fatalf("plane must be left untouched")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected only the plane, got %d entities", reg.Len())
	}
}

func TestImagesResentOnConnect(t *testing.T) {
	testlog.Start(t)
	images, _, _, sender := newImagesHarness(t)
	if _, err := images.Declare(ReferenceImage{Name: "a", JPEG: []byte{1}, WidthMeters: 1}); err != nil {
		t.Fatalf("declare a: %v", err)
	}
	if _, err := images.Declare(ReferenceImage{Name: "b", JPEG: []byte{2}, Type: custom.ImageMoving, WidthMeters: 2}); err != nil {
		t.Fatalf("declare b: %v", err)
	}
	if len(sender.messages(t)) != 0 {
		t.Fatalf("nothing may be sent while disconnected")
	}

	for round := 0; round < 2; round++ {
		sender.reset()
		images.OnConnectionStateChanged(protocol.StateConnected)
		msgs := sender.messages(t)
		if len(msgs) != 2 {
			t.Fatalf("round %d: expected 2 image-to-track messages, got %d", round, len(msgs))
		}
		for _, msg := range msgs {
			m := msg.(custom.ImageToTrack)
			if m.ServerID != ImageServerID("a") && m.ServerID != ImageServerID("b") {
				t.Fatalf("unexpected server id %d", m.ServerID)
			}
		}
		images.OnConnectionStateChanged(protocol.StateDisconnected)
	}

	sender.reset()
	images.OnConnectionStateChanged(protocol.StateConnected)
	sender.reset()
	if _, err := images.Declare(ReferenceImage{Name: "c", JPEG: []byte{3}, WidthMeters: 1}); err != nil {
		t.Fatalf("declare c: %v", err)
	}
	if msgs := sender.messages(t); len(msgs) != 1 || msgs[0].(custom.ImageToTrack).ServerID != ImageServerID("c") {
		t.Fatalf("declaring while connected must send immediately: %+v", msgs)
	}
}

func TestImagesRemovedOnDisconnect(t *testing.T) {
	testlog.Start(t)
	images, d, reg, _ := newImagesHarness(t)
	id, _ := images.Declare(ReferenceImage{Name: "poster", JPEG: []byte{1}, WidthMeters: 1})
	images.OnConnectionStateChanged(protocol.StateConnected)
	d.Dispatch(encodeCustom(t, imageEvent(custom.TypeImageAdded, id, 1)))
	images.Changes()

	images.OnConnectionStateChanged(protocol.StateDisconnected)
	changes := images.Changes()
	if len(changes.Removed) != 1 || reg.Len() != 0 {
		t.Fatalf("disconnect must remove tracked images: %+v len=%d", changes, reg.Len())
	}
}

func TestDeclareValidation(t *testing.T) {
	testlog.Start(t)
	images, _, _, _ := newImagesHarness(t)
	bad := []ReferenceImage{
		{JPEG: []byte{1}, WidthMeters: 1},
		{Name: "x", WidthMeters: 1},
		{Name: "x", JPEG: []byte{1}},
	}
	for _, img := range bad {
		if _, err := images.Declare(img); !errors.Is(err, ErrInvalidImage) {
			t.Fatalf("expected invalid image for %+v, got %v", img, err)
		}
	}
}
