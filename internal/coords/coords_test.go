package coords

import (
	"math"
	"testing"

	"github.com/danmuck/isarlink/internal/testutil/testlog"
)

func TestFlipPoseIsPureSignInversion(t *testing.T) {
	testlog.Start(t)
	in := Pose{
		Position: Vector3{X: 1.5, Y: -2.25, Z: 3.125},
		Rotation: Quaternion{X: 0.1, Y: -0.2, Z: 0.3, W: 0.9},
	}
	got := FlipPose(in)
	want := Pose{
		Position: Vector3{X: 1.5, Y: -2.25, Z: -3.125},
		Rotation: Quaternion{X: -0.1, Y: 0.2, Z: 0.3, W: 0.9},
	}
	if got != want {
		t.Fatalf("flip mismatch: got=%+v want=%+v", got, want)
	}
	if FlipPose(got) != in {
		t.Fatalf("double flip must restore the input")
	}
}

func TestHandheldConvention(t *testing.T) {
	testlog.Start(t)
	in := Pose{
		Position: Vector3{X: 1, Y: 2, Z: 3},
		Rotation: Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.4},
	}
	got := ConventionHandheld.Apply(in, 0.5)
	want := Pose{
		Position: Vector3{X: 1, Y: 2, Z: -3},
		Rotation: Quaternion{X: 0.1, Y: 0.2, Z: -0.3, W: -0.4},
	}
	if got != want {
		t.Fatalf("handheld mismatch: got=%+v want=%+v", got, want)
	}
}

func TestHMDConventionOffsetsAndTips(t *testing.T) {
	testlog.Start(t)
	in := Pose{Position: Vector3{X: 1, Y: 2, Z: 3}, Rotation: Identity()}
	got := ConventionHMD.Apply(in, 0.5)
	if got.Position != (Vector3{X: 1.5, Y: 2.5, Z: -3}) {
		t.Fatalf("unexpected position: %+v", got.Position)
	}
	s := float32(math.Sqrt2 / 2)
	if got.Rotation != (Quaternion{X: s, W: s}) {
		t.Fatalf("unexpected rotation: %+v", got.Rotation)
	}
}

func TestHMDConventionOffsetFollowsOrientation(t *testing.T) {
	testlog.Start(t)
	// 180 degrees around Y on the wire; after the flip it is still a
	// half turn, so the local (h,h,0) offset points along -X.
	in := Pose{Rotation: Quaternion{Y: 1}}
	got := ConventionHMD.Apply(in, 1)
	if math.Abs(float64(got.Position.X+1)) > 1e-6 || math.Abs(float64(got.Position.Y-1)) > 1e-6 {
		t.Fatalf("unexpected offset position: %+v", got.Position)
	}
}

func TestFlipPolygonReversesWinding(t *testing.T) {
	testlog.Start(t)
	in := []Vector2{{X: 0, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 3}}
	got := FlipPolygon(in)
	want := []Vector2{{X: 2, Y: -3}, {X: 1, Y: -2}, {X: 0, Y: -1}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d: got=%+v want=%+v", i, got[i], want[i])
		}
	}
}

func TestParseConvention(t *testing.T) {
	testlog.Start(t)
	if c, err := ParseConvention("Handheld"); err != nil || c != ConventionHandheld {
		t.Fatalf("parse handheld: %v %v", c, err)
	}
	if c, err := ParseConvention(""); err != nil || c != ConventionHMD {
		t.Fatalf("default should be hmd: %v %v", c, err)
	}
	if _, err := ParseConvention("tablet"); err == nil {
		t.Fatalf("expected error for unknown class")
	}
}

func TestPoseIsNaN(t *testing.T) {
	testlog.Start(t)
	nan := float32(math.NaN())
	if !(Pose{Position: Vector3{X: nan}}).IsNaN() {
		t.Fatalf("expected NaN pose")
	}
	if (Pose{}).IsNaN() {
		t.Fatalf("zero pose is not NaN")
	}
}
