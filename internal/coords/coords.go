// Package coords converts poses between the wire convention (right-handed)
// and the consumer convention (left-handed, Y up).
//
// Every handedness flip is a sign inversion of named components. Nothing here
// builds or transposes a matrix, so converted values stay bit-identical to the
// legacy stream.
package coords

import (
	"fmt"
	"math"
	"strings"
)

type Vector2 struct {
	X, Y float32
}

type Vector3 struct {
	X, Y, Z float32
}

type Quaternion struct {
	X, Y, Z, W float32
}

type Pose struct {
	Position Vector3
	Rotation Quaternion
}

func Identity() Quaternion {
	return Quaternion{W: 1}
}

// FlipVector2 negates Y. Plane boundary points live in the plane's XY.
func FlipVector2(v Vector2) Vector2 {
	v.Y = -v.Y
	return v
}

// FlipVector3 negates Z.
func FlipVector3(v Vector3) Vector3 {
	v.Z = -v.Z
	return v
}

// FlipQuaternion negates X and Y.
func FlipQuaternion(q Quaternion) Quaternion {
	q.X = -q.X
	q.Y = -q.Y
	return q
}

func FlipPose(p Pose) Pose {
	return Pose{Position: FlipVector3(p.Position), Rotation: FlipQuaternion(p.Rotation)}
}

// FlipPolygon flips every point and reverses the order. Negating one axis
// mirrors the winding; reversing restores clockwise order.
func FlipPolygon(points []Vector2) []Vector2 {
	out := make([]Vector2, len(points))
	for i, p := range points {
		out[len(points)-1-i] = FlipVector2(p)
	}
	return out
}

// Rotate returns q applied to v.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	x2 := q.X * 2
	y2 := q.Y * 2
	z2 := q.Z * 2
	xx := q.X * x2
	yy := q.Y * y2
	zz := q.Z * z2
	xy := q.X * y2
	xz := q.X * z2
	yz := q.Y * z2
	wx := q.W * x2
	wy := q.W * y2
	wz := q.W * z2
	return Vector3{
		X: (1-(yy+zz))*v.X + (xy-wz)*v.Y + (xz+wy)*v.Z,
		Y: (xy+wz)*v.X + (1-(xx+zz))*v.Y + (yz-wx)*v.Z,
		Z: (xz-wy)*v.X + (yz+wx)*v.Y + (1-(xx+yy))*v.Z,
	}
}

// Mul returns q * r (r applied first, in q's local frame).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y + q.Y*r.W + q.Z*r.X - q.X*r.Z,
		Z: q.W*r.Z + q.Z*r.W + q.X*r.Y - q.Y*r.X,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// IsNaN reports whether any position component is NaN. The host marks
// an unknown pose with a NaN X.
func (p Pose) IsNaN() bool {
	return isNaN32(p.Position.X) || isNaN32(p.Position.Y) || isNaN32(p.Position.Z)
}

func isNaN32(f float32) bool {
	return f != f
}

// quarterTurnX is a +90 degree rotation around the local X axis.
var quarterTurnX = Quaternion{X: float32(math.Sqrt2 / 2), W: float32(math.Sqrt2 / 2)}

// Convention selects how a device class reports marker poses.
type Convention int

const (
	ConventionHMD Convention = iota
	ConventionHandheld
)

func (c Convention) String() string {
	switch c {
	case ConventionHMD:
		return "hmd"
	case ConventionHandheld:
		return "handheld"
	default:
		return fmt.Sprintf("convention(%d)", int(c))
	}
}

func ParseConvention(raw string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "hmd":
		return ConventionHMD, nil
	case "handheld":
		return ConventionHandheld, nil
	default:
		return 0, fmt.Errorf("coords: unknown device class %q", raw)
	}
}

// Apply converts a wire marker pose. halfExtent is half the marker's side
// length; HMD markers are anchored at a corner and get shifted to their
// center, then tipped a quarter turn around local X. Handheld devices report
// center-anchored poses with a different quaternion sign convention.
func (c Convention) Apply(p Pose, halfExtent float32) Pose {
	switch c {
	case ConventionHandheld:
		out := p
		out.Position.Z = -out.Position.Z
		out.Rotation.Z = -out.Rotation.Z
		out.Rotation.W = -out.Rotation.W
		return out
	default:
		out := FlipPose(p)
		offset := Vector3{X: halfExtent, Y: halfExtent}
		out.Position = out.Position.Add(out.Rotation.Rotate(offset))
		out.Rotation = out.Rotation.Mul(quarterTurnX)
		return out
	}
}
