package trackable

import (
	"github.com/google/uuid"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/protocol/qr"
)

// PlaneData is a detected plane in consumer convention.
type PlaneData struct {
	Pose          coords.Pose
	Center        coords.Vector2
	Size          coords.Vector2
	Alignment     custom.PlaneAlignment
	TrackingState custom.TrackingState
	// SubsumedBy is InvalidID unless another known plane absorbed this one.
	SubsumedBy ID
	Polygon    []coords.Vector2
}

type Plane = Tracked[PlaneData]

func NewPlane(isarID int32, data PlaneData) *Plane {
	return newTracked(KindPlane, isarID, data)
}

// ImageData is a tracked reference image in consumer convention.
type ImageData struct {
	Name          string
	ServerID      int32
	Pose          coords.Pose
	Size          coords.Vector2
	TrackingState custom.TrackingState
}

type Image = Tracked[ImageData]

func NewImage(isarID int32, data ImageData) *Image {
	return newTracked(KindImage, isarID, data)
}

// QRCodeData is a detected marker. Pose is in consumer convention; the
// remaining fields are carried from the host unchanged.
type QRCodeData struct {
	GUID               uuid.UUID
	Timestamp          int64
	SystemTimestamp    int64
	PhysicalSideLength float32
	Version            qr.Version
	DataSize           uint32
	DataHandle         uint64
	Data               []byte
	Pose               coords.Pose
}

type QRCode = Tracked[QRCodeData]

func NewQRCode(isarID int32, data QRCodeData) *QRCode {
	return newTracked(KindQRCode, isarID, data)
}
