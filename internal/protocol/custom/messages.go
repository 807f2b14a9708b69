package custom

import "github.com/danmuck/isarlink/internal/coords"

// Fixed sizes in bytes, tag included.
const (
	TagSize            = 4
	TouchMinSize       = TagSize + 5*4
	ImageEventSize     = TagSize + 4 + 11*4
	ScreenPointSize    = TagSize + 2*4
	RaySize            = TagSize + 6*4
	PlaneConfigSize    = TagSize + 1 + 4
	ImageToTrackMinLen = TagSize + 3*4
	RaycastHitSize     = 10 * 4
	planeRecordSize    = 17 * 4

	// trailing bytes of an image event after width and height, written as
	// zero and ignored on decode
	imageEventReserved = ImageEventSize - (TagSize + 4 + 9*4)
)

// Message is one decoded custom-channel payload. Poses are carried exactly as
// they appear on the wire; handedness conversion happens in the adapters.
type Message interface {
	Type() MessageType
}

type Touch struct {
	Phase            float32
	X                float32
	Y                float32
	HorizontalFactor float32
	VerticalFactor   float32
}

func (Touch) Type() MessageType { return TypeTouchData }

// ImageEvent is shared by IMAGE_ADDED, IMAGE_UPDATED and IMAGE_REMOVED.
type ImageEvent struct {
	Kind    MessageType
	ImageID int32
	Pose    coords.Pose
	Width   float32
	Height  float32
}

func (m ImageEvent) Type() MessageType { return m.Kind }

// ImageToTrack registers a reference image with the host.
type ImageToTrack struct {
	ServerID  int32
	ImageType ImageType
	Width     float32
	JPEG      []byte
}

func (ImageToTrack) Type() MessageType { return TypeImageToTrack }

type RaycastScreenPoint struct {
	Point coords.Vector2
}

func (RaycastScreenPoint) Type() MessageType { return TypeRaycastScreenPoint }

type RaycastRay struct {
	Origin    coords.Vector3
	Direction coords.Vector3
}

func (RaycastRay) Type() MessageType { return TypeRaycastRay }

type RaycastHit struct {
	IsarID   int32
	Pose     coords.Pose
	Distance float32
	HitType  HitType
}

type RaycastHits struct {
	Hits []RaycastHit
}

func (RaycastHits) Type() MessageType { return TypeRaycastHitResults }

type PlaneConfig struct {
	Enabled bool
	Mode    PlaneDetectionMode
}

func (PlaneConfig) Type() MessageType { return TypePlaneDetectionConfig }

// PlaneRecord is one plane of a detection result. Rotation is stored x,y,z,w
// regardless of the w-first wire order.
type PlaneRecord struct {
	ID         int32
	State      TrackingState
	Subsumed   bool
	SubsumedBy int32
	Pose       coords.Pose
	Center     coords.Vector2
	Size       coords.Vector2
	Alignment  PlaneAlignment
	Polygon    []coords.Vector2
}

type PlaneResults struct {
	Planes []PlaneRecord
}

func (PlaneResults) Type() MessageType { return TypePlaneDetectionResults }

type CameraEnable struct{}

func (CameraEnable) Type() MessageType { return TypeCameraEnable }

type CameraDisable struct{}

func (CameraDisable) Type() MessageType { return TypeCameraDisable }

// CameraMetadata is opaque to this layer.
type CameraMetadata struct {
	Data []byte
}

func (CameraMetadata) Type() MessageType { return TypeCameraMetadata }
