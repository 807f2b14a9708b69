// Package custom encodes and decodes the custom-message channel. Every buffer
// starts with a little-endian int32 type tag; the payload layout is fixed per
// tag.
package custom

import "fmt"

// MessageType is the leading tag of a custom-channel buffer. Values are
// transport-stable.
type MessageType int32

const (
	TypeImageUpdated                    MessageType = 1
	TypeTouchData                       MessageType = 2
	TypeImageToTrack                    MessageType = 3
	TypeImageAdded                      MessageType = 4
	TypeImageRemoved                    MessageType = 5
	TypeRaycastScreenPoint              MessageType = 6
	TypeRaycastRay                      MessageType = 7
	TypeRaycastHitResults               MessageType = 8
	TypeRaycastAddContinuousScreenPoint MessageType = 9
	TypeRaycastAddContinuousRay         MessageType = 10
	TypeRaycastRemove                   MessageType = 11
	TypePlaneDetectionConfig            MessageType = 12
	TypePlaneDetectionResults           MessageType = 13
	TypeCameraEnable                    MessageType = 18
	TypeCameraDisable                   MessageType = 19
	TypeCameraMetadata                  MessageType = 20
)

var typeNames = map[MessageType]string{
	TypeImageUpdated:                    "IMAGE_UPDATED",
	TypeTouchData:                       "TOUCH_DATA",
	TypeImageToTrack:                    "IMAGE_TO_TRACK",
	TypeImageAdded:                      "IMAGE_ADDED",
	TypeImageRemoved:                    "IMAGE_REMOVED",
	TypeRaycastScreenPoint:              "AR_RAYCAST_SCREEN_POINT",
	TypeRaycastRay:                      "AR_RAYCAST_RAY",
	TypeRaycastHitResults:               "AR_RAYCAST_HIT_RESULTS",
	TypeRaycastAddContinuousScreenPoint: "AR_RAYCAST_ADD_CONTINUOUS_SCREEN_POINT",
	TypeRaycastAddContinuousRay:         "AR_RAYCAST_ADD_CONTINUOUS_RAY",
	TypeRaycastRemove:                   "AR_RAYCAST_REMOVE",
	TypePlaneDetectionConfig:            "AR_PLANE_DETECTION_CONFIG",
	TypePlaneDetectionResults:           "AR_PLANE_DETECTION_RESULTS",
	TypeCameraEnable:                    "CAMERA_ENABLE",
	TypeCameraDisable:                   "CAMERA_DISABLE",
	TypeCameraMetadata:                  "CAMERA_METADATA",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int32(t))
}

// Known reports whether t is part of the catalogue, reserved tags included.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// Reserved reports tags that are allocated but carry no defined payload.
func (t MessageType) Reserved() bool {
	return t >= TypeRaycastAddContinuousScreenPoint && t <= TypeRaycastRemove
}

// TouchPhase is the decoded touch type.
type TouchPhase int

const (
	TouchBegan TouchPhase = iota
	TouchMoved
	TouchEnded
)

func (p TouchPhase) String() string {
	switch p {
	case TouchBegan:
		return "began"
	case TouchMoved:
		return "moved"
	default:
		return "ended"
	}
}

// PhaseFromWire maps the raw float type. Anything other than 0 or 2 ends the
// touch.
func PhaseFromWire(v float32) TouchPhase {
	switch v {
	case 0:
		return TouchBegan
	case 2:
		return TouchMoved
	default:
		return TouchEnded
	}
}

// ImageType selects how the host tracks a reference image.
type ImageType int32

const (
	ImageStatic ImageType = 0
	ImageMoving ImageType = 1
)

func (t ImageType) String() string {
	switch t {
	case ImageStatic:
		return "static"
	case ImageMoving:
		return "moving"
	default:
		return fmt.Sprintf("ImageType(%d)", int32(t))
	}
}

// PlaneDetectionMode is a bit set of plane orientations.
type PlaneDetectionMode int32

const (
	PlaneDetectionNone       PlaneDetectionMode = 0
	PlaneDetectionHorizontal PlaneDetectionMode = 1
	PlaneDetectionVertical   PlaneDetectionMode = 2
	PlaneDetectionBoth       PlaneDetectionMode = PlaneDetectionHorizontal | PlaneDetectionVertical
)

func (m PlaneDetectionMode) String() string {
	switch m {
	case PlaneDetectionNone:
		return "none"
	case PlaneDetectionHorizontal:
		return "horizontal"
	case PlaneDetectionVertical:
		return "vertical"
	case PlaneDetectionBoth:
		return "both"
	default:
		return fmt.Sprintf("PlaneDetectionMode(%d)", int32(m))
	}
}

// TrackingState mirrors the host's per-trackable tracking quality.
type TrackingState int32

const (
	TrackingNone     TrackingState = 0
	TrackingLimited  TrackingState = 1
	TrackingTracking TrackingState = 2
)

func (s TrackingState) String() string {
	switch s {
	case TrackingNone:
		return "none"
	case TrackingLimited:
		return "limited"
	case TrackingTracking:
		return "tracking"
	default:
		return fmt.Sprintf("TrackingState(%d)", int32(s))
	}
}

// PlaneAlignment classifies a plane's orientation relative to gravity.
type PlaneAlignment int32

const (
	AlignmentNone           PlaneAlignment = 0
	AlignmentHorizontalUp   PlaneAlignment = 100
	AlignmentHorizontalDown PlaneAlignment = 101
	AlignmentVertical       PlaneAlignment = 200
	AlignmentNotAxisAligned PlaneAlignment = 300
)

// HitType is the raycast hit classification bit set.
type HitType int32

const (
	HitNone                HitType = 0
	HitPlaneWithinPolygon  HitType = 1 << 0
	HitPlaneWithinBounds   HitType = 1 << 1
	HitPlaneWithinInfinity HitType = 1 << 2
	HitPlaneEstimated      HitType = 1 << 3
	HitPlanes              HitType = HitPlaneWithinPolygon | HitPlaneWithinBounds | HitPlaneWithinInfinity | HitPlaneEstimated
	HitFeaturePoint        HitType = 1 << 4
	HitImage               HitType = 1 << 5
	HitFace                HitType = 1 << 6
	HitDepth               HitType = 1 << 7
	HitAll                 HitType = HitPlanes | HitFeaturePoint | HitImage | HitFace | HitDepth
)

// Matches reports whether a hit of type t passes mask.
func (t HitType) Matches(mask HitType) bool {
	if mask&HitAll == HitAll {
		return true
	}
	return t&mask != 0
}
