package custom

import (
	"fmt"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/wire"
)

// PeekType reads the tag without validating the payload.
func PeekType(buf []byte) (MessageType, error) {
	if len(buf) < TagSize {
		return 0, protocol.NewDecodeError(protocol.ChannelCustom, -1, len(buf), protocol.ErrTooShort)
	}
	r := wire.NewReader(buf)
	return MessageType(r.I32()), nil
}

// Decode validates and decodes one custom-channel buffer. buf is borrowed;
// every returned slice is a copy.
func Decode(buf []byte) (Message, error) {
	t, err := PeekType(buf)
	if err != nil {
		return nil, err
	}
	msg, err := decodeBody(t, buf)
	if err != nil {
		return nil, protocol.NewDecodeError(protocol.ChannelCustom, int32(t), len(buf), err)
	}
	return msg, nil
}

func decodeBody(t MessageType, buf []byte) (Message, error) {
	r := wire.NewReader(buf)
	r.Skip(TagSize)

	switch t {
	case TypeTouchData:
		return decodeTouch(r)
	case TypeImageAdded, TypeImageUpdated, TypeImageRemoved:
		return decodeImageEvent(t, r)
	case TypeImageToTrack:
		return decodeImageToTrack(r)
	case TypeRaycastScreenPoint:
		return decodeScreenPoint(r)
	case TypeRaycastRay:
		return decodeRay(r)
	case TypeRaycastHitResults:
		return decodeHits(r)
	case TypePlaneDetectionConfig:
		return decodePlaneConfig(r)
	case TypePlaneDetectionResults:
		return decodePlanes(r)
	case TypeCameraEnable:
		return CameraEnable{}, nil
	case TypeCameraDisable:
		return CameraDisable{}, nil
	case TypeCameraMetadata:
		return CameraMetadata{Data: r.Rest()}, nil
	default:
		return nil, protocol.ErrUnknownType
	}
}

func decodeTouch(r *wire.Reader) (Message, error) {
	if r.Len() < TouchMinSize {
		return nil, protocol.ErrTooShort
	}
	return Touch{
		Phase:            r.F32(),
		X:                r.F32(),
		Y:                r.F32(),
		HorizontalFactor: r.F32(),
		VerticalFactor:   r.F32(),
	}, nil
}

func decodeImageEvent(t MessageType, r *wire.Reader) (Message, error) {
	if r.Len() != ImageEventSize {
		return nil, fmt.Errorf("%w: want %d", protocol.ErrBadLength, ImageEventSize)
	}
	msg := ImageEvent{Kind: t, ImageID: r.I32()}
	msg.Pose = readPoseXYZW(r)
	msg.Width = r.F32()
	msg.Height = r.F32()
	r.Skip(imageEventReserved)
	return msg, nil
}

func decodeImageToTrack(r *wire.Reader) (Message, error) {
	if r.Len() < ImageToTrackMinLen {
		return nil, protocol.ErrTooShort
	}
	return ImageToTrack{
		ServerID:  r.I32(),
		ImageType: ImageType(r.I32()),
		Width:     r.F32(),
		JPEG:      r.Rest(),
	}, nil
}

func decodeScreenPoint(r *wire.Reader) (Message, error) {
	if r.Len() != ScreenPointSize {
		return nil, protocol.ErrBadLength
	}
	return RaycastScreenPoint{Point: coords.Vector2{X: r.F32(), Y: r.F32()}}, nil
}

func decodeRay(r *wire.Reader) (Message, error) {
	if r.Len() != RaySize {
		return nil, protocol.ErrBadLength
	}
	return RaycastRay{Origin: readVector3(r), Direction: readVector3(r)}, nil
}

func decodeHits(r *wire.Reader) (Message, error) {
	if r.Len() < TagSize+4 {
		return nil, protocol.ErrTooShort
	}
	count := r.I32()
	if count < 0 {
		return nil, fmt.Errorf("%w: hit count %d", protocol.ErrInvalidValue, count)
	}
	if r.Remaining() != int(count)*RaycastHitSize {
		return nil, fmt.Errorf("%w: %d hits need %d bytes, have %d",
			protocol.ErrBadLength, count, int(count)*RaycastHitSize, r.Remaining())
	}
	hits := make([]RaycastHit, 0, count)
	for i := int32(0); i < count; i++ {
		hit := RaycastHit{IsarID: r.I32()}
		hit.Pose = readPoseXYZW(r)
		hit.Distance = r.F32()
		hit.HitType = HitType(r.I32())
		hits = append(hits, hit)
	}
	return RaycastHits{Hits: hits}, r.Err()
}

func decodePlaneConfig(r *wire.Reader) (Message, error) {
	if r.Len() < PlaneConfigSize {
		return nil, protocol.ErrTooShort
	}
	enabled := r.U8()
	mode := PlaneDetectionMode(r.I32())
	if mode < PlaneDetectionNone || mode > PlaneDetectionBoth {
		return nil, fmt.Errorf("%w: plane detection mode %d", protocol.ErrInvalidValue, mode)
	}
	return PlaneConfig{Enabled: enabled != 0, Mode: mode}, nil
}

func decodePlanes(r *wire.Reader) (Message, error) {
	if r.Len() < TagSize+4 {
		return nil, protocol.ErrTooShort
	}
	count := r.I32()
	if count < 0 {
		return nil, fmt.Errorf("%w: plane count %d", protocol.ErrInvalidValue, count)
	}
	if int(count) > r.Remaining()/planeRecordSize {
		return nil, fmt.Errorf("%w: %d planes cannot fit in %d bytes",
			protocol.ErrTooShort, count, r.Remaining())
	}

	planes := make([]PlaneRecord, 0, count)
	for i := int32(0); i < count; i++ {
		if r.Remaining() < planeRecordSize {
			return nil, protocol.ErrTooShort
		}
		p := PlaneRecord{
			ID:         r.I32(),
			State:      TrackingState(r.I32()),
			Subsumed:   r.I32() == 1,
			SubsumedBy: r.I32(),
		}
		p.Pose.Position = readVector3(r)
		p.Pose.Rotation.W = r.F32()
		p.Pose.Rotation.X = r.F32()
		p.Pose.Rotation.Y = r.F32()
		p.Pose.Rotation.Z = r.F32()
		p.Center = coords.Vector2{X: r.F32(), Y: r.F32()}
		p.Size = coords.Vector2{X: r.F32(), Y: r.F32()}
		p.Alignment = PlaneAlignment(r.I32())

		floats := r.I32()
		if floats < 0 || floats%2 != 0 {
			return nil, fmt.Errorf("%w: polygon float count %d", protocol.ErrInvalidValue, floats)
		}
		if int(floats) > r.Remaining()/4 {
			return nil, protocol.ErrTooShort
		}
		p.Polygon = make([]coords.Vector2, floats/2)
		for j := range p.Polygon {
			p.Polygon[j] = coords.Vector2{X: r.F32(), Y: r.F32()}
		}
		planes = append(planes, p)
	}
	if err := r.Err(); err != nil {
		return nil, protocol.ErrTooShort
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", protocol.ErrBadLength, r.Remaining())
	}
	return PlaneResults{Planes: planes}, nil
}

func readVector3(r *wire.Reader) coords.Vector3 {
	return coords.Vector3{X: r.F32(), Y: r.F32(), Z: r.F32()}
}

func readPoseXYZW(r *wire.Reader) coords.Pose {
	pos := readVector3(r)
	rot := coords.Quaternion{X: r.F32(), Y: r.F32(), Z: r.F32(), W: r.F32()}
	return coords.Pose{Position: pos, Rotation: rot}
}
