package custom

import (
	"fmt"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol/wire"
)

// Encode produces the tagged buffer for msg. Inbound kinds are encodable too
// so recorded streams and tests can be synthesized.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Touch:
		w := header(TypeTouchData, TouchMinSize)
		w.F32(m.Phase)
		w.F32(m.X)
		w.F32(m.Y)
		w.F32(m.HorizontalFactor)
		w.F32(m.VerticalFactor)
		return w.Bytes(), nil
	case ImageEvent:
		switch m.Kind {
		case TypeImageAdded, TypeImageUpdated, TypeImageRemoved:
		default:
			return nil, fmt.Errorf("custom: %s is not an image event", m.Kind)
		}
		w := header(m.Kind, ImageEventSize)
		w.I32(m.ImageID)
		writePoseXYZW(w, m.Pose)
		w.F32(m.Width)
		w.F32(m.Height)
		w.Zero(imageEventReserved)
		return w.Bytes(), nil
	case ImageToTrack:
		w := header(TypeImageToTrack, ImageToTrackMinLen+len(m.JPEG))
		w.I32(m.ServerID)
		w.I32(int32(m.ImageType))
		w.F32(m.Width)
		w.Raw(m.JPEG)
		return w.Bytes(), nil
	case RaycastScreenPoint:
		w := header(TypeRaycastScreenPoint, ScreenPointSize)
		w.F32(m.Point.X)
		w.F32(m.Point.Y)
		return w.Bytes(), nil
	case RaycastRay:
		w := header(TypeRaycastRay, RaySize)
		writeVector3(w, m.Origin)
		writeVector3(w, m.Direction)
		return w.Bytes(), nil
	case RaycastHits:
		w := header(TypeRaycastHitResults, TagSize+4+len(m.Hits)*RaycastHitSize)
		w.I32(int32(len(m.Hits)))
		for _, h := range m.Hits {
			w.I32(h.IsarID)
			writePoseXYZW(w, h.Pose)
			w.F32(h.Distance)
			w.I32(int32(h.HitType))
		}
		return w.Bytes(), nil
	case PlaneConfig:
		w := header(TypePlaneDetectionConfig, PlaneConfigSize)
		w.Bool(m.Enabled)
		w.I32(int32(m.Mode))
		return w.Bytes(), nil
	case PlaneResults:
		w := header(TypePlaneDetectionResults, TagSize+4+len(m.Planes)*planeRecordSize)
		w.I32(int32(len(m.Planes)))
		for _, p := range m.Planes {
			w.I32(p.ID)
			w.I32(int32(p.State))
			if p.Subsumed {
				w.I32(1)
			} else {
				w.I32(0)
			}
			w.I32(p.SubsumedBy)
			writeVector3(w, p.Pose.Position)
			w.F32(p.Pose.Rotation.W)
			w.F32(p.Pose.Rotation.X)
			w.F32(p.Pose.Rotation.Y)
			w.F32(p.Pose.Rotation.Z)
			w.F32(p.Center.X)
			w.F32(p.Center.Y)
			w.F32(p.Size.X)
			w.F32(p.Size.Y)
			w.I32(int32(p.Alignment))
			w.I32(int32(len(p.Polygon) * 2))
			for _, pt := range p.Polygon {
				w.F32(pt.X)
				w.F32(pt.Y)
			}
		}
		return w.Bytes(), nil
	case CameraEnable:
		return header(TypeCameraEnable, TagSize).Bytes(), nil
	case CameraDisable:
		return header(TypeCameraDisable, TagSize).Bytes(), nil
	case CameraMetadata:
		w := header(TypeCameraMetadata, TagSize+len(m.Data))
		w.Raw(m.Data)
		return w.Bytes(), nil
	case nil:
		return nil, fmt.Errorf("custom: nil message")
	default:
		return nil, fmt.Errorf("custom: cannot encode %T", msg)
	}
}

func header(t MessageType, size int) *wire.Writer {
	w := wire.NewWriter(size)
	w.I32(int32(t))
	return w
}

func writeVector3(w *wire.Writer, v coords.Vector3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

func writePoseXYZW(w *wire.Writer, p coords.Pose) {
	writeVector3(w, p.Position)
	w.F32(p.Rotation.X)
	w.F32(p.Rotation.Y)
	w.F32(p.Rotation.Z)
	w.F32(p.Rotation.W)
}
