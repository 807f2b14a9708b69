package qr

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/wire"
)

const (
	PayloadOffset = 8
	// CodeSize is the minimum length of a code event: header plus record.
	CodeSize = 92
	// DataOffset is where inline code data starts, the record padded to 8.
	DataOffset = 96

	isSupportedSize   = PayloadOffset + 1
	requestAccessSize = PayloadOffset + 4
	discriminantSize  = 4
)

// PeekType reads the discriminant.
func PeekType(buf []byte) (MessageType, error) {
	if len(buf) < discriminantSize {
		return 0, protocol.NewDecodeError(protocol.ChannelQR, -1, len(buf), protocol.ErrTooShort)
	}
	return MessageType(wire.NewReader(buf).I32()), nil
}

// Decode validates the discriminant and builds the matching variant. buf is
// borrowed; Code.Data is a copy.
func Decode(buf []byte) (Message, error) {
	t, err := PeekType(buf)
	if err != nil {
		return nil, err
	}
	msg, err := decodeBody(t, buf)
	if err != nil {
		return nil, protocol.NewDecodeError(protocol.ChannelQR, int32(t), len(buf), err)
	}
	return msg, nil
}

func decodeBody(t MessageType, buf []byte) (Message, error) {
	r := wire.NewReader(buf)
	switch t {
	case TypeIsSupported:
		if len(buf) < isSupportedSize {
			return nil, protocol.ErrTooShort
		}
		r.Seek(PayloadOffset)
		return IsSupported{Supported: r.U8() != 0}, nil
	case TypeRequestAccess:
		if len(buf) < requestAccessSize {
			return nil, protocol.ErrTooShort
		}
		r.Seek(PayloadOffset)
		status := AccessStatus(r.I32())
		if status < AccessDeniedBySystem || status > AccessAllowed {
			return nil, fmt.Errorf("%w: access status %d", protocol.ErrInvalidValue, status)
		}
		return AccessStatusReceived{Status: status}, nil
	case TypeGetList:
		return GetList{}, nil
	case TypeAdded, TypeUpdated, TypeRemoved:
		code, err := decodeCode(r)
		if err != nil {
			return nil, err
		}
		return CodeEvent{Kind: t, Code: code}, nil
	case TypeEnumerationCompleted:
		return EnumerationCompleted{}, nil
	default:
		return nil, protocol.ErrUnknownType
	}
}

func decodeCode(r *wire.Reader) (Code, error) {
	if r.Len() < CodeSize {
		return Code{}, protocol.ErrTooShort
	}
	r.Seek(PayloadOffset)
	var c Code
	c.ID = guidFromWire(r.Bytes(16))
	c.Timestamp = r.I64()
	c.SystemTimestamp = r.I64()
	c.PhysicalSideLength = r.F32()
	c.Version = Version(r.I32())
	c.DataSize = r.U32()
	r.Skip(4)
	c.DataHandle = r.U64()
	c.Pose.Position = coords.Vector3{X: r.F32(), Y: r.F32(), Z: r.F32()}
	c.Pose.Rotation = coords.Quaternion{X: r.F32(), Y: r.F32(), Z: r.F32(), W: r.F32()}
	if err := r.Err(); err != nil {
		return Code{}, protocol.ErrTooShort
	}
	if c.Version < VersionInvalid || c.Version > VersionMax {
		return Code{}, fmt.Errorf("%w: qr version %d", protocol.ErrInvalidValue, c.Version)
	}
	if c.DataSize > 0 && r.Len() >= DataOffset && uint64(r.Len()-DataOffset) >= uint64(c.DataSize) {
		r.Seek(DataOffset)
		c.Data = r.Bytes(int(c.DataSize))
	}
	return c, nil
}

// Encode produces the channel layout for msg. The host is the only producer
// on this channel; encoding exists for recorded streams and tests.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case IsSupported:
		w := header(TypeIsSupported, isSupportedSize)
		w.Bool(m.Supported)
		return w.Bytes(), nil
	case AccessStatusReceived:
		w := header(TypeRequestAccess, requestAccessSize)
		w.I32(int32(m.Status))
		return w.Bytes(), nil
	case GetList:
		return header(TypeGetList, PayloadOffset).Bytes(), nil
	case EnumerationCompleted:
		return header(TypeEnumerationCompleted, PayloadOffset).Bytes(), nil
	case CodeEvent:
		switch m.Kind {
		case TypeAdded, TypeUpdated, TypeRemoved:
		default:
			return nil, fmt.Errorf("qr: %s is not a code event", m.Kind)
		}
		return encodeCode(m.Kind, m.Code), nil
	case nil:
		return nil, fmt.Errorf("qr: nil message")
	default:
		return nil, fmt.Errorf("qr: cannot encode %T", msg)
	}
}

func encodeCode(t MessageType, c Code) []byte {
	size := c.DataSize
	if c.Data != nil {
		size = uint32(len(c.Data))
	}
	w := header(t, DataOffset+len(c.Data))
	w.Raw(guidToWire(c.ID))
	w.I64(c.Timestamp)
	w.I64(c.SystemTimestamp)
	w.F32(c.PhysicalSideLength)
	w.I32(int32(c.Version))
	w.U32(size)
	w.Zero(4)
	w.U64(c.DataHandle)
	w.F32(c.Pose.Position.X)
	w.F32(c.Pose.Position.Y)
	w.F32(c.Pose.Position.Z)
	w.F32(c.Pose.Rotation.X)
	w.F32(c.Pose.Rotation.Y)
	w.F32(c.Pose.Rotation.Z)
	w.F32(c.Pose.Rotation.W)
	w.Zero(DataOffset - CodeSize)
	w.Raw(c.Data)
	return w.Bytes()
}

func header(t MessageType, size int) *wire.Writer {
	w := wire.NewWriter(size)
	w.I32(int32(t))
	w.Zero(PayloadOffset - discriminantSize)
	return w
}

// guidFromWire converts the host's mixed-endian GUID (u32, u16, u16 little
// endian, then 8 raw bytes) to RFC 4122 byte order.
func guidFromWire(b []byte) uuid.UUID {
	var id uuid.UUID
	if len(b) != 16 {
		return id
	}
	binary.BigEndian.PutUint32(id[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(id[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(id[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(id[8:], b[8:16])
	return id
}

func guidToWire(id uuid.UUID) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], binary.BigEndian.Uint32(id[0:4]))
	binary.LittleEndian.PutUint16(b[4:6], binary.BigEndian.Uint16(id[4:6]))
	binary.LittleEndian.PutUint16(b[6:8], binary.BigEndian.Uint16(id[6:8]))
	copy(b[8:], id[8:])
	return b
}
