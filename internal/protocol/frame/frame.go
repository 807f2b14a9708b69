// Package frame stores transport envelopes in capture files so a session can
// be replayed through the dispatchers.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/isarlink/internal/protocol"
)

const (
	Magic          uint32 = 0x15A2C0DE
	Version        uint16 = 1
	FixedHeaderLen        = 24
	// FlagOutbound marks a buffer the client sent upstream.
	FlagOutbound uint8 = 0x01
)

var (
	ErrShortHeader      = errors.New("frame: short fixed header")
	ErrBadMagic         = errors.New("frame: bad magic")
	ErrVersion          = errors.New("frame: unsupported version")
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
	ErrTruncatedPayload = errors.New("frame: truncated payload")
)

// Header is the fixed capture record header. Big-endian on disk.
type Header struct {
	Magic       uint32
	Version     uint16
	Channel     protocol.Channel
	Flags       uint8
	TimestampUs uint64
	PayloadLen  uint32
}

// Frame is one captured envelope.
type Frame struct {
	Header  Header
	Payload []byte
}

// New builds a frame for payload received on ch at ts.
func New(ch protocol.Channel, ts time.Time, payload []byte) Frame {
	return Frame{
		Header: Header{
			Magic:       Magic,
			Version:     Version,
			Channel:     ch,
			TimestampUs: uint64(ts.UnixMicro()),
		},
		Payload: payload,
	}
}

func (f Frame) Timestamp() time.Time {
	return time.UnixMicro(int64(f.Header.TimestampUs))
}

func (f Frame) Outbound() bool {
	return f.Header.Flags&FlagOutbound != 0
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// ReadFrame reads one record. io.EOF is returned unchanged when r is
// exhausted exactly at a record boundary.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	n, err := io.ReadFull(r, fixed[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrTruncatedPayload
			}
			return Frame{}, err
		}
	}

	return Frame{Header: h, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}

	h := f.Header
	if h.Magic == 0 {
		h.Magic = Magic
	}
	if h.Version == 0 {
		h.Version = Version
	}
	h.PayloadLen = uint32(len(f.Payload))

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = uint8(h.Channel)
	buf[7] = h.Flags
	binary.BigEndian.PutUint64(buf[8:16], h.TimestampUs)
	binary.BigEndian.PutUint32(buf[16:20], h.PayloadLen)
	// 20:24 reserved
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		Channel:     protocol.Channel(b[6]),
		Flags:       b[7],
		TimestampUs: binary.BigEndian.Uint64(b[8:16]),
		PayloadLen:  binary.BigEndian.Uint32(b[16:20]),
	}, nil
}
