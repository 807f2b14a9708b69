package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTooShort           = errors.New("protocol: buffer too short")
	ErrBadLength          = errors.New("protocol: unexpected buffer length")
	ErrInvalidValue       = errors.New("protocol: invalid field value")
	ErrUnknownType        = errors.New("protocol: unknown message type")
	ErrConnectionNotReady = errors.New("protocol: connection not ready")
	ErrClosed             = errors.New("protocol: resource closed")
)

// DecodeError describes a buffer rejected by a channel codec.
type DecodeError struct {
	Channel Channel
	Tag     int32
	Length  int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode tag=%d len=%d: %v", e.Channel, e.Tag, e.Length, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err with channel, tag and length context.
func NewDecodeError(ch Channel, tag int32, length int, err error) error {
	return &DecodeError{Channel: ch, Tag: tag, Length: length, Err: err}
}

// IsMalformed reports whether err classifies a buffer as garbled or truncated.
// Unknown tags are not malformed; newer hosts may send them.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrTooShort) ||
		errors.Is(err, ErrBadLength) ||
		errors.Is(err, ErrInvalidValue)
}
