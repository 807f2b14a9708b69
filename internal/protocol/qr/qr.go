// Package qr decodes the QR channel. A message is an int32 discriminant at
// offset 0 followed by a variant payload at offset 8.
package qr

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/danmuck/isarlink/internal/coords"
)

type MessageType int32

const (
	TypeIsSupported          MessageType = 0
	TypeRequestAccess        MessageType = 1
	TypeGetList              MessageType = 2
	TypeAdded                MessageType = 3
	TypeUpdated              MessageType = 4
	TypeRemoved              MessageType = 5
	TypeEnumerationCompleted MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case TypeIsSupported:
		return "IsSupported"
	case TypeRequestAccess:
		return "RequestAccess"
	case TypeGetList:
		return "GetList"
	case TypeAdded:
		return "Added"
	case TypeUpdated:
		return "Updated"
	case TypeRemoved:
		return "Removed"
	case TypeEnumerationCompleted:
		return "EnumerationCompleted"
	default:
		return fmt.Sprintf("QrMessageType(%d)", int32(t))
	}
}

type AccessStatus int32

const (
	AccessDeniedBySystem     AccessStatus = 0
	AccessNotDeclaredByApp   AccessStatus = 1
	AccessDeniedByUser       AccessStatus = 2
	AccessUserPromptRequired AccessStatus = 3
	AccessAllowed            AccessStatus = 4
)

func (s AccessStatus) String() string {
	switch s {
	case AccessDeniedBySystem:
		return "DeniedBySystem"
	case AccessNotDeclaredByApp:
		return "NotDeclaredByApp"
	case AccessDeniedByUser:
		return "DeniedByUser"
	case AccessUserPromptRequired:
		return "UserPromptRequired"
	case AccessAllowed:
		return "Allowed"
	default:
		return fmt.Sprintf("AccessStatus(%d)", int32(s))
	}
}

// Version is the symbol version: 1..40 regular QR, 41..44 Micro QR M1..M4,
// 0 invalid.
type Version int32

const (
	VersionInvalid    Version = 0
	VersionMicroFirst Version = 41
	VersionMax        Version = 44
)

func (v Version) String() string {
	switch {
	case v == VersionInvalid:
		return "INVALID"
	case v > 0 && v < VersionMicroFirst:
		return fmt.Sprintf("QR%d", int32(v))
	case v >= VersionMicroFirst && v <= VersionMax:
		return fmt.Sprintf("MICRO_QRM%d", int32(v-VersionMicroFirst)+1)
	default:
		return fmt.Sprintf("Version(%d)", int32(v))
	}
}

// Code is one detected marker as reported by the host. Pose is in wire
// convention.
type Code struct {
	ID                 uuid.UUID
	Timestamp          int64
	SystemTimestamp    int64
	PhysicalSideLength float32
	Version            Version
	DataSize           uint32
	DataHandle         uint64
	Pose               coords.Pose
	// Data holds the payload bytes when the buffer carried them inline.
	Data []byte
}

type Message interface {
	Type() MessageType
}

type IsSupported struct {
	Supported bool
}

func (IsSupported) Type() MessageType { return TypeIsSupported }

type AccessStatusReceived struct {
	Status AccessStatus
}

func (AccessStatusReceived) Type() MessageType { return TypeRequestAccess }

type GetList struct{}

func (GetList) Type() MessageType { return TypeGetList }

// CodeEvent covers Added, Updated and Removed.
type CodeEvent struct {
	Kind MessageType
	Code Code
}

func (m CodeEvent) Type() MessageType { return m.Kind }

type EnumerationCompleted struct{}

func (EnumerationCompleted) Type() MessageType { return TypeEnumerationCompleted }
