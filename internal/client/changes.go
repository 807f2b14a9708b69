package client

import (
	"github.com/danmuck/isarlink/internal/adapter"
	"github.com/danmuck/isarlink/internal/trackable"
)

// Changes is one consumer tick worth of client output.
type Changes struct {
	Touches []adapter.TouchEvent
	Images  adapter.Changes[trackable.ImageData]
	Planes  adapter.Changes[trackable.PlaneData]
	QRCodes adapter.Changes[trackable.QRCodeData]
}

func (c Changes) Empty() bool {
	return len(c.Touches) == 0 && c.Images.Empty() && c.Planes.Empty() && c.QRCodes.Empty()
}
