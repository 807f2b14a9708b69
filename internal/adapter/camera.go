package adapter

import (
	"sync"

	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
)

// Camera toggles the host camera stream and forwards its metadata.
type Camera struct {
	link

	mu         sync.Mutex
	enabled    bool
	onMetadata func([]byte)
}

func NewCamera(sender protocol.Sender) *Camera {
	return &Camera{link: newLink(sender)}
}

func (a *Camera) Register(d *dispatch.Custom) {
	d.Handle(custom.TypeCameraMetadata, a.HandleMessage)
}

// OnMetadata sets the metadata subscriber. The slice passed to fn is owned
// by fn.
func (a *Camera) OnMetadata(fn func([]byte)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onMetadata = fn
}

func (a *Camera) Enable() error {
	if err := a.send(custom.CameraEnable{}); err != nil {
		return err
	}
	a.mu.Lock()
	a.enabled = true
	a.mu.Unlock()
	return nil
}

func (a *Camera) Disable() error {
	if err := a.send(custom.CameraDisable{}); err != nil {
		return err
	}
	a.mu.Lock()
	a.enabled = false
	a.mu.Unlock()
	return nil
}

func (a *Camera) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *Camera) HandleMessage(msg custom.Message) {
	m, ok := msg.(custom.CameraMetadata)
	if !ok {
		return
	}
	a.mu.Lock()
	fn := a.onMetadata
	a.mu.Unlock()
	if fn == nil {
		return
	}
	data := make([]byte, len(m.Data))
	copy(data, m.Data)
	fn(data)
}

func (a *Camera) OnConnectionStateChanged(s protocol.ConnectionState) {
	a.setState(s)
	if s.Connected() {
		return
	}
	a.mu.Lock()
	a.enabled = false
	a.mu.Unlock()
}
