package adapter

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/qr"
	"github.com/danmuck/isarlink/internal/trackable"
)

// QrControl issues QR requests to the host. It is implemented by the
// transport; replies arrive on the QR channel.
type QrControl interface {
	IsSupported() error
	RequestAccess() error
	Start() error
	Stop() error
}

// QRCallbacks receive the ephemeral QR replies. Nil fields are skipped.
type QRCallbacks struct {
	IsSupported          func(bool)
	AccessStatus         func(qr.AccessStatus)
	EnumerationCompleted func()
}

// QRCodes tracks detected markers in the registry, keyed by a hash of their
// GUID.
type QRCodes struct {
	registry   *trackable.Registry
	control    QrControl
	convention coords.Convention

	mu        sync.Mutex
	state     protocol.ConnectionState
	watching  bool
	callbacks QRCallbacks
}

func NewQRCodes(reg *trackable.Registry, control QrControl, convention coords.Convention) *QRCodes {
	return &QRCodes{
		registry:   reg,
		control:    control,
		convention: convention,
	}
}

// QRIsarID maps a marker GUID into the registry's integer key space.
func QRIsarID(id uuid.UUID) int32 {
	return int32(xxhash.Sum64(id[:]) & 0x7fffffff)
}

// Register wires every QR message kind except GetList, which carries
// nothing this layer uses.
func (a *QRCodes) Register(d *dispatch.QR) {
	d.Handle(qr.TypeIsSupported, a.HandleMessage)
	d.Handle(qr.TypeRequestAccess, a.HandleMessage)
	d.Handle(qr.TypeAdded, a.HandleMessage)
	d.Handle(qr.TypeUpdated, a.HandleMessage)
	d.Handle(qr.TypeRemoved, a.HandleMessage)
	d.Handle(qr.TypeEnumerationCompleted, a.HandleMessage)
}

func (a *QRCodes) SetCallbacks(cb QRCallbacks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = cb
}

func (a *QRCodes) snapshot() (QRCallbacks, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callbacks, a.state.Connected()
}

func (a *QRCodes) Watching() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watching
}

func (a *QRCodes) IsSupported() error {
	return a.call("IsSupported", func(c QrControl) error { return c.IsSupported() })
}

func (a *QRCodes) RequestAccess() error {
	return a.call("RequestAccess", func(c QrControl) error { return c.RequestAccess() })
}

// StartWatching asks the host to enumerate markers. It is a no-op while
// already watching.
func (a *QRCodes) StartWatching() error {
	if a.Watching() {
		return nil
	}
	if err := a.call("Start", func(c QrControl) error { return c.Start() }); err != nil {
		return err
	}
	a.mu.Lock()
	a.watching = true
	a.mu.Unlock()
	return nil
}

func (a *QRCodes) StopWatching() error {
	if !a.Watching() {
		return nil
	}
	err := a.call("Stop", func(c QrControl) error { return c.Stop() })
	a.mu.Lock()
	a.watching = false
	a.mu.Unlock()
	return err
}

func (a *QRCodes) call(op string, fn func(QrControl) error) error {
	if _, connected := a.snapshot(); !connected {
		return protocol.ErrConnectionNotReady
	}
	if a.control == nil {
		return protocol.ErrConnectionNotReady
	}
	if err := fn(a.control); err != nil {
		log.Warn().Err(err).Str("op", op).Msg("adapter.QRCodes control call failed")
		return err
	}
	return nil
}

func (a *QRCodes) HandleMessage(msg qr.Message) {
	cb, _ := a.snapshot()
	switch m := msg.(type) {
	case qr.IsSupported:
		if cb.IsSupported != nil {
			cb.IsSupported(m.Supported)
		}
	case qr.AccessStatusReceived:
		if cb.AccessStatus != nil {
			cb.AccessStatus(m.Status)
		}
	case qr.EnumerationCompleted:
		a.mu.Lock()
		a.watching = false
		a.mu.Unlock()
		if cb.EnumerationCompleted != nil {
			cb.EnumerationCompleted()
		}
	case qr.CodeEvent:
		a.handleCode(m)
	}
}

func (a *QRCodes) lookup(id uuid.UUID) (*trackable.QRCode, bool) {
	code, ok := trackable.Lookup[*trackable.QRCode](a.registry, QRIsarID(id))
	if !ok {
		return nil, false
	}
	if code.Payload().GUID != id {
		log.Warn().Str("guid", id.String()).Msg("adapter.QRCodes isar id collision ignored")
		return nil, false
	}
	return code, true
}

func (a *QRCodes) handleCode(m qr.CodeEvent) {
	id := m.Code.ID
	switch m.Kind {
	case qr.TypeAdded:
		if existing, ok := a.lookup(id); ok {
			// a removed entity waits for acknowledgement; late adds are dropped
			existing.Modify(func(d trackable.QRCodeData) trackable.QRCodeData {
				return a.merge(d, m.Code)
			})
			return
		}
		data := a.merge(trackable.QRCodeData{Pose: coords.Pose{Rotation: coords.Identity()}}, m.Code)
		if err := a.registry.Add(trackable.NewQRCode(QRIsarID(id), data)); err != nil {
			log.Warn().Err(err).Str("guid", id.String()).Msg("adapter.QRCodes add rejected")
		}
	case qr.TypeUpdated:
		code, ok := a.lookup(id)
		if !ok {
			return
		}
		code.Modify(func(d trackable.QRCodeData) trackable.QRCodeData {
			return a.merge(d, m.Code)
		})
	case qr.TypeRemoved:
		if code, ok := a.lookup(id); ok {
			code.MarkRemoved()
		}
	}
}

// merge copies c into d. A NaN position means the host lost the pose, so
// the previous one is kept.
func (a *QRCodes) merge(d trackable.QRCodeData, c qr.Code) trackable.QRCodeData {
	d.GUID = c.ID
	d.Timestamp = c.Timestamp
	d.SystemTimestamp = c.SystemTimestamp
	d.PhysicalSideLength = c.PhysicalSideLength
	d.Version = c.Version
	d.DataSize = c.DataSize
	d.DataHandle = c.DataHandle
	if c.Data != nil {
		d.Data = c.Data
	}
	if !c.Pose.IsNaN() {
		d.Pose = a.convention.Apply(c.Pose, c.PhysicalSideLength/2)
	}
	return d
}

// Get returns the marker with guid id.
func (a *QRCodes) Get(id uuid.UUID) (*trackable.QRCode, bool) {
	return a.lookup(id)
}

// Changes returns pending marker transitions and purges acknowledged
// removals.
func (a *QRCodes) Changes() Changes[trackable.QRCodeData] {
	return pollChanges[trackable.QRCodeData](a.registry)
}

// OnConnectionStateChanged stops watching and removes every marker when the
// connection is lost.
func (a *QRCodes) OnConnectionStateChanged(s protocol.ConnectionState) {
	a.mu.Lock()
	a.state = s
	if !s.Connected() {
		a.watching = false
	}
	a.mu.Unlock()
	if s.Connected() {
		return
	}
	if n := markAllRemoved[trackable.QRCodeData](a.registry); n > 0 {
		log.Info().Int("removed", n).Str("state", s.String()).Msg("adapter.QRCodes markers removed")
	}
}
