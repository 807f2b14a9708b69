package adapter

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/trackable"
)

// Planes mirrors the host's plane detection into the registry.
type Planes struct {
	link
	registry *trackable.Registry

	mu   sync.RWMutex
	mode custom.PlaneDetectionMode
}

func NewPlanes(reg *trackable.Registry, sender protocol.Sender, mode custom.PlaneDetectionMode) *Planes {
	return &Planes{
		link:     newLink(sender),
		registry: reg,
		mode:     mode,
	}
}

func (a *Planes) Register(d *dispatch.Custom) {
	d.Handle(custom.TypePlaneDetectionResults, a.HandleMessage)
}

func (a *Planes) Mode() custom.PlaneDetectionMode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// SetMode changes the requested plane orientations. The host is told when
// connected; otherwise the mode goes out with the next Connected signal.
// Mode None removes every plane.
func (a *Planes) SetMode(mode custom.PlaneDetectionMode) error {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if mode == custom.PlaneDetectionNone {
		markAllRemoved[trackable.PlaneData](a.registry)
	}
	if !changed || !a.connected() {
		return nil
	}
	return a.sendConfig(mode)
}

func (a *Planes) sendConfig(mode custom.PlaneDetectionMode) error {
	return a.send(custom.PlaneConfig{Enabled: mode != custom.PlaneDetectionNone, Mode: mode})
}

func (a *Planes) HandleMessage(msg custom.Message) {
	m, ok := msg.(custom.PlaneResults)
	if !ok {
		return
	}
	if a.Mode() == custom.PlaneDetectionNone {
		return
	}
	for _, rec := range m.Planes {
		a.apply(rec)
	}
}

func (a *Planes) apply(rec custom.PlaneRecord) {
	data := trackable.PlaneData{
		Pose:          coords.FlipPose(rec.Pose),
		Center:        rec.Center,
		Size:          rec.Size,
		Alignment:     rec.Alignment,
		TrackingState: rec.State,
		SubsumedBy:    trackable.InvalidID,
		Polygon:       coords.FlipPolygon(rec.Polygon),
	}
	if rec.Subsumed {
		if by, ok := a.registry.Get(rec.SubsumedBy); ok {
			data.SubsumedBy = by.ID()
		}
	}

	if plane, ok := trackable.Lookup[*trackable.Plane](a.registry, rec.ID); ok {
		if !plane.Update(data) {
			return
		}
		if rec.State == custom.TrackingLimited {
			plane.MarkRemoved()
		}
		return
	}
	if rec.State != custom.TrackingTracking {
		return
	}
	if err := a.registry.Add(trackable.NewPlane(rec.ID, data)); err != nil {
		log.Debug().Err(err).Int32("plane", rec.ID).Msg("adapter.Planes add rejected")
	}
}

// Changes returns pending plane transitions and purges acknowledged
// removals.
func (a *Planes) Changes() Changes[trackable.PlaneData] {
	return pollChanges[trackable.PlaneData](a.registry)
}

// Boundary returns the polygon of the plane with id, in consumer winding.
func (a *Planes) Boundary(id trackable.ID) ([]coords.Vector2, bool) {
	e, ok := a.registry.GetByID(id)
	if !ok {
		return nil, false
	}
	plane, ok := e.(*trackable.Plane)
	if !ok {
		return nil, false
	}
	poly := plane.Payload().Polygon
	out := make([]coords.Vector2, len(poly))
	copy(out, poly)
	return out, true
}

// OnConnectionStateChanged sends the detection config on Connected and
// removes every plane otherwise.
func (a *Planes) OnConnectionStateChanged(s protocol.ConnectionState) {
	a.setState(s)
	if !s.Connected() {
		if n := markAllRemoved[trackable.PlaneData](a.registry); n > 0 {
			log.Info().Int("removed", n).Str("state", s.String()).Msg("adapter.Planes planes removed")
		}
		return
	}
	mode := a.Mode()
	if err := a.sendConfig(mode); err != nil {
		log.Warn().Err(err).Str("mode", mode.String()).Msg("adapter.Planes config send failed")
	}
}
