package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/trackable"
)

const DefaultRaycastTimeout = 200 * time.Millisecond

var ErrRaycastTimeout = errors.New("adapter: raycast timed out")

// RaycastHit is one hit in consumer convention. TrackableID is InvalidID
// when the host hit something the registry does not know.
type RaycastHit struct {
	TrackableID trackable.ID
	Pose        coords.Pose
	Distance    float32
	HitType     custom.HitType
}

// Raycaster runs one request at a time; the host answers with a single
// AR_RAYCAST_HIT_RESULTS that carries no request id.
type Raycaster struct {
	link
	registry *trackable.Registry
	timeout  time.Duration

	reqMu sync.Mutex

	mu      sync.Mutex
	waiting chan custom.RaycastHits
}

func NewRaycaster(reg *trackable.Registry, sender protocol.Sender, timeout time.Duration) *Raycaster {
	if timeout <= 0 {
		timeout = DefaultRaycastTimeout
	}
	return &Raycaster{
		link:     newLink(sender),
		registry: reg,
		timeout:  timeout,
	}
}

func (a *Raycaster) Register(d *dispatch.Custom) {
	d.Handle(custom.TypeRaycastHitResults, a.HandleMessage)
}

// RaycastScreenPoint casts from a normalized screen point.
func (a *Raycaster) RaycastScreenPoint(ctx context.Context, point coords.Vector2, mask custom.HitType) ([]RaycastHit, error) {
	return a.do(ctx, custom.RaycastScreenPoint{Point: point}, mask)
}

// RaycastRay casts a world ray given in consumer convention.
func (a *Raycaster) RaycastRay(ctx context.Context, origin, direction coords.Vector3, mask custom.HitType) ([]RaycastHit, error) {
	return a.do(ctx, custom.RaycastRay{
		Origin:    coords.FlipVector3(origin),
		Direction: coords.FlipVector3(direction),
	}, mask)
}

func (a *Raycaster) do(ctx context.Context, req custom.Message, mask custom.HitType) ([]RaycastHit, error) {
	if !a.connected() {
		return nil, protocol.ErrConnectionNotReady
	}
	a.reqMu.Lock()
	defer a.reqMu.Unlock()

	ch := make(chan custom.RaycastHits, 1)
	a.mu.Lock()
	a.waiting = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.waiting = nil
		a.mu.Unlock()
	}()

	if err := a.send(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return a.resolve(res, mask), nil
	case <-timer.C:
		return nil, ErrRaycastTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Raycaster) resolve(res custom.RaycastHits, mask custom.HitType) []RaycastHit {
	out := make([]RaycastHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if !h.HitType.Matches(mask) {
			continue
		}
		hit := RaycastHit{
			TrackableID: trackable.InvalidID,
			Pose:        coords.FlipPose(h.Pose),
			Distance:    h.Distance,
			HitType:     h.HitType,
		}
		if e, ok := a.registry.Get(h.IsarID); ok {
			hit.TrackableID = e.ID()
		}
		out = append(out, hit)
	}
	return out
}

// HandleMessage delivers results to the waiting request. Results nobody
// waits for are dropped.
func (a *Raycaster) HandleMessage(msg custom.Message) {
	m, ok := msg.(custom.RaycastHits)
	if !ok {
		return
	}
	a.mu.Lock()
	ch := a.waiting
	a.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- m:
	default:
	}
}

func (a *Raycaster) OnConnectionStateChanged(s protocol.ConnectionState) {
	a.setState(s)
}
