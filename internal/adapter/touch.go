package adapter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/observability"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
)

const (
	DefaultTouchCapacity = 256
	// Remote touches are single-finger.
	TouchID = 1
)

// OverflowPolicy decides which event a full touch queue gives up.
type OverflowPolicy int

const (
	DropOldest OverflowPolicy = iota
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

func ParseOverflowPolicy(raw string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "drop_oldest":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	default:
		return 0, fmt.Errorf("adapter: unknown overflow policy %q", raw)
	}
}

// TouchEvent is one remote touch in render-target pixels.
type TouchEvent struct {
	TouchID  int
	Phase    custom.TouchPhase
	Position coords.Vector2
	Delta    coords.Vector2
}

type TouchConfig struct {
	Capacity int
	Overflow OverflowPolicy
	Width    int
	Height   int
}

// Touch buffers remote touches between the transport callback and the
// consumer's tick. The queue is bounded; Drain empties it.
type Touch struct {
	link

	mu       sync.Mutex
	queue    []TouchEvent
	head     int
	capacity int
	policy   OverflowPolicy
	width    int
	height   int
	last     coords.Vector2
	hFactor  float32
	vFactor  float32
	dropped  uint64
}

func NewTouch(cfg TouchConfig) *Touch {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultTouchCapacity
	}
	return &Touch{
		capacity: cfg.Capacity,
		policy:   cfg.Overflow,
		width:    cfg.Width,
		height:   cfg.Height,
		queue:    make([]TouchEvent, 0, cfg.Capacity),
	}
}

func (t *Touch) Register(d *dispatch.Custom) {
	d.Handle(custom.TypeTouchData, t.HandleMessage)
}

// SetResolution changes the render-target size applied to later events.
func (t *Touch) SetResolution(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width = width
	t.height = height
}

func (t *Touch) Resolution() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Factors returns the most recent horizontal and vertical projection
// factors reported with a touch.
func (t *Touch) Factors() (float32, float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hFactor, t.vFactor
}

func (t *Touch) HandleMessage(msg custom.Message) {
	m, ok := msg.(custom.Touch)
	if !ok {
		return
	}
	t.push(m)
}

func (t *Touch) push(m custom.Touch) {
	t.mu.Lock()
	phase := custom.PhaseFromWire(m.Phase)
	pos := coords.Vector2{X: m.X * float32(t.width), Y: m.Y * float32(t.height)}
	ev := TouchEvent{TouchID: TouchID, Phase: phase, Position: pos}
	if phase != custom.TouchBegan {
		ev.Delta = coords.Vector2{X: pos.X - t.last.X, Y: pos.Y - t.last.Y}
	}

	dropped := false
	if t.size() >= t.capacity {
		dropped = true
		t.dropped++
		if t.policy == DropNewest {
			// a rejected event leaves no trace, so the next delta is taken
			// from the last event the consumer can see
			t.mu.Unlock()
			observability.RecordTouchDropped(t.policy.String())
			return
		}
		t.head++
	}
	t.queue = append(t.queue, ev)
	t.last = pos
	t.hFactor = m.HorizontalFactor
	t.vFactor = m.VerticalFactor
	t.compact()
	t.mu.Unlock()

	if dropped {
		observability.RecordTouchDropped(t.policy.String())
	}
}

func (t *Touch) size() int {
	return len(t.queue) - t.head
}

// compact reclaims the dropped prefix once it dominates the backing array.
func (t *Touch) compact() {
	if t.head == 0 || t.head < len(t.queue)/2 {
		return
	}
	n := copy(t.queue, t.queue[t.head:])
	for i := n; i < len(t.queue); i++ {
		t.queue[i] = TouchEvent{}
	}
	t.queue = t.queue[:n]
	t.head = 0
}

// Drain returns every pending event in arrival order and empties the queue.
func (t *Touch) Drain() []TouchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.size() == 0 {
		return nil
	}
	out := make([]TouchEvent, t.size())
	copy(out, t.queue[t.head:])
	t.queue = t.queue[:0]
	t.head = 0
	return out
}

func (t *Touch) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size()
}

// Dropped counts events lost to the overflow policy.
func (t *Touch) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// OnConnectionStateChanged discards pending touches on any state other than
// Connected.
func (t *Touch) OnConnectionStateChanged(s protocol.ConnectionState) {
	t.setState(s)
	if s.Connected() {
		return
	}
	t.mu.Lock()
	n := t.size()
	t.queue = t.queue[:0]
	t.head = 0
	t.last = coords.Vector2{}
	t.mu.Unlock()
	if n > 0 {
		log.Debug().Int("discarded", n).Str("state", s.String()).Msg("adapter.Touch queue cleared")
	}
}
