// Package dispatch routes decoded channel buffers to per-type handlers.
//
// Dispatch runs synchronously on the caller's goroutine. Garbled buffers and
// handler panics are absorbed here and only show up as counters and
// rate-limited diagnostics; nothing crosses back into the transport callback.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/danmuck/isarlink/internal/observability"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/protocol/qr"
)

// Result classifies one Dispatch call.
type Result int

const (
	Handled Result = iota
	Unhandled
	Malformed
	Panicked
)

func (r Result) String() string {
	switch r {
	case Handled:
		return observability.ResultHandled
	case Unhandled:
		return observability.ResultUnhandled
	case Malformed:
		return observability.ResultMalformed
	case Panicked:
		return observability.ResultPanic
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Stats counts Dispatch results since construction.
type Stats struct {
	Handled   uint64
	Unhandled uint64
	Malformed uint64
	Panicked  uint64
}

type Handler[M any] func(M)

// Dispatcher serves one channel. K is the channel's tag type, M its decoded
// message type.
type Dispatcher[K comparable, M any] struct {
	channel protocol.Channel
	peek    func([]byte) (K, error)
	decode  func([]byte) (M, error)

	mu       sync.RWMutex
	handlers map[K]Handler[M]

	limiter *rate.Limiter

	handled   atomic.Uint64
	unhandled atomic.Uint64
	malformed atomic.Uint64
	panicked  atomic.Uint64
}

func New[K comparable, M any](ch protocol.Channel, peek func([]byte) (K, error), decode func([]byte) (M, error)) *Dispatcher[K, M] {
	return &Dispatcher[K, M]{
		channel:  ch,
		peek:     peek,
		decode:   decode,
		handlers: make(map[K]Handler[M]),
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

type (
	Custom = Dispatcher[custom.MessageType, custom.Message]
	QR     = Dispatcher[qr.MessageType, qr.Message]
)

func NewCustom() *Custom {
	return New(protocol.ChannelCustom, custom.PeekType, custom.Decode)
}

func NewQR() *QR {
	return New(protocol.ChannelQR, qr.PeekType, qr.Decode)
}

// Handle registers h for tag, replacing any previous handler. A nil h
// unregisters.
func (d *Dispatcher[K, M]) Handle(tag K, h Handler[M]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.handlers, tag)
		return
	}
	d.handlers[tag] = h
}

func (d *Dispatcher[K, M]) Handles(tag K) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[tag]
	return ok
}

func (d *Dispatcher[K, M]) Channel() protocol.Channel {
	return d.channel
}

// Dispatch decodes buf and runs the handler registered for its tag. buf is
// only read for the duration of the call.
func (d *Dispatcher[K, M]) Dispatch(buf []byte) Result {
	res := d.dispatch(buf)
	switch res {
	case Handled:
		d.handled.Add(1)
	case Unhandled:
		d.unhandled.Add(1)
	case Malformed:
		d.malformed.Add(1)
	case Panicked:
		d.panicked.Add(1)
	}
	observability.RecordDispatch(d.channel.String(), res.String())
	return res
}

func (d *Dispatcher[K, M]) dispatch(buf []byte) Result {
	tag, err := d.peek(buf)
	if err != nil {
		d.drop(err, len(buf))
		return Malformed
	}

	d.mu.RLock()
	h, ok := d.handlers[tag]
	d.mu.RUnlock()
	if !ok {
		return Unhandled
	}

	msg, err := d.decode(buf)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			return Unhandled
		}
		d.drop(err, len(buf))
		return Malformed
	}
	return d.invoke(tag, h, msg)
}

func (d *Dispatcher[K, M]) invoke(tag K, h Handler[M], msg M) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Panicked
			if d.limiter.Allow() {
				log.Error().
					Str("channel", d.channel.String()).
					Str("tag", fmt.Sprint(tag)).
					Interface("panic", rec).
					Msg("dispatch.Dispatch handler panic recovered")
			}
		}
	}()
	h(msg)
	return Handled
}

func (d *Dispatcher[K, M]) drop(err error, n int) {
	if !d.limiter.Allow() {
		return
	}
	log.Debug().
		Str("channel", d.channel.String()).
		Int("len", n).
		Err(err).
		Msg("dispatch.Dispatch dropped malformed buffer")
}

func (d *Dispatcher[K, M]) Stats() Stats {
	return Stats{
		Handled:   d.handled.Load(),
		Unhandled: d.unhandled.Load(),
		Malformed: d.malformed.Load(),
		Panicked:  d.panicked.Load(),
	}
}
