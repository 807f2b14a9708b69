package frame

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/danmuck/isarlink/internal/protocol"
)

// Recorder appends frames to a capture stream. Safe for concurrent use; the
// transport callback and the outbound path record from different goroutines.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	limits Limits
	now    func() time.Time
	count  uint64
}

func NewRecorder(w io.Writer, limits Limits) *Recorder {
	return &Recorder{w: w, limits: limits, now: time.Now}
}

// Record copies nothing; payload is written before Record returns.
func (r *Recorder) Record(ch protocol.Channel, outbound bool, payload []byte) error {
	f := New(ch, r.now(), payload)
	if outbound {
		f.Header.Flags |= FlagOutbound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := WriteFrame(r.w, f, r.limits); err != nil {
		return err
	}
	r.count++
	return nil
}

func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Each reads frames until EOF and hands each to fn. A non-nil error from fn
// stops the walk and is returned.
func Each(r io.Reader, limits Limits, fn func(Frame) error) error {
	for {
		f, err := ReadFrame(r, limits)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
