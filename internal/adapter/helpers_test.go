package adapter

import (
	"sync"
	"testing"

	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/protocol/qr"
)

type recordSender struct {
	mu   sync.Mutex
	bufs [][]byte
	err  error
}

func (s *recordSender) Send(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bufs = append(s.bufs, append([]byte(nil), buf...))
	return nil
}

func (s *recordSender) messages(t *testing.T) []custom.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]custom.Message, 0, len(s.bufs))
	for _, buf := range s.bufs {
		msg, err := custom.Decode(buf)
		if err != nil {
			t.Fatalf("decode sent buffer: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func (s *recordSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufs = nil
}

func encodeCustom(t *testing.T, msg custom.Message) []byte {
	t.Helper()
	buf, err := custom.Encode(msg)
	if err != nil {
		t.Fatalf("encode %T: %v", msg, err)
	}
	return buf
}

func encodeQR(t *testing.T, msg qr.Message) []byte {
	t.Helper()
	buf, err := qr.Encode(msg)
	if err != nil {
		t.Fatalf("encode %T: %v", msg, err)
	}
	return buf
}

type fakeControl struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *fakeControl) record(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
	return c.err
}

func (c *fakeControl) IsSupported() error   { return c.record("IsSupported") }
func (c *fakeControl) RequestAccess() error { return c.record("RequestAccess") }
func (c *fakeControl) Start() error         { return c.record("Start") }
func (c *fakeControl) Stop() error          { return c.record("Stop") }
