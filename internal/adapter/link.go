package adapter

import (
	"sync"

	"github.com/danmuck/isarlink/internal/observability"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
)

// link tracks the connection signal and owns the upstream path.
type link struct {
	sender protocol.Sender

	mu    sync.RWMutex
	state protocol.ConnectionState
}

func newLink(sender protocol.Sender) link {
	return link{sender: sender}
}

// setState stores s and returns the previous state.
func (l *link) setState(s protocol.ConnectionState) protocol.ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state
	l.state = s
	return prev
}

func (l *link) connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Connected()
}

// send encodes msg and pushes it upstream. Sending while disconnected is a
// caller error.
func (l *link) send(msg custom.Message) error {
	if !l.connected() {
		return protocol.ErrConnectionNotReady
	}
	return l.sendUnchecked(msg)
}

func (l *link) sendUnchecked(msg custom.Message) error {
	buf, err := custom.Encode(msg)
	if err != nil {
		return err
	}
	if l.sender == nil {
		return protocol.ErrConnectionNotReady
	}
	err = l.sender.Send(buf)
	observability.RecordOutbound(msg.Type().String(), err == nil)
	return err
}
