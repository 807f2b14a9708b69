package protocol

// Channel identifies one logical inbound channel of the transport.
type Channel uint8

const (
	ChannelCustom Channel = 1
	ChannelQR     Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelCustom:
		return "custom"
	case ChannelQR:
		return "qr"
	default:
		return "unknown"
	}
}

// ConnectionState is the transport connection signal delivered to adapters.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateFailed
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Connected reports whether the state permits upstream traffic.
func (s ConnectionState) Connected() bool {
	return s == StateConnected
}

// Sender pushes one upstream buffer on a channel. Implementations copy buf
// before returning if they need it afterwards.
type Sender interface {
	Send(buf []byte) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(buf []byte) error

func (f SenderFunc) Send(buf []byte) error {
	return f(buf)
}
