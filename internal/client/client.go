package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/isarlink/internal/adapter"
	"github.com/danmuck/isarlink/internal/config"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/frame"
	"github.com/danmuck/isarlink/internal/trackable"
)

// Client construction inputs. Sender and QrControl may be nil for a
// receive-only client (replay); upstream calls then fail with
// protocol.ErrConnectionNotReady.
type Options struct {
	Config    config.ClientConfig
	Render    config.RenderConfig
	Sender    protocol.Sender
	QrControl adapter.QrControl
	Registry  *trackable.Registry
	Recorder  *frame.Recorder
	Images    []adapter.ReferenceImage
}

// Client owns the registry, both channel dispatchers and every feature
// adapter. Transport callbacks enter through OnCustomMessage, OnQrMessage
// and OnConnectionStateChanged.
type Client struct {
	registry *trackable.Registry
	custom   *dispatch.Custom
	qr       *dispatch.QR
	recorder *frame.Recorder

	Touch   *adapter.Touch
	Images  *adapter.Images
	Planes  *adapter.Planes
	QRCodes *adapter.QRCodes
	Raycast *adapter.Raycaster
	Camera  *adapter.Camera

	// No lock is held while handlers run, so subscriber callbacks may call
	// back into the client, Close included. A message racing Close may
	// still reach an adapter; its change is never polled.
	closed atomic.Bool
	state  atomic.Int32
}

func New(opts Options) (*Client, error) {
	reg := opts.Registry
	if reg == nil {
		reg = trackable.NewRegistry()
	}
	render := opts.Render
	if render.Width <= 0 || render.Height <= 0 {
		render = config.FallbackRenderConfig
	}

	c := &Client{
		registry: reg,
		custom:   dispatch.NewCustom(),
		qr:       dispatch.NewQR(),
		recorder: opts.Recorder,
	}
	sender := c.outbound(opts.Sender)

	c.Touch = adapter.NewTouch(config.TouchConfig(opts.Config, render))
	c.Images = adapter.NewImages(reg, sender)
	c.Planes = adapter.NewPlanes(reg, sender, opts.Config.PlaneDetection)
	c.QRCodes = adapter.NewQRCodes(reg, opts.QrControl, opts.Config.DeviceClass)
	c.Raycast = adapter.NewRaycaster(reg, sender, opts.Config.RaycastTimeout)
	c.Camera = adapter.NewCamera(sender)

	c.Touch.Register(c.custom)
	c.Images.Register(c.custom)
	c.Planes.Register(c.custom)
	c.Raycast.Register(c.custom)
	c.Camera.Register(c.custom)
	c.QRCodes.Register(c.qr)

	for _, img := range opts.Images {
		if _, err := c.Images.Declare(img); err != nil {
			return nil, fmt.Errorf("client: declare image %q: %w", img.Name, err)
		}
	}

	log.Debug().
		Str("device_class", opts.Config.DeviceClass.String()).
		Int("width", render.Width).
		Int("height", render.Height).
		Int("images", len(opts.Images)).
		Msg("client initialized")
	return c, nil
}

// Client outbound path; recorded when a capture is attached.
func (c *Client) outbound(next protocol.Sender) protocol.Sender {
	if next == nil {
		return nil
	}
	if c.recorder == nil {
		return next
	}
	return protocol.SenderFunc(func(buf []byte) error {
		if err := c.recorder.Record(protocol.ChannelCustom, true, buf); err != nil {
			log.Warn().Err(err).Msg("client capture write failed")
		}
		return next.Send(buf)
	})
}

func (c *Client) Registry() *trackable.Registry {
	return c.registry
}

func (c *Client) State() protocol.ConnectionState {
	return protocol.ConnectionState(c.state.Load())
}

// OnCustomMessage routes one custom-channel buffer. buf is only read for
// the duration of the call.
func (c *Client) OnCustomMessage(buf []byte) (dispatch.Result, error) {
	if c.closed.Load() {
		return dispatch.Unhandled, protocol.ErrClosed
	}
	c.capture(protocol.ChannelCustom, buf)
	return c.custom.Dispatch(buf), nil
}

func (c *Client) OnQrMessage(buf []byte) (dispatch.Result, error) {
	if c.closed.Load() {
		return dispatch.Unhandled, protocol.ErrClosed
	}
	c.capture(protocol.ChannelQR, buf)
	return c.qr.Dispatch(buf), nil
}

// Dispatch routes a buffer by channel; used by replay.
func (c *Client) Dispatch(ch protocol.Channel, buf []byte) (dispatch.Result, error) {
	switch ch {
	case protocol.ChannelCustom:
		return c.OnCustomMessage(buf)
	case protocol.ChannelQR:
		return c.OnQrMessage(buf)
	default:
		return dispatch.Unhandled, fmt.Errorf("client: unknown channel %d", ch)
	}
}

func (c *Client) capture(ch protocol.Channel, buf []byte) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ch, false, buf); err != nil {
		log.Warn().Err(err).Str("channel", ch.String()).Msg("client capture write failed")
	}
}

// OnConnectionStateChanged fans the signal out to every adapter. Images
// and plane config are resent on Connected; trackables are marked Removed
// otherwise.
func (c *Client) OnConnectionStateChanged(s protocol.ConnectionState) error {
	if c.closed.Load() {
		return protocol.ErrClosed
	}
	prev := protocol.ConnectionState(c.state.Swap(int32(s)))
	if prev != s {
		log.Info().Str("from", prev.String()).Str("to", s.String()).Msg("client connection state")
	}
	c.Touch.OnConnectionStateChanged(s)
	c.Images.OnConnectionStateChanged(s)
	c.Planes.OnConnectionStateChanged(s)
	c.QRCodes.OnConnectionStateChanged(s)
	c.Raycast.OnConnectionStateChanged(s)
	c.Camera.OnConnectionStateChanged(s)
	return nil
}

// Stats returns the dispatch counters of both channels.
func (c *Client) Stats() (custom, qr dispatch.Stats) {
	return c.custom.Stats(), c.qr.Stats()
}

// Poll gathers pending trackable changes from every adapter.
func (c *Client) Poll() (Changes, error) {
	if c.closed.Load() {
		return Changes{}, protocol.ErrClosed
	}
	return Changes{
		Touches: c.Touch.Drain(),
		Images:  c.Images.Changes(),
		Planes:  c.Planes.Changes(),
		QRCodes: c.QRCodes.Changes(),
	}, nil
}

// WatchRemotingConfig pushes resolution changes from path into the touch
// adapter until ctx ends or the client closes.
func (c *Client) WatchRemotingConfig(ctx context.Context, path string) error {
	err := config.WatchRemotingConfig(ctx, path, func(rc config.RenderConfig) {
		c.Touch.SetResolution(rc.Width, rc.Height)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close disconnects every adapter and rejects further calls. A second
// Close returns protocol.ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return protocol.ErrClosed
	}
	s := protocol.StateClosing
	c.state.Store(int32(s))
	c.Touch.OnConnectionStateChanged(s)
	c.Images.OnConnectionStateChanged(s)
	c.Planes.OnConnectionStateChanged(s)
	c.QRCodes.OnConnectionStateChanged(s)
	c.Raycast.OnConnectionStateChanged(s)
	c.Camera.OnConnectionStateChanged(s)
	log.Debug().Int("entities", c.registry.Len()).Msg("client closed")
	return nil
}
