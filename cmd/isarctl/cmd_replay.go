package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/isarlink/internal/adapter"
	"github.com/danmuck/isarlink/internal/client"
	"github.com/danmuck/isarlink/internal/config"
	"github.com/danmuck/isarlink/internal/dispatch"
	"github.com/danmuck/isarlink/internal/observability"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/frame"
)

type replayOptions struct {
	ConfigPath  string
	MetricsAddr string
	Hold        bool
}

// replay outcome printed after the capture is exhausted.
type replaySummary struct {
	Frames   int
	Inbound  int
	Outbound int
	Custom   dispatch.Stats
	QR       dispatch.Stats
	Entities int
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Feed a capture through a client and log trackable changes",
		Long: "Replay every inbound frame of a capture file through a fresh client.\n" +
			"Changes are polled after each frame and logged. Outbound frames are counted only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			summary, err := runReplay(ctx, args[0], opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "client config.toml (defaults when empty)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides metrics_addr)")
	cmd.Flags().BoolVar(&opts.Hold, "hold", false, "keep serving metrics after the replay until interrupted")
	return cmd
}

func loadReplayConfig(path string) (config.ClientConfig, config.RenderConfig, []adapter.ReferenceImage, error) {
	if path == "" {
		return config.DefaultClientConfig(), config.FallbackRenderConfig, nil, nil
	}
	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		return config.ClientConfig{}, config.RenderConfig{}, nil, err
	}
	render, err := config.LoadRemotingConfig(cfg.RemotingConfigPath)
	if err != nil {
		log.Warn().Err(err).Msg("using fallback render config")
	}
	images, err := config.ReferenceImages(cfg.Images)
	if err != nil {
		return config.ClientConfig{}, config.RenderConfig{}, nil, err
	}
	return cfg, render, images, nil
}

func runReplay(ctx context.Context, capturePath string, opts replayOptions) (replaySummary, error) {
	cfg, render, images, err := loadReplayConfig(opts.ConfigPath)
	if err != nil {
		return replaySummary{}, fmt.Errorf("replay: %w", err)
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	f, err := os.Open(capturePath)
	if err != nil {
		return replaySummary{}, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	metricsDone := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		logger := observability.ComponentLogger("isarctl")
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
		mopts := observability.MetricsOptions{App: "isarctl", CORSOrigins: cfg.MetricsCORSOrigins}
		go func() { metricsDone <- observability.ServeMetrics(ctx, cfg.MetricsAddr, logger, mopts) }()
	} else {
		metricsDone <- nil
	}

	// Upstream traffic has nowhere to go during a replay.
	discard := protocol.SenderFunc(func([]byte) error { return nil })
	c, err := client.New(client.Options{
		Config: cfg,
		Render: render,
		Sender: discard,
		Images: images,
	})
	if err != nil {
		return replaySummary{}, fmt.Errorf("replay: %w", err)
	}
	if cfg.WatchRemotingConfig && opts.ConfigPath != "" {
		go func() {
			if err := c.WatchRemotingConfig(ctx, cfg.RemotingConfigPath); err != nil {
				log.Warn().Err(err).Msg("remoting config watch stopped")
			}
		}()
	}
	if err := c.OnConnectionStateChanged(protocol.StateConnected); err != nil {
		return replaySummary{}, fmt.Errorf("replay: %w", err)
	}

	var summary replaySummary
	err = frame.Each(f, frame.DefaultLimits(), func(fr frame.Frame) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Frames++
		if fr.Outbound() {
			summary.Outbound++
			return nil
		}
		summary.Inbound++
		res, err := c.Dispatch(fr.Header.Channel, fr.Payload)
		if err != nil {
			log.Warn().Err(err).Int("frame", summary.Frames).Msg("frame skipped")
			return nil
		}
		if res != dispatch.Handled {
			log.Debug().
				Int("frame", summary.Frames).
				Str("channel", fr.Header.Channel.String()).
				Str("result", res.String()).
				Msg("frame not handled")
		}
		changes, err := c.Poll()
		if err != nil {
			return err
		}
		logChanges(fr, changes)
		return nil
	})
	if err != nil {
		return replaySummary{}, fmt.Errorf("replay %s: %w", capturePath, err)
	}

	summary.Custom, summary.QR = c.Stats()
	summary.Entities = c.Registry().Len()
	_ = c.OnConnectionStateChanged(protocol.StateDisconnected)
	if err := c.Close(); err != nil {
		return replaySummary{}, err
	}

	if opts.Hold && cfg.MetricsAddr != "" {
		log.Info().Msg("replay done, holding metrics endpoint")
		<-ctx.Done()
	}
	cancel()
	if err := <-metricsDone; err != nil {
		return summary, fmt.Errorf("metrics: %w", err)
	}
	return summary, nil
}

func logChanges(fr frame.Frame, c client.Changes) {
	ts := fr.Timestamp()
	for _, ev := range c.Touches {
		log.Info().
			Time("at", ts).
			Str("phase", ev.Phase.String()).
			Float32("x", ev.Position.X).
			Float32("y", ev.Position.Y).
			Float32("dx", ev.Delta.X).
			Float32("dy", ev.Delta.Y).
			Msg("touch")
	}
	logTrackables("image", ts, c.Images)
	logTrackables("plane", ts, c.Planes)
	logTrackables("qrcode", ts, c.QRCodes)
}

func logTrackables[T any](kind string, at time.Time, c adapter.Changes[T]) {
	for _, ch := range c.Added {
		log.Info().Time("at", at).Str("kind", kind).Str("id", ch.ID.String()).Int32("isar_id", ch.IsarID).Msg("added")
	}
	for _, ch := range c.Updated {
		log.Debug().Time("at", at).Str("kind", kind).Str("id", ch.ID.String()).Int32("isar_id", ch.IsarID).Msg("updated")
	}
	for _, id := range c.Removed {
		log.Info().Time("at", at).Str("kind", kind).Str("id", id.String()).Msg("removed")
	}
}

func printSummary(w io.Writer, s replaySummary) {
	fmt.Fprintf(w, "frames    %d (inbound %d, outbound %d)\n", s.Frames, s.Inbound, s.Outbound)
	fmt.Fprintf(w, "custom    handled=%d unhandled=%d malformed=%d panicked=%d\n",
		s.Custom.Handled, s.Custom.Unhandled, s.Custom.Malformed, s.Custom.Panicked)
	fmt.Fprintf(w, "qr        handled=%d unhandled=%d malformed=%d panicked=%d\n",
		s.QR.Handled, s.QR.Unhandled, s.QR.Malformed, s.QR.Panicked)
	fmt.Fprintf(w, "entities  %d\n", s.Entities)
}
