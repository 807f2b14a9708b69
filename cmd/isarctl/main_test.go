package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/isarlink/internal/adapter"
	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/protocol/frame"
	"github.com/danmuck/isarlink/internal/testutil/testlog"
)

func writeCapture(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create capture: %v", err)
	}
	defer f.Close()
	rec := frame.NewRecorder(f, frame.DefaultLimits())

	record := func(ch protocol.Channel, outbound bool, msg custom.Message) {
		buf, err := custom.Encode(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := rec.Record(ch, outbound, buf); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	record(protocol.ChannelCustom, true, custom.PlaneConfig{Enabled: true, Mode: custom.PlaneDetectionBoth})
	record(protocol.ChannelCustom, false, custom.Touch{Phase: 0, X: 0.5, Y: 0.5, HorizontalFactor: 1, VerticalFactor: 1})
	record(protocol.ChannelCustom, false, custom.ImageEvent{
		Kind:    custom.TypeImageAdded,
		ImageID: adapter.ImageServerID("poster"),
		Pose:    coords.Pose{Rotation: coords.Identity()},
		Width:   0.3,
		Height:  0.2,
	})
	if err := rec.Record(protocol.ChannelCustom, false, []byte{2, 0, 0, 0}); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestReplayWithoutConfig(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	capture := filepath.Join(dir, "session.cap")
	writeCapture(t, capture)

	summary, err := runReplay(context.Background(), capture, replayOptions{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Frames != 4 || summary.Inbound != 3 || summary.Outbound != 1 {
		t.Fatalf("unexpected frame counts: %+v", summary)
	}
	// No images declared, so the image event is dropped by the adapter.
	if summary.Custom.Handled != 2 || summary.Custom.Malformed != 1 {
		t.Fatalf("unexpected custom stats: %+v", summary.Custom)
	}
	if summary.Entities != 0 {
		t.Fatalf("expected no entities, got %d", summary.Entities)
	}
}

func TestReplayWithConfigTracksImage(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	capture := filepath.Join(dir, "session.cap")
	writeCapture(t, capture)
	if err := os.WriteFile(filepath.Join(dir, "poster.jpg"), []byte{0xff, 0xd8}, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(`
[[images]]
name = "poster"
path = "poster.jpg"
width_m = 0.3
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	summary, err := runReplay(context.Background(), capture, replayOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Entities != 1 {
		t.Fatalf("expected the tracked image, got %d entities", summary.Entities)
	}

	var out bytes.Buffer
	printSummary(&out, summary)
	if !strings.Contains(out.String(), "entities  1") {
		t.Fatalf("unexpected summary output: %s", out.String())
	}
}

func TestReplayMissingCapture(t *testing.T) {
	if _, err := runReplay(context.Background(), filepath.Join(t.TempDir(), "none.cap"), replayOptions{}); err == nil {
		t.Fatalf("expected missing capture error")
	}
}

func TestInspectListsFrames(t *testing.T) {
	testlog.Start(t)
	capture := filepath.Join(t.TempDir(), "session.cap")
	writeCapture(t, capture)
	f, err := os.Open(capture)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := inspect(f, &out); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "out") || !strings.Contains(lines[0], "PLANE_DETECTION_CONFIG") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if strings.Contains(lines[3], " ok") {
		t.Fatalf("truncated touch must not decode: %s", lines[3])
	}
}

func TestConfigInitAndValidateCommands(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	root = newRootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "validate", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out.String(), "ok") || !strings.Contains(out.String(), "hmd") {
		t.Fatalf("unexpected validate output: %s", out.String())
	}

	if err := os.WriteFile(path, []byte("bogus_key = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "validate", path})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected unknown key to fail validation")
	}
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "config", "validate", "missing.toml"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}
