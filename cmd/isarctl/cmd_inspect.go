package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/isarlink/internal/protocol"
	"github.com/danmuck/isarlink/internal/protocol/custom"
	"github.com/danmuck/isarlink/internal/protocol/frame"
	"github.com/danmuck/isarlink/internal/protocol/qr"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <capture>",
		Short: "List the frames of a capture with their decoded message type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			defer f.Close()
			return inspect(f, cmd.OutOrStdout())
		},
	}
}

func inspect(r io.Reader, w io.Writer) error {
	n := 0
	return frame.Each(r, frame.DefaultLimits(), func(fr frame.Frame) error {
		n++
		dir := "in "
		if fr.Outbound() {
			dir = "out"
		}
		kind, status := describe(fr.Header.Channel, fr.Payload)
		fmt.Fprintf(w, "%5d %s %s %-6s %-28s %6d %s\n",
			n,
			fr.Timestamp().UTC().Format(time.RFC3339Nano),
			dir,
			fr.Header.Channel,
			kind,
			len(fr.Payload),
			status,
		)
		return nil
	})
}

// describe names the message kind and whether it decodes.
func describe(ch protocol.Channel, payload []byte) (string, string) {
	switch ch {
	case protocol.ChannelCustom:
		tag, err := custom.PeekType(payload)
		if err != nil {
			return "-", err.Error()
		}
		if _, err := custom.Decode(payload); err != nil {
			return tag.String(), err.Error()
		}
		return tag.String(), "ok"
	case protocol.ChannelQR:
		tag, err := qr.PeekType(payload)
		if err != nil {
			return "-", err.Error()
		}
		if _, err := qr.Decode(payload); err != nil {
			return tag.String(), err.Error()
		}
		return tag.String(), "ok"
	default:
		return "-", "unknown channel"
	}
}
