package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// RenderConfig is the "render-config" section of the remoting config.
// Only Width and Height are consumed by the client.
type RenderConfig struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NumViews  int    `json:"numViews"`
	Bandwidth int    `json:"bandwidth"`
	Framerate int    `json:"framerate"`
}

// FallbackRenderConfig is used for any value the remoting config omits.
var FallbackRenderConfig = RenderConfig{
	Name:      "HoloLens2",
	Width:     1440,
	Height:    936,
	NumViews:  2,
	Bandwidth: 36000,
	Framerate: 60,
}

type remotingFile struct {
	Render *renderFile `json:"render-config"`
}

type renderFile struct {
	Name      *string `json:"name"`
	Width     *int    `json:"width"`
	Height    *int    `json:"height"`
	NumViews  *int    `json:"numViews"`
	Bandwidth *int    `json:"bandwidth"`
	Framerate *int    `json:"framerate"`
}

// LoadRemotingConfig reads the render section of a remoting config. A file
// that cannot be read is an error; a file that cannot be parsed yields the
// fallback values with a warning.
func LoadRemotingConfig(path string) (RenderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FallbackRenderConfig, fmt.Errorf("remoting config load failed (%s): %w", path, err)
	}
	return ParseRemotingConfig(data), nil
}

func ParseRemotingConfig(data []byte) RenderConfig {
	var raw remotingFile
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("remoting config unreadable, using fallback render config")
		return FallbackRenderConfig
	}
	if raw.Render == nil {
		log.Warn().Msg("remoting config has no render-config, using fallback")
		return FallbackRenderConfig
	}

	out := FallbackRenderConfig
	if raw.Render.Name != nil {
		out.Name = *raw.Render.Name
	}
	pick(&out.Width, raw.Render.Width, "width")
	pick(&out.Height, raw.Render.Height, "height")
	pick(&out.NumViews, raw.Render.NumViews, "numViews")
	pick(&out.Bandwidth, raw.Render.Bandwidth, "bandwidth")
	pick(&out.Framerate, raw.Render.Framerate, "framerate")
	return out
}

func pick(dst *int, v *int, key string) {
	if v == nil {
		return
	}
	if *v <= 0 {
		log.Warn().Str("key", key).Int("value", *v).Int("fallback", *dst).Msg("render-config value invalid")
		return
	}
	*dst = *v
}

const remotingDebounce = 100 * time.Millisecond

// WatchRemotingConfig calls fn with the new render config whenever path is
// rewritten and its width or height changed. The parent directory is
// watched so editors that replace the file are seen. It blocks until ctx
// ends.
func WatchRemotingConfig(ctx context.Context, path string, fn func(RenderConfig)) error {
	current, _ := LoadRemotingConfig(path)
	target := filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("remoting config watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("remoting config watch %s: %w", path, err)
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(remotingDebounce)
		case <-debounce.C:
			next, err := LoadRemotingConfig(path)
			if err != nil {
				log.Warn().Err(err).Msg("remoting config reload failed")
				continue
			}
			if next.Width == current.Width && next.Height == current.Height {
				continue
			}
			log.Info().
				Int("width", next.Width).
				Int("height", next.Height).
				Msg("remoting config resolution changed")
			current = next
			fn(next)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("remoting config watcher error")
		}
	}
}
