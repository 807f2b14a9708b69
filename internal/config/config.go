package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/isarlink/internal/adapter"
	"github.com/danmuck/isarlink/internal/coords"
	"github.com/danmuck/isarlink/internal/protocol/custom"
)

const (
	DefaultRaycastTimeout   = 200 * time.Millisecond
	DefaultRemotingConfig   = "remoting-config.cfg"
	DefaultTouchQueueLength = adapter.DefaultTouchCapacity
)

// ClientConfig is the resolved client runtime configuration.
type ClientConfig struct {
	DeviceClass         coords.Convention
	TouchQueueCapacity  int
	TouchOverflow       adapter.OverflowPolicy
	RemotingConfigPath  string
	WatchRemotingConfig bool
	RaycastTimeout      time.Duration
	PlaneDetection      custom.PlaneDetectionMode
	MetricsAddr         string
	MetricsCORSOrigins  []string
	Images              []ImageConfig
}

// ImageConfig declares one reference image. Path is resolved relative to
// the config file.
type ImageConfig struct {
	Name        string
	Path        string
	Type        custom.ImageType
	WidthMeters float32
}

// config.toml key mapping to ClientConfig.
type fileConfig struct {
	DeviceClass         string      `toml:"device_class"`
	TouchQueueCapacity  int         `toml:"touch_queue_capacity"`
	TouchOverflow       string      `toml:"touch_overflow"`
	RemotingConfig      string      `toml:"remoting_config"`
	WatchRemotingConfig bool        `toml:"watch_remoting_config"`
	RaycastTimeout      string      `toml:"raycast_timeout"`
	PlaneDetection      string      `toml:"plane_detection"`
	MetricsAddr         string      `toml:"metrics_addr"`
	MetricsCORSOrigins  []string    `toml:"metrics_cors_origins"`
	Images              []fileImage `toml:"images"`
}

type fileImage struct {
	Name        string  `toml:"name"`
	Path        string  `toml:"path"`
	Type        string  `toml:"type"`
	WidthMeters float32 `toml:"width_m"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DeviceClass:        coords.ConventionHMD,
		TouchQueueCapacity: DefaultTouchQueueLength,
		TouchOverflow:      adapter.DropOldest,
		RemotingConfigPath: DefaultRemotingConfig,
		RaycastTimeout:     DefaultRaycastTimeout,
		PlaneDetection:     custom.PlaneDetectionNone,
	}
}

// LoadClientConfig overlays the keys present in path onto the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("device_class") {
		cfg.DeviceClass, err = coords.ParseConvention(raw.DeviceClass)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: %w", err)
		}
	}
	if meta.IsDefined("touch_queue_capacity") {
		if raw.TouchQueueCapacity <= 0 {
			return ClientConfig{}, fmt.Errorf(
				"load client config: touch_queue_capacity must be positive, got %d",
				raw.TouchQueueCapacity,
			)
		}
		cfg.TouchQueueCapacity = raw.TouchQueueCapacity
	}
	if meta.IsDefined("touch_overflow") {
		cfg.TouchOverflow, err = adapter.ParseOverflowPolicy(raw.TouchOverflow)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: %w", err)
		}
	}
	if meta.IsDefined("remoting_config") {
		cfg.RemotingConfigPath = strings.TrimSpace(raw.RemotingConfig)
	}
	if meta.IsDefined("watch_remoting_config") {
		cfg.WatchRemotingConfig = raw.WatchRemotingConfig
	}
	if meta.IsDefined("raycast_timeout") {
		cfg.RaycastTimeout, err = ParseTimeout(raw.RaycastTimeout)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: raycast_timeout: %w", err)
		}
	}
	if meta.IsDefined("plane_detection") {
		cfg.PlaneDetection, err = ParsePlaneDetection(raw.PlaneDetection)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: %w", err)
		}
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("metrics_cors_origins") {
		for _, origin := range raw.MetricsCORSOrigins {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.MetricsCORSOrigins = append(cfg.MetricsCORSOrigins, origin)
			}
		}
	}

	base := filepath.Dir(path)
	cfg.RemotingConfigPath = resolvePath(base, cfg.RemotingConfigPath)

	seen := make(map[string]struct{}, len(raw.Images))
	for i, entry := range raw.Images {
		img, err := imageEntry(base, entry)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("load client config: images[%d]: %w", i, err)
		}
		if _, dup := seen[img.Name]; dup {
			return ClientConfig{}, fmt.Errorf("load client config: images[%d]: duplicate name %q", i, img.Name)
		}
		seen[img.Name] = struct{}{}
		cfg.Images = append(cfg.Images, img)
	}
	return cfg, nil
}

func imageEntry(base string, entry fileImage) (ImageConfig, error) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return ImageConfig{}, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(entry.Path) == "" {
		return ImageConfig{}, fmt.Errorf("path is required")
	}
	if entry.WidthMeters <= 0 {
		return ImageConfig{}, fmt.Errorf("width_m must be positive")
	}
	kind, err := ParseImageType(entry.Type)
	if err != nil {
		return ImageConfig{}, err
	}
	return ImageConfig{
		Name:        name,
		Path:        resolvePath(base, strings.TrimSpace(entry.Path)),
		Type:        kind,
		WidthMeters: entry.WidthMeters,
	}, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func ParsePlaneDetection(raw string) (custom.PlaneDetectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return custom.PlaneDetectionNone, nil
	case "horizontal":
		return custom.PlaneDetectionHorizontal, nil
	case "vertical":
		return custom.PlaneDetectionVertical, nil
	case "both":
		return custom.PlaneDetectionBoth, nil
	default:
		return 0, fmt.Errorf("unknown plane_detection %q", raw)
	}
}

func ParseImageType(raw string) (custom.ImageType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "static":
		return custom.ImageStatic, nil
	case "moving":
		return custom.ImageMoving, nil
	default:
		return 0, fmt.Errorf("unknown image type %q", raw)
	}
}

func ParseTimeout(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
