package config

import (
	"fmt"
	"os"

	"github.com/danmuck/isarlink/internal/adapter"
)

func TouchConfig(cfg ClientConfig, render RenderConfig) adapter.TouchConfig {
	return adapter.TouchConfig{
		Capacity: cfg.TouchQueueCapacity,
		Overflow: cfg.TouchOverflow,
		Width:    render.Width,
		Height:   render.Height,
	}
}

// ReferenceImages reads every configured JPEG from disk.
func ReferenceImages(entries []ImageConfig) ([]adapter.ReferenceImage, error) {
	images := make([]adapter.ReferenceImage, 0, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("reference image %q: %w", entry.Name, err)
		}
		images = append(images, adapter.ReferenceImage{
			Name:        entry.Name,
			JPEG:        data,
			Type:        entry.Type,
			WidthMeters: entry.WidthMeters,
		})
	}
	return images, nil
}
