package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "client":
		return clientTemplate, nil
	case "remoting":
		return remotingTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `device_class = "hmd"
touch_queue_capacity = 256
touch_overflow = "drop_oldest"
remoting_config = "remoting-config.cfg"
watch_remoting_config = false
raycast_timeout = "200ms"
plane_detection = "none"
metrics_addr = ""
metrics_cors_origins = []

# [[images]]
# name = "poster"
# path = "images/poster.jpg"
# type = "static"
# width_m = 0.3
`

const remotingTemplate = `{
  "role": "server",
  "signaling": { "ip": "0.0.0.0", "port": 9999 },
  "render-config": {
    "name": "HoloLens2",
    "width": 1440,
    "height": 936,
    "numViews": 2,
    "bandwidth": 36000,
    "framerate": 60
  }
}
`
