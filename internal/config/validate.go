package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ValidateFile rejects keys the client does not understand, then checks
// values the same way LoadClientConfig does.
func ValidateFile(path string) (ClientConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()

	var raw fileConfig
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return ClientConfig{}, fmt.Errorf("config validate failed (%s): %s", path, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return ClientConfig{}, fmt.Errorf("config parse failed (%s:%d:%d): %w", path, row, col, err)
		}
		return ClientConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return LoadClientConfig(path)
}
