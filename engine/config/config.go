package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultConfig []byte

type Window struct {
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Renderer struct {
	FramesInFlight uint32     `toml:"frames_in_flight"`
	ClearColor     [4]float32 `toml:"clear_color"`
}

type Shaders struct {
	Dir       string `toml:"dir"`
	Vertex    string `toml:"vertex"`
	Fragment  string `toml:"fragment"`
	HotReload bool   `toml:"hot_reload"`
}

// ApplicationConfig holds the built-in settings of the application.
type ApplicationConfig struct {
	Name     string   `toml:"name"`
	LogLevel string   `toml:"log_level"`
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Shaders  Shaders  `toml:"shaders"`

	// Set from the command line, never read from the document.
	Validation bool `toml:"-"`
}

// Default decodes the embedded configuration.
func Default() (*ApplicationConfig, error) {
	return Decode(defaultConfig)
}

// Decode parses a TOML document. Unknown keys are rejected.
func Decode(data []byte) (*ApplicationConfig, error) {
	cfg := &ApplicationConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight == 0 {
		return fmt.Errorf("frames_in_flight must be at least 1")
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return fmt.Errorf("vertex and fragment shader names are required")
	}
	return nil
}
