package config

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Errorf("frames in flight = %d, want 2", cfg.Renderer.FramesInFlight)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	want := [4]float32{0.1961, 0.6588, 0.3216, 1.0}
	if cfg.Renderer.ClearColor != want {
		t.Errorf("clear color = %v, want %v", cfg.Renderer.ClearColor, want)
	}
	if cfg.Validation {
		t.Error("validation must only come from the command line")
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "zero size",
			doc:  "[window]\nwidth = 0\nheight = 10\n[renderer]\nframes_in_flight = 2\n[shaders]\nvertex = \"a\"\nfragment = \"b\"\n",
			want: "window size",
		},
		{
			name: "no frames",
			doc:  "[window]\nwidth = 10\nheight = 10\n[shaders]\nvertex = \"a\"\nfragment = \"b\"\n",
			want: "frames_in_flight",
		},
		{
			name: "unknown key",
			doc:  "colour = 1\n",
			want: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Decode error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
