package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nesemu/hw/input"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want func(*Config)
	}{
		{
			name: "empty",
			toml: ``,
			want: func(*Config) {},
		},
		{
			name: "partial",
			toml: `
[audio]
enabled = false

[emulation]
ram_seed = 42
ppu_logging = true
`,
			want: func(cfg *Config) {
				cfg.Audio.Enabled = false
				cfg.Emulation.RAMSeed = 42
				cfg.Emulation.PPULogging = true
			},
		},
		{
			name: "invalid values",
			toml: `
[audio]
sample_rate = 12

[emulation]
fps_limit = -5

[video]
scale = 100
`,
			want: func(cfg *Config) {
				cfg.Emulation.FPSLimit = 0
			},
		},
		{
			name: "paddles",
			toml: `
[[input.paddles]]
plugged = true
hold = "start,a"

[[input.paddles]]
plugged = false
`,
			want: func(cfg *Config) {
				var hold input.Buttons
				hold.Set(input.PadStart, true)
				hold.Set(input.PadA, true)
				cfg.Input.Paddles[0] = input.PaddleConfig{Plugged: true, Hold: hold}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), cfgFilename)
			if err := os.WriteFile(path, []byte(tt.toml), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error: %v", err)
			}

			want := DefaultConfig()
			tt.want(&want)
			if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Config{}, "TraceOut")); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("LoadConfig() should fail on a missing file")
	}

	path := filepath.Join(t.TempDir(), cfgFilename)
	if err := os.WriteFile(path, []byte("[audio\nenabled = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("LoadConfig() should fail on invalid toml")
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.Enabled = false
	cfg.Emulation.FPSLimit = 0
	cfg.Emulation.RAMSeed = 42
	cfg.Video.Scale = 3
	cfg.Input.Paddles[1] = input.PaddleConfig{Plugged: true}

	path := filepath.Join(t.TempDir(), cfgFilename)
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got, cmpopts.IgnoreFields(Config{}, "TraceOut")); diff != "" {
		t.Errorf("config mismatch (-saved +loaded):\n%s", diff)
	}

	if err := SaveConfig(filepath.Join(t.TempDir(), "missing", cfgFilename), cfg); err == nil {
		t.Errorf("SaveConfig() in a missing directory should fail")
	}
}
