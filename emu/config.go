package emu

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"nesemu/emu/log"
	"nesemu/hw/apu"
	"nesemu/hw/input"
)

type Config struct {
	Audio     AudioConfig     `toml:"audio"`
	Emulation EmulationConfig `toml:"emulation"`
	Video     VideoConfig     `toml:"video"`
	Input     input.Config    `toml:"input"`

	TraceOut io.WriteCloser `toml:"-"`
}

type AudioConfig struct {
	Enabled    bool `toml:"enabled"`
	SampleRate int  `toml:"sample_rate"`
}

type EmulationConfig struct {
	// FPSLimit caps the emulation speed, 0 means unlimited.
	FPSLimit   int  `toml:"fps_limit"`
	PPULogging bool `toml:"ppu_logging"`

	// RAMSeed seeds the power-up RAM content. 0 picks a random seed.
	RAMSeed int64 `toml:"ram_seed"`
}

type VideoConfig struct {
	Scale int `toml:"scale"`
}

const (
	DefaultFPSLimit = 60
	maxScale        = 8
)

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: apu.DefaultSampleRate,
		},
		Emulation: EmulationConfig{
			FPSLimit: DefaultFPSLimit,
		},
		Video: VideoConfig{
			Scale: 2,
		},
		Input: input.Config{
			Paddles: [2]input.PaddleConfig{{Plugged: true}},
		},
	}
}

// Check replaces invalid values with their defaults.
func (cfg *Config) Check() {
	def := DefaultConfig()
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		log.ModEmu.WarnZ("invalid sample rate, using default").
			Int("rate", cfg.Audio.SampleRate).
			Int("default", def.Audio.SampleRate).
			End()
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Emulation.FPSLimit < 0 {
		cfg.Emulation.FPSLimit = 0
	}
	if cfg.Video.Scale < 1 || cfg.Video.Scale > maxScale {
		cfg.Video.Scale = def.Video.Scale
	}
}

var ConfigDir = sync.OnceValue(func() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "nesemu")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.ModEmu.FatalZ("failed to create config directory").String("dir", dir).Error("err", err).End()
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration at path. Missing keys keep their
// default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return DefaultConfig(), err
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown config key").
			String("path", path).
			Stringer("key", key).
			End()
	}
	cfg.Check()
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration from the config directory, or
// provide a default one.
func LoadConfigOrDefault() Config {
	path := filepath.Join(ConfigDir(), cfgFilename)
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("failed to load config, using default").
				String("path", path).
				Error("err", err).
				End()
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig writes cfg at path, in the format read by LoadConfig.
func SaveConfig(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
