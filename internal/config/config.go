package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wppdesk/config.toml.
type Config struct {
	DefaultSession string    `toml:"default_session"`
	Reconnect      Reconnect `toml:"reconnect"`
	Limits         Limits    `toml:"limits"`
	Codec          Codec     `toml:"codec"`
	Log            Log       `toml:"log"`
	Device         Device    `toml:"device"`
}

// Reconnect tunes the connection supervisor.
type Reconnect struct {
	MonitorInterval Duration `toml:"monitor_interval"`
	BaseDelay       Duration `toml:"base_delay"`
	MaxDelay        Duration `toml:"max_delay"`
	MaxAttempts     int      `toml:"max_attempts"`
	AttemptTimeout  Duration `toml:"attempt_timeout"`
}

// Limits bounds media sizes and fetch durations.
type Limits struct {
	MaxAudioBytes        int64    `toml:"max_audio_bytes"`
	MaxStickerBytes      int64    `toml:"max_sticker_bytes"`
	MaxInboundMediaBytes int64    `toml:"max_inbound_media_bytes"`
	FetchTimeout         Duration `toml:"fetch_timeout"`
}

// Codec configures the external media transcoder.
type Codec struct {
	FFmpegPath string `toml:"ffmpeg_path"`
}

// Log configures the daemon logger.
type Log struct {
	Level string `toml:"level"`
}

// Device configures how the linked device presents itself on the phone.
type Device struct {
	OSName string `toml:"os_name"`
}

// Duration is a time.Duration that round-trips through TOML as a string like "60s".
type Duration struct {
	time.Duration
}

// D is shorthand for building a Duration literal.
func D(d time.Duration) Duration { return Duration{d} }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Reconnect: Reconnect{
			MonitorInterval: D(60 * time.Second),
			BaseDelay:       D(time.Second),
			MaxDelay:        D(30 * time.Second),
			MaxAttempts:     5,
			AttemptTimeout:  D(45 * time.Second),
		},
		Limits: Limits{
			MaxAudioBytes:        16 << 20,
			MaxStickerBytes:      10 << 20,
			MaxInboundMediaBytes: 16 << 20,
			FetchTimeout:         D(60 * time.Second),
		},
		Codec:  Codec{FFmpegPath: "ffmpeg"},
		Log:    Log{Level: "info"},
		Device: Device{OSName: "wppdesk"},
	}
}

// Load reads config from the given path on top of Default. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overlays WPPDESK_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("WPPDESK_SESSION"); v != "" {
		cfg.DefaultSession = v
	}
	if v := os.Getenv("WPPDESK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WPPDESK_FFMPEG"); v != "" {
		cfg.Codec.FFmpegPath = v
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
