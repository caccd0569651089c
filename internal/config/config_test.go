package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.Reconnect.MaxAttempts = 7
	cfg.Limits.FetchTimeout = D(15 * time.Second)
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.Reconnect.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", loaded.Reconnect.MaxAttempts)
	}
	if loaded.Limits.FetchTimeout.Duration != 15*time.Second {
		t.Errorf("FetchTimeout = %v, want 15s", loaded.Limits.FetchTimeout)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_session = \"ops\"\n\n[reconnect]\nbase_delay = \"2s\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reconnect.BaseDelay.Duration != 2*time.Second {
		t.Errorf("BaseDelay = %v, want 2s", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxDelay.Duration != 30*time.Second {
		t.Errorf("MaxDelay = %v, want default 30s", cfg.Reconnect.MaxDelay)
	}
	if cfg.Codec.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want ffmpeg", cfg.Codec.FFmpegPath)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[limits]\nfetch_timeout = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for bad duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Reconnect.MaxAttempts)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WPPDESK_SESSION", "night")
	t.Setenv("WPPDESK_LOG_LEVEL", "debug")
	t.Setenv("WPPDESK_FFMPEG", "/opt/ffmpeg")

	cfg := Default()
	ApplyEnv(cfg)
	if cfg.DefaultSession != "night" || cfg.Log.Level != "debug" || cfg.Codec.FFmpegPath != "/opt/ffmpeg" {
		t.Errorf("ApplyEnv() = %+v", cfg)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
