package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Missing file is fine; everything comes from defaults.
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Download.MaxConcurrent != 3 {
		t.Errorf("max_concurrent = %d, want 3", cfg.Download.MaxConcurrent)
	}
	if cfg.Download.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want 3", cfg.Download.MaxAttempts)
	}
	if cfg.Download.YTDLPPath != "yt-dlp" {
		t.Errorf("ytdlp_path = %q, want yt-dlp", cfg.Download.YTDLPPath)
	}
	if cfg.Defaults.Quality != "best" || cfg.Defaults.Format != "mp4" {
		t.Errorf("unexpected defaults: %+v", cfg.Defaults)
	}
	if cfg.Port != "8090" {
		t.Errorf("port = %q, want 8090", cfg.Port)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
download:
  dir: /tmp/media
  max_concurrent: 5
  grace_seconds: 10
defaults:
  quality: 720p
  format: mkv
port: "9001"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Download.Dir != "/tmp/media" {
		t.Errorf("dir = %q", cfg.Download.Dir)
	}
	if cfg.Download.MaxConcurrent != 5 {
		t.Errorf("max_concurrent = %d, want 5", cfg.Download.MaxConcurrent)
	}
	if cfg.Defaults.Quality != "720p" {
		t.Errorf("quality = %q, want 720p", cfg.Defaults.Quality)
	}
	if cfg.Port != "9001" {
		t.Errorf("port = %q, want 9001", cfg.Port)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"concurrency too high", "download:\n  max_concurrent: 11\n"},
		{"concurrency zero", "download:\n  max_concurrent: 0\n"},
		{"grace out of range", "download:\n  grace_seconds: 90\n"},
		{"bad quality", "defaults:\n  quality: potato\n"},
		{"bad format", "defaults:\n  format: avi\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error for %q", tc.yaml)
			}
		})
	}
}
