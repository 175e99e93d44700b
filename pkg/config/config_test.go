package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/templatestudio/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[export]
image_timeout = "3s"
output_dir = "out"

[cache]
backend = "none"

[fetch]
attempts = 5

[server]
addr = ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Export.ImageTimeout = Duration{3 * time.Second}
	want.Export.OutputDir = "out"
	want.Cache.Backend = BackendNone
	want.Fetch.Attempts = 5
	want.Server.Addr = ":9000"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "[export\n"},
		{"bad duration", "[export]\nimage_timeout = \"soon\"\n"},
		{"unknown key", "[export]\nimage_timout = \"1s\"\n"},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n"},
		{"zero attempts", "[fetch]\nattempts = 0\n"},
		{"negative settle", "[export]\nsettle_delay = \"-1s\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\nredis_addr = \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("error code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestCacheDir(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = "/tmp/explicit"
	if dir, _ := cfg.CacheDir(); dir != "/tmp/explicit" {
		t.Errorf("CacheDir = %q, want explicit dir", dir)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	cfg.Cache.Dir = ""
	if dir, _ := cfg.CacheDir(); dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("CacheDir = %q, want XDG dir", dir)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if path != filepath.Join("/tmp/cfg", AppName, "config.toml") {
		t.Errorf("DefaultPath = %q", path)
	}
}
