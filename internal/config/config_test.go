package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheBase_XDGSet(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	got := cacheBase()
	want := filepath.Join("/custom/cache", "ferrisnav")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_HomeDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	got := cacheBase()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	want := filepath.Join(home, ".cache", "ferrisnav")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_TmpFallback(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")
	got := cacheBase()
	// Should use os.TempDir() when HOME is unset
	if !strings.Contains(got, "ferrisnav") {
		t.Errorf("expected ferrisnav in path, got %q", got)
	}
}

func TestSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/test")
	if got, want := SocketPath(), "/run/test/ferrisnav/daemon.sock"; got != want {
		t.Errorf("SocketPath() = %q, want %q", got, want)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(map[string]interface{}{
		"sidebar": map[string]interface{}{"validation": "Lenient"},
		"docs":    map[string]interface{}{"base_url": "http://localhost:8080", "timeout_seconds": "5"},
		"daemon":  map[string]interface{}{"expiration_seconds": 30, "crate_cache_size": 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sidebar.Validation != ValidationLenient || cfg.Sidebar.Validation.Enabled() {
		t.Errorf("validation = %q, want lenient", cfg.Sidebar.Validation)
	}
	if cfg.Docs.BaseURL != "http://localhost:8080" {
		t.Errorf("base_url = %q", cfg.Docs.BaseURL)
	}
	if cfg.Docs.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Docs.Timeout())
	}
	if cfg.Daemon.ExpirationSeconds != 30 || cfg.Daemon.CrateCacheSize != 4 {
		t.Errorf("daemon = %+v", cfg.Daemon)
	}
}

func TestDecode_ValidationMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      interface{}
		want    ValidationMode
		wantErr bool
	}{
		{"strict", ValidationStrict, false},
		{"STRICT", ValidationStrict, false},
		{"lenient", ValidationLenient, false},
		{true, ValidationStrict, false},
		{false, ValidationLenient, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		cfg, err := Decode(map[string]interface{}{
			"sidebar": map[string]interface{}{"validation": tt.in},
		})
		if tt.wantErr {
			if err == nil {
				t.Errorf("%v: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", tt.in, err)
			continue
		}
		if cfg.Sidebar.Validation != tt.want {
			t.Errorf("%v: got %q, want %q", tt.in, cfg.Sidebar.Validation, tt.want)
		}
	}
}

func TestDecode_DefaultsToStrict(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Sidebar.Validation.Enabled() {
		t.Error("validation should default to strict")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FERRISNAV_SIDEBAR_VALIDATION", "lenient")
	t.Setenv("FERRISNAV_DAEMON_CRATE_CACHE_SIZE", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sidebar.Validation != ValidationLenient {
		t.Errorf("validation = %q, want lenient", cfg.Sidebar.Validation)
	}
	if cfg.Daemon.CrateCacheSize != 7 {
		t.Errorf("crate_cache_size = %d, want 7", cfg.Daemon.CrateCacheSize)
	}
}
