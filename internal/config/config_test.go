package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peerwire.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig(writeTemp(t, `
host = "game.example.net"
port = 7777
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "game.example.net" || cfg.Port != 7777 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ConnectTimeoutMS != 5000 {
		t.Fatalf("timeout default = %d, want 5000", cfg.ConnectTimeoutMS)
	}
}

func TestLoadClientConfigRejectsEmptyHost(t *testing.T) {
	_, err := LoadClientConfig(writeTemp(t, "port = 7777\n"))
	if err == nil || !strings.Contains(err.Error(), "host") {
		t.Fatalf("expected missing host error, got %v", err)
	}
}

func TestLoadClientConfigRejectsNegativeTimeout(t *testing.T) {
	_, err := LoadClientConfig(writeTemp(t, "host = \"h\"\nport = 1\nconnect_timeout_ms = -1\n"))
	if err == nil || !strings.Contains(err.Error(), "connect_timeout_ms") {
		t.Fatalf("expected negative timeout error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadClientConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}
