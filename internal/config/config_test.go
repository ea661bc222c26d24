package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Store.DBPath != "./data/bridge.db" {
		t.Fatalf("unexpected db path: %s", cfg.Store.DBPath)
	}
	if cfg.Agent.ConnectTimeout != 10*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Agent.ConnectTimeout)
	}
	if cfg.Agent.MaxConversations != 256 {
		t.Fatalf("unexpected max conversations: %d", cfg.Agent.MaxConversations)
	}
}

func TestLoadPortForms(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"9090", ":9090"},
		{":9090", ":9090"},
		{"127.0.0.1:9090", "127.0.0.1:9090"},
	}
	for _, tc := range cases {
		t.Setenv("PORT", tc.value)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load(%q) err: %v", tc.value, err)
		}
		if cfg.Server.Addr != tc.want {
			t.Fatalf("PORT=%q: got %s want %s", tc.value, cfg.Server.Addr, tc.want)
		}
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "90 90")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadAgentOverrides(t *testing.T) {
	t.Setenv("CONNECT_TIMEOUT_SECONDS", "3")
	t.Setenv("MAX_CONVERSATIONS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Agent.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Agent.ConnectTimeout)
	}
	if cfg.Agent.MaxConversations != 5 {
		t.Fatalf("unexpected max conversations: %d", cfg.Agent.MaxConversations)
	}
}

func TestLoadRejectsBadOverrides(t *testing.T) {
	t.Setenv("CONNECT_TIMEOUT_SECONDS", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric CONNECT_TIMEOUT_SECONDS")
	}

	t.Setenv("CONNECT_TIMEOUT_SECONDS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for CONNECT_TIMEOUT_SECONDS = 0")
	}
}
