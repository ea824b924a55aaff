package config

import (
	"errors"
	"testing"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	server, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", server.Addr)
	}
}

func TestLoadServerConfigKeepsExplicitAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	server, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", server.Addr)
	}
}

func TestLoadAgentConfigDefaults(t *testing.T) {
	t.Setenv("SF_API_BASE", "")
	t.Setenv("AGENT_STREAMING", "")

	agent, err := loadAgentConfig()
	if err != nil {
		t.Fatalf("loadAgentConfig err: %v", err)
	}
	if agent.APIBase != defaultAPIBase {
		t.Fatalf("unexpected api base %s", agent.APIBase)
	}
	if !agent.Streaming {
		t.Fatal("streaming should default to true")
	}
}

func TestLoadAgentConfigRejectsBadStreamingFlag(t *testing.T) {
	t.Setenv("AGENT_STREAMING", "certainly")

	if _, err := loadAgentConfig(); err == nil {
		t.Fatal("expected error for invalid AGENT_STREAMING")
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require("SF_AGENT_ID", "a-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := Require("SF_AGENT_ID", "")
	var missing *Error
	if !errors.As(err, &missing) || missing.Name != "SF_AGENT_ID" {
		t.Fatalf("expected *config.Error for SF_AGENT_ID, got %v", err)
	}
}
