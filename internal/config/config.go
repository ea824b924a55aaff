package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates configuration for the whole service.
type Config struct {
	Server ServerConfig
	Agent  AgentConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Agent: agent}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

const defaultAPIBase = "https://api.salesforce.com/einstein/ai-agent/v1"

// AgentConfig holds upstream agent API and OAuth settings. Values may
// also be supplied per request; these are the environment defaults.
type AgentConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	TokenURL     string
	InstanceURL  string
	AgentID      string
	APIBase      string
	Streaming    bool
}

func loadAgentConfig() (AgentConfig, error) {
	streaming, err := parseBoolEnv("AGENT_STREAMING", true)
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{
		ClientID:     strings.TrimSpace(os.Getenv("SF_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("SF_CLIENT_SECRET")),
		Scope:        strings.TrimSpace(os.Getenv("SF_OAUTH_SCOPE")),
		TokenURL:     strings.TrimSpace(os.Getenv("SF_TOKEN_URL")),
		InstanceURL:  strings.TrimSpace(os.Getenv("SF_INSTANCE_URL")),
		AgentID:      strings.TrimSpace(os.Getenv("SF_AGENT_ID")),
		APIBase:      getEnvOrDefault("SF_API_BASE", defaultAPIBase),
		Streaming:    streaming,
	}, nil
}

// ClientCredentialsConfigured reports whether the OAuth client pair is
// present. Session creation asks the upstream to bypass user resolution
// in that case.
func (c AgentConfig) ClientCredentialsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
