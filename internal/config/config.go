package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the service-level settings. The h2oGPT host URL and
// prompt context are deliberately not here: they enter through the setup
// wizard and live in the entry store.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Agent  AgentConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// StoreConfig describes the entry database.
type StoreConfig struct {
	DBPath string
}

// AgentConfig describes agent behavior knobs.
type AgentConfig struct {
	// ConnectTimeout bounds the reachability probe run by the wizard and at
	// entry activation.
	ConnectTimeout time.Duration
	// MaxConversations bounds the in-memory transcripts per agent.
	MaxConversations int
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

	return &Config{
		Server: server,
		Store:  StoreConfig{DBPath: getEnvOrDefault("DB_PATH", "./data/bridge.db")},
		Agent:  agent,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadAgentConfig() (AgentConfig, error) {
	connectSeconds := 10
	if override, err := parseOptionalIntEnv("CONNECT_TIMEOUT_SECONDS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AgentConfig{}, fmt.Errorf("CONNECT_TIMEOUT_SECONDS must be >= 1")
		}
		connectSeconds = *override
	}

	maxConversations := 256
	if override, err := parseOptionalIntEnv("MAX_CONVERSATIONS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AgentConfig{}, fmt.Errorf("MAX_CONVERSATIONS must be >= 1")
		}
		maxConversations = *override
	}

	return AgentConfig{
		ConnectTimeout:   time.Duration(connectSeconds) * time.Second,
		MaxConversations: maxConversations,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
