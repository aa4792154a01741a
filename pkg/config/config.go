package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envToken     = "OPSDASH_TOKEN"
	envServerURL = "OPSDASH_SERVER_URL"
	envSocketURL = "OPSDASH_SOCKET_URL"
	envViewerID  = "OPSDASH_VIEWER_ID"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Session   SessionConfig   `json:"session"`
	Transport TransportConfig `json:"transport,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// ServerConfig locates the dashboard backend.
type ServerConfig struct {
	// BaseURL is the HTTP API root, e.g. "https://shop.example.com".
	BaseURL string `json:"base_url"`
	// SocketURL is the notification endpoint. When empty it is derived
	// from BaseURL with the ws scheme and the standard path.
	SocketURL string `json:"socket_url,omitempty"`
}

// SessionConfig carries the authenticated viewer's identity. The token is
// normally injected via OPSDASH_TOKEN rather than stored in the file.
type SessionConfig struct {
	Token    string `json:"token,omitempty"`
	ViewerID int64  `json:"viewer_id"`
}

// TransportConfig tunes keepalive and reconnection behavior.
type TransportConfig struct {
	PingIntervalSeconds    int `json:"ping_interval_seconds,omitempty"`
	ReconnectBaseMillis    int `json:"reconnect_base_millis,omitempty"`
	ReconnectCapMultiplier int `json:"reconnect_cap_multiplier,omitempty"`
	MaxReconnectAttempts   int `json:"max_reconnect_attempts,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// SocketURL resolves the notification endpoint, deriving it from BaseURL
// when not set explicitly.
func (c *Config) SocketURL() string {
	if url := strings.TrimSpace(c.Server.SocketURL); url != "" {
		return url
	}

	base := strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)

	return base + "/ws/notifications/"
}

// LoadConfig resolves config.json, unmarshals it, and applies environment
// overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Server.BaseURL) == "" {
		return nil, fmt.Errorf("server.base_url is required")
	}

	return &cfg, nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envToken)); token != "" {
		cfg.Session.Token = token
	}
	if base := strings.TrimSpace(os.Getenv(envServerURL)); base != "" {
		cfg.Server.BaseURL = base
	}
	if socket := strings.TrimSpace(os.Getenv(envSocketURL)); socket != "" {
		cfg.Server.SocketURL = socket
	}
	if raw := strings.TrimSpace(os.Getenv(envViewerID)); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Session.ViewerID = id
		}
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is OPSDASH_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("OPSDASH_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("OPSDASH_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
