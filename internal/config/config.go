package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration. Precedence: defaults, then the
// JSON config file, then LIVEROOM_* environment overrides, then validation.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Room      *RoomConfig      `json:"room"`
	RateLimit *RateLimitConfig `json:"rate_limit"`
	Database  *DatabaseConfig  `json:"database"`
	API       *APIConfig       `json:"api"`
	Gradebook *GradebookConfig `json:"gradebook"`
	Log       *LogConfig       `json:"log"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	CORSOrigin   string        `json:"cors_origin"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	PongTimeout  time.Duration `json:"pong_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	JoinTimeout  time.Duration `json:"join_timeout"`
	ReadLimit    int64         `json:"read_limit"`
	SendBuffer   int           `json:"send_buffer"`
}

type RoomConfig struct {
	Capacity     int `json:"capacity"`
	GraceSeconds int `json:"grace_seconds"`
	HistoryLimit int `json:"history_limit"`
}

type RateLimitConfig struct {
	// EventsPerSecond of zero or less disables inbound rate limiting.
	EventsPerSecond float64 `json:"events_per_second"`
	Burst           int     `json:"burst"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type APIConfig struct {
	// AuthKey is the HS256 secret shared with the CRUD backend. Empty
	// leaves the provisioning API open (development only).
	AuthKey string `json:"auth_key"`
	Issuer  string `json:"issuer"`
}

type GradebookConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns settings sized for classroom-scale deployments.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigin:   "*",
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			PongTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			JoinTimeout:  15 * time.Second,
			ReadLimit:    64 * 1024,
			SendBuffer:   100,
		},
		Room: &RoomConfig{
			Capacity:     5,
			GraceSeconds: 60,
			HistoryLimit: 50,
		},
		RateLimit: &RateLimitConfig{
			EventsPerSecond: 50,
			Burst:           100,
		},
		Database: &DatabaseConfig{
			Path: "./data/liveroom.db",
		},
		API:       &APIConfig{},
		Gradebook: &GradebookConfig{Timeout: 5 * time.Second},
		Log:       &LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the effective configuration. path may be empty; a named file
// that cannot be read or parsed is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot serve.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("http host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 ||
		c.WebSocket.WriteTimeout <= 0 || c.WebSocket.JoinTimeout <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	if c.WebSocket.PongTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket pong timeout must exceed the ping interval")
	}
	if c.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("websocket read limit must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}
	if c.Room.Capacity < 2 {
		return fmt.Errorf("room capacity must allow a teacher and a student")
	}
	if c.Room.GraceSeconds <= 0 {
		return fmt.Errorf("room grace seconds must be positive")
	}
	if c.Room.HistoryLimit < 0 {
		return fmt.Errorf("room history limit cannot be negative")
	}
	if c.RateLimit.EventsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive when limiting is on")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Gradebook.Timeout <= 0 {
		return fmt.Errorf("gradebook timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json")
	}
	return nil
}

// configFile mirrors Config for JSON parsing: durations as strings, every
// section optional.
type configFile struct {
	HTTP *struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
		CORSOrigin   string `json:"cors_origin"`
	} `json:"http"`
	WebSocket *struct {
		PingInterval string `json:"ping_interval"`
		PongTimeout  string `json:"pong_timeout"`
		WriteTimeout string `json:"write_timeout"`
		JoinTimeout  string `json:"join_timeout"`
		ReadLimit    int64  `json:"read_limit"`
		SendBuffer   int    `json:"send_buffer"`
	} `json:"websocket"`
	Room      *RoomConfig      `json:"room"`
	RateLimit *RateLimitConfig `json:"rate_limit"`
	Database  *DatabaseConfig  `json:"database"`
	API       *APIConfig       `json:"api"`
	Gradebook *struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
	} `json:"gradebook"`
	Log *LogConfig `json:"log"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.HTTP != nil {
		setString(&c.HTTP.Host, file.HTTP.Host)
		setInt(&c.HTTP.Port, file.HTTP.Port)
		setDuration(&c.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		setDuration(&c.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
		setString(&c.HTTP.CORSOrigin, file.HTTP.CORSOrigin)
	}
	if file.WebSocket != nil {
		setDuration(&c.WebSocket.PingInterval, file.WebSocket.PingInterval)
		setDuration(&c.WebSocket.PongTimeout, file.WebSocket.PongTimeout)
		setDuration(&c.WebSocket.WriteTimeout, file.WebSocket.WriteTimeout)
		setDuration(&c.WebSocket.JoinTimeout, file.WebSocket.JoinTimeout)
		if file.WebSocket.ReadLimit > 0 {
			c.WebSocket.ReadLimit = file.WebSocket.ReadLimit
		}
		setInt(&c.WebSocket.SendBuffer, file.WebSocket.SendBuffer)
	}
	if file.Room != nil {
		setInt(&c.Room.Capacity, file.Room.Capacity)
		setInt(&c.Room.GraceSeconds, file.Room.GraceSeconds)
		if file.Room.HistoryLimit > 0 {
			c.Room.HistoryLimit = file.Room.HistoryLimit
		}
	}
	if file.RateLimit != nil {
		c.RateLimit.EventsPerSecond = file.RateLimit.EventsPerSecond
		setInt(&c.RateLimit.Burst, file.RateLimit.Burst)
	}
	if file.Database != nil {
		setString(&c.Database.Path, file.Database.Path)
	}
	if file.API != nil {
		setString(&c.API.AuthKey, file.API.AuthKey)
		setString(&c.API.Issuer, file.API.Issuer)
	}
	if file.Gradebook != nil {
		setString(&c.Gradebook.BaseURL, file.Gradebook.BaseURL)
		setDuration(&c.Gradebook.Timeout, file.Gradebook.Timeout)
	}
	if file.Log != nil {
		setString(&c.Log.Level, file.Log.Level)
		setString(&c.Log.Format, file.Log.Format)
	}
	return nil
}

func (c *Config) applyEnv() {
	envString(&c.HTTP.Host, "LIVEROOM_HTTP_HOST")
	envInt(&c.HTTP.Port, "LIVEROOM_HTTP_PORT")
	envDuration(&c.HTTP.ReadTimeout, "LIVEROOM_HTTP_READ_TIMEOUT")
	envDuration(&c.HTTP.WriteTimeout, "LIVEROOM_HTTP_WRITE_TIMEOUT")
	envString(&c.HTTP.CORSOrigin, "LIVEROOM_HTTP_CORS_ORIGIN")

	envDuration(&c.WebSocket.PingInterval, "LIVEROOM_WS_PING_INTERVAL")
	envDuration(&c.WebSocket.PongTimeout, "LIVEROOM_WS_PONG_TIMEOUT")
	envDuration(&c.WebSocket.WriteTimeout, "LIVEROOM_WS_WRITE_TIMEOUT")
	envDuration(&c.WebSocket.JoinTimeout, "LIVEROOM_WS_JOIN_TIMEOUT")
	envInt64(&c.WebSocket.ReadLimit, "LIVEROOM_WS_READ_LIMIT")
	envInt(&c.WebSocket.SendBuffer, "LIVEROOM_WS_SEND_BUFFER")

	envInt(&c.Room.Capacity, "LIVEROOM_ROOM_CAPACITY")
	envInt(&c.Room.GraceSeconds, "LIVEROOM_ROOM_GRACE_SECONDS")
	envInt(&c.Room.HistoryLimit, "LIVEROOM_ROOM_HISTORY_LIMIT")

	envFloat(&c.RateLimit.EventsPerSecond, "LIVEROOM_RATE_EVENTS_PER_SECOND")
	envInt(&c.RateLimit.Burst, "LIVEROOM_RATE_BURST")

	envString(&c.Database.Path, "LIVEROOM_DATABASE_PATH")

	envString(&c.API.AuthKey, "LIVEROOM_API_AUTH_KEY")
	envString(&c.API.Issuer, "LIVEROOM_API_ISSUER")

	envString(&c.Gradebook.BaseURL, "LIVEROOM_GRADEBOOK_URL")
	envDuration(&c.Gradebook.Timeout, "LIVEROOM_GRADEBOOK_TIMEOUT")

	envString(&c.Log.Level, "LIVEROOM_LOG_LEVEL")
	envString(&c.Log.Format, "LIVEROOM_LOG_FORMAT")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
