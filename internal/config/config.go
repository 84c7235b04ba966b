// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Load     LoadConfig
	Widget   WidgetConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT,PORT" default:"8080"`

	// ReadTimeout bounds reading a request, body included. Uploads of the
	// maximum size need time on slow links (default: 5m)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"5m"`

	// WriteTimeout is 0 so URL loads may run up to the fetch timeout (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxMessageSize caps request bodies and websocket messages (default: 150MB)
	MaxMessageSize int64 `env:"SERVER_MAX_MESSAGE_SIZE" default:"157286400"`
}

// LoadConfig holds dataset loading settings.
type LoadConfig struct {
	// FetchTimeout bounds a single URL download (default: 300s)
	FetchTimeout time.Duration `env:"LOAD_FETCH_TIMEOUT" default:"300s"`

	// MaxFetchSize caps a downloaded body in bytes (default: 150MB)
	MaxFetchSize int64 `env:"LOAD_MAX_FETCH_SIZE" default:"157286400"`

	// MaxConcurrent is the maximum number of parallel loads (default: 5)
	MaxConcurrent int `env:"LOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a load waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"LOAD_MAX_WAIT_TIME" default:"30s"`
}

// WidgetConfig holds visualization settings.
type WidgetConfig struct {
	// MaxCells rejects tables with more rows*columns; 0 disables (default: 5000000)
	MaxCells int `env:"WIDGET_MAX_CELLS" default:"5000000"`

	// PreviewRows is the number of rows in the HTML preview (default: 20)
	PreviewRows int `env:"WIDGET_PREVIEW_ROWS" default:"20"`

	// ScriptURLs are loaded in order before the explorer mounts: React, ReactDOM
	// and the Graphic Walker UMD bundle exposing GWalker. Empty shows the
	// preview table only
	ScriptURLs []string `env:"WIDGET_SCRIPT_URLS" default:"https://cdn.jsdelivr.net/npm/react@18.3.1/umd/react.production.min.js,https://cdn.jsdelivr.net/npm/react-dom@18.3.1/umd/react-dom.production.min.js,https://cdn.jsdelivr.net/npm/@kanaries/graphic-walker@0.4/dist/graphic-walker.umd.js"`

	// Theme is light, dark or media (default: media)
	Theme string `env:"WIDGET_THEME" default:"media"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// CookieName is the session cookie (default: dataviz_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"dataviz_session"`

	// CookieSecure marks the cookie HTTPS-only (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// IdleTTL is how long an unused session is kept (default: 30m)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	// ReapInterval is how often idle sessions are swept (default: 1m)
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" default:"1m"`
}

// RateLimitConfig holds rate limiting settings per client IP.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// LoadLimit is requests per minute for load endpoints (default: 10)
	LoadLimit int `env:"RATE_LIMIT_LOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on span export (default: false)
	Enabled bool `env:"TRACING_ENABLED" default:"false"`

	// Exporter is stdout or none (default: stdout)
	Exporter string `env:"TRACING_EXPORTER" default:"stdout"`

	// SampleRatio is the fraction of traces kept, 0-1 (default: 1)
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" default:"1"`

	// ServiceName is reported on every span (default: dataviz)
	ServiceName string `env:"TRACING_SERVICE_NAME" default:"dataviz"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
