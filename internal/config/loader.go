package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads the configuration from the environment, fills unset fields from
// their default tags and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem(), os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// lookupFunc has the shape of os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// populate fills every field of the section struct v that carries an env
// tag. The tag lists variable names in priority order, comma separated; an
// empty variable counts as unset.
func populate(v reflect.Value, lookup lookupFunc) error {
	for i := range v.NumField() {
		field, fv := v.Type().Field(i), v.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := populate(fv, lookup); err != nil {
				return err
			}
			continue
		}

		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		names := strings.Split(tag, ",")

		name, raw := names[0], field.Tag.Get("default")
		for _, n := range names {
			if s, ok := lookup(n); ok && s != "" {
				name, raw = n, s
				break
			}
		}
		if raw == "" {
			continue
		}

		if err := parseInto(fv, raw); err != nil {
			return fmt.Errorf("%s=%q: %w", name, raw, err)
		}
	}
	return nil
}

// parseInto decodes raw into the field types used by Config.
func parseInto(fv reflect.Value, raw string) error {
	var err error
	switch p := fv.Addr().Interface().(type) {
	case *string:
		*p = raw
	case *bool:
		*p, err = strconv.ParseBool(raw)
	case *int:
		*p, err = strconv.Atoi(raw)
	case *int64:
		*p, err = strconv.ParseInt(raw, 10, 64)
	case *float64:
		*p, err = strconv.ParseFloat(raw, 64)
	case *time.Duration:
		*p, err = time.ParseDuration(raw)
	case *[]string:
		*p = splitList(raw)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return err
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	oneOf := func(value string, allowed ...string) bool {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return true
			}
		}
		return false
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	check(c.Server.MaxMessageSize > 0, "SERVER_MAX_MESSAGE_SIZE must be positive")

	check(c.Load.FetchTimeout > 0, "LOAD_FETCH_TIMEOUT must be positive")
	check(c.Load.MaxFetchSize > 0, "LOAD_MAX_FETCH_SIZE must be positive")
	check(c.Load.MaxConcurrent > 0, "LOAD_MAX_CONCURRENT must be positive")
	check(c.Load.MaxWaitTime > 0, "LOAD_MAX_WAIT_TIME must be positive")

	check(c.Widget.MaxCells >= 0, "WIDGET_MAX_CELLS must be non-negative")
	check(c.Widget.PreviewRows >= 0, "WIDGET_PREVIEW_ROWS must be non-negative")
	check(oneOf(c.Widget.Theme, "light", "dark", "media"), "WIDGET_THEME (%q) must be light, dark or media", c.Widget.Theme)

	check(c.Session.CookieName != "", "SESSION_COOKIE_NAME must not be empty")
	check(c.Session.IdleTTL > 0, "SESSION_IDLE_TTL must be positive")
	check(c.Session.ReapInterval > 0, "SESSION_REAP_INTERVAL must be positive")

	if c.Rate.Enabled {
		check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		check(c.Rate.LoadLimit > 0, "RATE_LIMIT_LOAD must be positive when rate limiting is enabled")
	}

	for _, p := range c.Security.TrustedProxies {
		_, _, err := net.ParseCIDR(p)
		check(err == nil || net.ParseIP(p) != nil, "TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
	}

	check(oneOf(c.Logging.Level, "debug", "info", "warn", "error"), "LOG_LEVEL (%q) must be debug, info, warn or error", c.Logging.Level)
	check(oneOf(c.Logging.Format, "text", "json"), "LOG_FORMAT (%q) must be text or json", c.Logging.Format)

	check(oneOf(c.Tracing.Exporter, "stdout", "none"), "TRACING_EXPORTER (%q) must be stdout or none", c.Tracing.Exporter)
	check(c.Tracing.SampleRatio >= 0 && c.Tracing.SampleRatio <= 1, "TRACING_SAMPLE_RATIO (%g) must be between 0 and 1", c.Tracing.SampleRatio)

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// String returns a compact representation of the config for startup logs.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q, MaxMessageSize: %d}, ", c.Server.Addr(), c.Server.MaxMessageSize)
	fmt.Fprintf(&b, "Load: {FetchTimeout: %s, MaxFetchSize: %d, MaxConcurrent: %d}, ",
		c.Load.FetchTimeout, c.Load.MaxFetchSize, c.Load.MaxConcurrent)
	fmt.Fprintf(&b, "Widget: {MaxCells: %d, PreviewRows: %d}, ", c.Widget.MaxCells, c.Widget.PreviewRows)
	fmt.Fprintf(&b, "Session: {IdleTTL: %s}, ", c.Session.IdleTTL)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Tracing: {Enabled: %v, Exporter: %q}", c.Tracing.Enabled, c.Tracing.Exporter)
	b.WriteString("}")
	return b.String()
}
