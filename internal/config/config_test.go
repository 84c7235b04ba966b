package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks variables that CI environments commonly set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "SERVER_PORT", "LOG_LEVEL", "LOG_FORMAT", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ShutdownTimeout: time.Second, MaxMessageSize: 1},
		Load:    LoadConfig{FetchTimeout: time.Second, MaxFetchSize: 1, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Widget:  WidgetConfig{PreviewRows: 20, Theme: "media"},
		Session: SessionConfig{CookieName: "s", IdleTTL: time.Minute, ReapInterval: time.Minute},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, LoadLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{Exporter: "stdout", SampleRatio: 1},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.MaxMessageSize != 150*1024*1024 {
		t.Errorf("Server.MaxMessageSize = %d, want %d", cfg.Server.MaxMessageSize, 150*1024*1024)
	}
	if cfg.Load.FetchTimeout != 300*time.Second {
		t.Errorf("Load.FetchTimeout = %v, want 300s", cfg.Load.FetchTimeout)
	}
	if cfg.Load.MaxConcurrent != 5 {
		t.Errorf("Load.MaxConcurrent = %d, want %d", cfg.Load.MaxConcurrent, 5)
	}
	if cfg.Widget.PreviewRows != 20 {
		t.Errorf("Widget.PreviewRows = %d, want %d", cfg.Widget.PreviewRows, 20)
	}
	if cfg.Session.CookieName != "dataviz_session" {
		t.Errorf("Session.CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 1 {
		t.Errorf("Tracing = %+v, want disabled with ratio 1", cfg.Tracing)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOAD_MAX_CONCURRENT", "10")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Load.MaxConcurrent != 10 {
		t.Errorf("Load.MaxConcurrent = %d, want %d", cfg.Load.MaxConcurrent, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Tracing.SampleRatio != 0.25 {
		t.Errorf("Tracing.SampleRatio = %v, want 0.25", cfg.Tracing.SampleRatio)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 3000)
	}
}

func TestLoad_Duration(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOAD_FETCH_TIMEOUT", "45s")
	t.Setenv("SESSION_IDLE_TTL", "1h30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Load.FetchTimeout != 45*time.Second {
		t.Errorf("Load.FetchTimeout = %v, want 45s", cfg.Load.FetchTimeout)
	}
	if cfg.Session.IdleTTL != 90*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 1h30m", cfg.Session.IdleTTL)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOAD_FETCH_TIMEOUT", "five minutes")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for malformed duration")
	}
	if !strings.Contains(err.Error(), "LOAD_FETCH_TIMEOUT") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.1.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.1.1"}
	if !reflect.DeepEqual(cfg.Security.TrustedProxies, want) {
		t.Errorf("TrustedProxies = %v, want %v", cfg.Security.TrustedProxies, want)
	}
}

func TestPopulate(t *testing.T) {
	env := map[string]string{"DV_PRIMARY": "", "DV_ALT": "7", "DV_LIST": " a, ,b "}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	var target struct {
		Count int           `env:"DV_PRIMARY,DV_ALT" default:"1"`
		Wait  time.Duration `env:"DV_WAIT" default:"2s"`
		List  []string      `env:"DV_LIST"`
		Skip  string
	}

	if err := populate(reflect.ValueOf(&target).Elem(), lookup); err != nil {
		t.Fatalf("populate() error = %v", err)
	}
	if target.Count != 7 {
		t.Errorf("Count = %d, want 7 from the alternate name", target.Count)
	}
	if target.Wait != 2*time.Second {
		t.Errorf("Wait = %v, want default 2s", target.Wait)
	}
	if !reflect.DeepEqual(target.List, []string{"a", "b"}) {
		t.Errorf("List = %q, want [a b]", target.List)
	}
}

func TestPopulate_UnsupportedType(t *testing.T) {
	var target struct {
		Ratio float32 `env:"DV_RATIO" default:"0.5"`
	}

	err := populate(reflect.ValueOf(&target).Elem(), func(string) (string, bool) { return "", false })
	if err == nil || !strings.Contains(err.Error(), "DV_RATIO") {
		t.Errorf("populate() = %v, want error naming DV_RATIO", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"message size", func(c *Config) { c.Server.MaxMessageSize = 0 }, "SERVER_MAX_MESSAGE_SIZE"},
		{"fetch timeout", func(c *Config) { c.Load.FetchTimeout = 0 }, "LOAD_FETCH_TIMEOUT"},
		{"concurrency", func(c *Config) { c.Load.MaxConcurrent = 0 }, "LOAD_MAX_CONCURRENT"},
		{"theme", func(c *Config) { c.Widget.Theme = "neon" }, "WIDGET_THEME"},
		{"cookie", func(c *Config) { c.Session.CookieName = "" }, "SESSION_COOKIE_NAME"},
		{"rate", func(c *Config) { c.Rate.LoadLimit = 0 }, "RATE_LIMIT_LOAD"},
		{"rate disabled", func(c *Config) { c.Rate = RateLimitConfig{} }, ""},
		{"proxy", func(c *Config) { c.Security.TrustedProxies = []string{"not-an-ip"} }, "TRUSTED_PROXIES"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "TRACING_EXPORTER"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "TRACING_SAMPLE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"::1", 443, "[::1]:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()
	str := cfg.String()
	for _, want := range []string{"MaxConcurrent: 1", `Level: "info"`} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %s, missing %s", str, want)
		}
	}
}
