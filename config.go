package consoleauth

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines the client configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Transport TransportConfig `yaml:"transport"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig locates the console backend. Paths are joined to BaseURL.
type EndpointConfig struct {
	BaseURL     string `yaml:"base_url"`
	LoginPath   string `yaml:"login_path"`
	RefreshPath string `yaml:"refresh_path"`
	LogoutPath  string `yaml:"logout_path"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the single-flight token refresh.
type RefreshConfig struct {
	// Timeout bounds one shared refresh operation. Waiters are released with
	// a failure outcome when it fires.
	Timeout time.Duration `yaml:"timeout"`
	// ProactiveWindow refreshes before sending when the held JWT expires
	// within the window. Zero disables proactive refresh.
	ProactiveWindow time.Duration `yaml:"proactive_window"`
	// ReuseNewerToken replays a 401'd request with the token currently held
	// when it differs from the one the request was sent with.
	ReuseNewerToken bool `yaml:"reuse_newer_token"`
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig controls the HTTP client built when none is injected.
type TransportConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	UseCookieJar    bool          `yaml:"use_cookie_jar"`
	UserAgent       string        `yaml:"user_agent"`
	RequestIDHeader string        `yaml:"request_id_header"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Endpoint: EndpointConfig{
			BaseURL:     "http://127.0.0.1:5173/api",
			LoginPath:   "/auth/login",
			RefreshPath: "/auth/refresh",
			LogoutPath:  "/auth/logout",
		},
		Refresh: RefreshConfig{
			Timeout:         10 * time.Second,
			ProactiveWindow: 0,
			ReuseNewerToken: true,
		},
		Transport: TransportConfig{
			Timeout:         30 * time.Second,
			UseCookieJar:    true,
			UserAgent:       "consoleauth",
			RequestIDHeader: "X-Request-ID",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration used by New when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Endpoint
	if strings.TrimSpace(c.Endpoint.BaseURL) == "" {
		return errors.New("Endpoint BaseURL is required")
	}
	u, err := url.Parse(c.Endpoint.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Endpoint BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Endpoint BaseURL scheme must be http or https")
	}
	for _, p := range []string{c.Endpoint.LoginPath, c.Endpoint.RefreshPath, c.Endpoint.LogoutPath} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Endpoint paths must start with '/'")
		}
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}

	// Transport
	if c.Transport.Timeout < 0 {
		return errors.New("Transport Timeout must be >= 0")
	}
	if strings.TrimSpace(c.Transport.RequestIDHeader) == "" {
		return errors.New("Transport RequestIDHeader is required")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
