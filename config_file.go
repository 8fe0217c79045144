package consoleauth

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations spelled as strings ("10s").
type fileConfig struct {
	Endpoint *EndpointConfig `yaml:"endpoint"`
	Refresh  *struct {
		Timeout         string `yaml:"timeout"`
		ProactiveWindow string `yaml:"proactive_window"`
		ReuseNewerToken *bool  `yaml:"reuse_newer_token"`
	} `yaml:"refresh"`
	Transport *struct {
		Timeout         string `yaml:"timeout"`
		UseCookieJar    *bool  `yaml:"use_cookie_jar"`
		UserAgent       string `yaml:"user_agent"`
		RequestIDHeader string `yaml:"request_id_header"`
	} `yaml:"transport"`
	Audit   *AuditConfig   `yaml:"audit"`
	Metrics *MetricsConfig `yaml:"metrics"`
}

// LoadConfigFile reads a YAML configuration file and overlays it on the
// defaults. The result is validated before it is returned.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration bytes over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if fc.Endpoint != nil {
		if fc.Endpoint.BaseURL != "" {
			cfg.Endpoint.BaseURL = fc.Endpoint.BaseURL
		}
		if fc.Endpoint.LoginPath != "" {
			cfg.Endpoint.LoginPath = fc.Endpoint.LoginPath
		}
		if fc.Endpoint.RefreshPath != "" {
			cfg.Endpoint.RefreshPath = fc.Endpoint.RefreshPath
		}
		if fc.Endpoint.LogoutPath != "" {
			cfg.Endpoint.LogoutPath = fc.Endpoint.LogoutPath
		}
	}

	if r := fc.Refresh; r != nil {
		if err := setDuration(&cfg.Refresh.Timeout, r.Timeout, "refresh.timeout"); err != nil {
			return Config{}, err
		}
		if err := setDuration(&cfg.Refresh.ProactiveWindow, r.ProactiveWindow, "refresh.proactive_window"); err != nil {
			return Config{}, err
		}
		if r.ReuseNewerToken != nil {
			cfg.Refresh.ReuseNewerToken = *r.ReuseNewerToken
		}
	}

	if t := fc.Transport; t != nil {
		if err := setDuration(&cfg.Transport.Timeout, t.Timeout, "transport.timeout"); err != nil {
			return Config{}, err
		}
		if t.UseCookieJar != nil {
			cfg.Transport.UseCookieJar = *t.UseCookieJar
		}
		if t.UserAgent != "" {
			cfg.Transport.UserAgent = t.UserAgent
		}
		if t.RequestIDHeader != "" {
			cfg.Transport.RequestIDHeader = t.RequestIDHeader
		}
	}

	if fc.Audit != nil {
		cfg.Audit = *fc.Audit
	}
	if fc.Metrics != nil {
		cfg.Metrics = *fc.Metrics
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}
