package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/consoleauth/internal/rate"
	"github.com/MrEthical07/consoleauth/password"
)

// Config defines the dev backend configuration.
type Config struct {
	// Prefix is mounted in front of every API route, e.g. "/api".
	Prefix string

	SessionTTL     time.Duration
	SessionPrefix  string
	StrictSessions bool

	CookieName   string
	SecureCookie bool

	// LoginStatus is the HTTP status of a successful login.
	LoginStatus int
	// DefaultRole is assigned to self-registered accounts.
	DefaultRole string

	MaxBodyBytes       int64
	EnableDevEndpoints bool

	Rate     rate.Config
	Password password.Config
}

// DefaultConfig returns the configuration used by the dev server.
func DefaultConfig() Config {
	return Config{
		Prefix:             "/api",
		SessionTTL:         7 * 24 * time.Hour,
		SessionPrefix:      "console",
		StrictSessions:     true,
		CookieName:         "refresh_token",
		SecureCookie:       false,
		LoginStatus:        http.StatusCreated,
		DefaultRole:        "viewer",
		MaxBodyBytes:       1 << 20,
		EnableDevEndpoints: true,
		Rate:               rate.DefaultConfig(),
		Password:           password.DefaultConfig(),
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Prefix != "" && (!strings.HasPrefix(c.Prefix, "/") || strings.HasSuffix(c.Prefix, "/")) {
		return errors.New("Prefix must start with '/' and not end with '/'")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SessionTTL must be > 0")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return errors.New("CookieName is required")
	}
	if c.LoginStatus < 200 || c.LoginStatus > 299 {
		return errors.New("LoginStatus must be a 2xx status")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MaxBodyBytes must be > 0")
	}
	return c.Password.Validate()
}
