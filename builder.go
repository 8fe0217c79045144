package consoleauth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/consoleauth/internal/flows"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// Builder assembles a Client.
//
// Builder instances are intended to be configured during initialization and then discarded after Build.
type Builder struct {
	config     Config
	httpClient *http.Client

	onAuthExpired func(reason error)
	onError       func(message string)
	auditSink     AuditSink
	requestID     func() string
	now           func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from DefaultConfig. It performs no I/O.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration; it is validated by Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Endpoint.BaseURL = baseURL
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// The injected client is used as-is: its Jar must carry the refresh cookie
// for refresh to work, and Transport settings are not applied to it.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithAuthExpiredHandler describes the withauthexpiredhandler operation and its observable behavior.
//
// fn runs once per failed refresh operation that terminated a request,
// after the token has been cleared. It is the place to redirect to a login
// entry point.
func (b *Builder) WithAuthExpiredHandler(fn func(reason error)) *Builder {
	b.onAuthExpired = fn
	return b
}

// WithErrorHandler describes the witherrorhandler operation and its observable behavior.
//
// fn receives a human-readable message for every failed Do call whose
// Request does not set SuppressErrorNotice.
func (b *Builder) WithErrorHandler(fn func(message string)) *Builder {
	b.onError = fn
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRequestIDGenerator describes the withrequestidgenerator operation and its observable behavior.
func (b *Builder) WithRequestIDGenerator(fn func() string) *Builder {
	b.requestID = fn
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration is invalid. A Builder can
// be built once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(cfg.Endpoint.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Transport.Timeout}
		if cfg.Transport.UseCookieJar {
			jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
			if err != nil {
				return nil, fmt.Errorf("cookie jar: %w", err)
			}
			hc.Jar = jar
		}
	}

	c := &Client{
		config:        cfg,
		base:          base,
		http:          hc,
		onAuthExpired: b.onAuthExpired,
		onError:       b.onError,
		newRequestID:  b.requestID,
		now:           b.now,
	}
	if c.newRequestID == nil {
		c.newRequestID = uuid.NewString
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	c.metrics = NewMetrics(cfg.Metrics)

	c.deps = flows.Deps{
		Refresh: flows.RefreshDeps{
			URL:          c.endpoint(cfg.Endpoint.RefreshPath),
			NewRequestID: c.newRequestID,
			Send:         c.send,
		},
		Login: flows.LoginDeps{
			URL:          c.endpoint(cfg.Endpoint.LoginPath),
			NewRequestID: c.newRequestID,
			Send:         c.send,
		},
		Logout: flows.LogoutDeps{
			URL:          c.endpoint(cfg.Endpoint.LogoutPath),
			Token:        c.Token,
			NewRequestID: c.newRequestID,
			Send:         c.send,
			Clear:        c.ClearToken,
		},
		Request: flows.RequestDeps{
			Token:           c.Token,
			Send:            c.send,
			ReuseNewerToken: cfg.Refresh.ReuseNewerToken,
		},
	}
	if cfg.Refresh.ProactiveWindow > 0 {
		c.deps.Request.ExpiresSoon = c.expiresSoon
	}

	b.built = true

	return c, nil
}
