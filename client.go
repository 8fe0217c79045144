package consoleauth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/consoleauth/internal/flows"
	"github.com/MrEthical07/consoleauth/jwt"
	"golang.org/x/sync/singleflight"
)

// Client is an HTTP client for the console backend that owns the access
// token. It attaches the token to every request, refreshes it once per
// burst of 401 responses, and replays each rejected request once.
//
// Client methods are safe for concurrent use after Build.
type Client struct {
	config Config
	base   *url.URL
	http   *http.Client

	mu    sync.RWMutex
	token string

	refreshGroup singleflight.Group
	lastFailure  atomic.Pointer[refreshOutcome]

	onAuthExpired func(reason error)
	onError       func(message string)
	newRequestID  func() string
	now           func() time.Time

	audit   *auditDispatcher
	metrics *Metrics
	deps    flows.Deps

	closed atomic.Bool
}

// SetToken replaces the held access token. An empty token means none.
func (c *Client) SetToken(token string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the held access token, or "" when there is none.
func (c *Client) Token() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ClearToken drops the held access token. It is idempotent.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// HasToken reports whether an access token is held.
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

// Config returns a copy of the active configuration.
func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return cloneConfig(c.config)
}

// Close flushes the audit dispatcher. Calls made after Close fail with
// ErrClientNotReady.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closed.Store(true)
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) ready() bool {
	return c != nil && !c.closed.Load()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	c.audit.Emit(ctx, event)
}

func (c *Client) notifyError(req Request, message string) {
	if c.onError == nil || req.SuppressErrorNotice {
		return
	}
	c.onError(message)
}

func (c *Client) expiresSoon(token string) bool {
	return jwt.ExpiresWithin(token, c.config.Refresh.ProactiveWindow, c.now())
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// resolve joins a relative request path and query onto the base URL.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("path %q must be relative to the base url", path)
	}

	u := *c.base
	p := ref.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.Path = strings.TrimRight(c.base.Path, "/") + p
	u.RawPath = ""

	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// send performs one round trip and reads the whole body.
func (c *Client) send(ctx context.Context, out flows.Outgoing) (flows.Reply, error) {
	var body io.Reader
	if out.Body != nil {
		body = bytes.NewReader(out.Body)
	}
	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL, body)
	if err != nil {
		return flows.Reply{}, err
	}
	for k, vs := range out.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if out.RequestID != "" {
		req.Header.Set(c.config.Transport.RequestIDHeader, out.RequestID)
	}
	if ua := c.config.Transport.UserAgent; ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return flows.Reply{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return flows.Reply{}, err
	}
	return flows.Reply{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}
