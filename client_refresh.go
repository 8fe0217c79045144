package consoleauth

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/MrEthical07/consoleauth/internal/flows"
)

const refreshKey = "access-token"

// refreshOutcome is shared by every caller of one refresh operation.
type refreshOutcome struct {
	token string
	err   error
	// stale is the token held when the operation started.
	stale string
	// expired guards the terminal handler so it fires once per failed
	// operation no matter how many requests it terminates.
	expired *sync.Once
}

// Refresh exchanges the session cookie for a new access token.
//
// Concurrent calls share one refresh operation and observe the same
// outcome. On success the token is stored and returned; on any failure the
// held token is cleared and the error wraps ErrRefreshFailed. Refresh
// failures are never retried. If ctx is done before the shared operation
// settles, Refresh returns ctx.Err() and the operation continues for the
// remaining callers.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	if !c.ready() {
		return "", ErrClientNotReady
	}
	outcome, err := c.awaitRefresh(ctx)
	if err != nil {
		return "", err
	}
	if outcome.err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, outcome.err)
	}
	return outcome.token, nil
}

// Restore tries to resume a previous session at startup by refreshing from
// the session cookie. A failure leaves the client logged out without
// invoking the auth-expired handler.
func (c *Client) Restore(ctx context.Context) error {
	_, err := c.Refresh(ctx)
	return err
}

// awaitRefresh starts the refresh operation or joins the one in flight.
func (c *Client) awaitRefresh(ctx context.Context) (*refreshOutcome, error) {
	leader := false
	ch := c.refreshGroup.DoChan(refreshKey, func() (any, error) {
		leader = true
		return c.runRefresh(ctx), nil
	})

	select {
	case res := <-ch:
		if !leader {
			c.metricInc(MetricRefreshShared)
			c.emitAudit(ctx, AuditEvent{EventType: AuditRefreshJoined, Success: true})
		}
		return res.Val.(*refreshOutcome), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runRefresh is the body of one shared refresh operation. It is detached
// from the starting caller's cancellation and bounded by Refresh.Timeout.
func (c *Client) runRefresh(parent context.Context) *refreshOutcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.config.Refresh.Timeout)
	defer cancel()

	stale := c.Token()
	res := flows.RunRefresh(ctx, c.deps.Refresh)
	if res.Failure != flows.RefreshFailureNone {
		c.ClearToken()
		c.metricInc(MetricRefreshFailure)
		c.emitAudit(context.WithoutCancel(ctx), AuditEvent{
			EventType: AuditRefreshFailed,
			Status:    res.Status,
			Success:   false,
			Error:     res.Err.Error(),
			Metadata:  map[string]string{"reason": refreshFailureReason(res.Failure)},
		})
		outcome := &refreshOutcome{err: res.Err, stale: stale, expired: new(sync.Once)}
		c.lastFailure.Store(outcome)
		return outcome
	}

	c.lastFailure.Store(nil)
	c.SetToken(res.AccessToken)
	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(context.WithoutCancel(ctx), AuditEvent{
		EventType: AuditRefresh,
		Status:    res.Status,
		Success:   true,
	})
	return &refreshOutcome{token: res.AccessToken}
}

// failedFor returns the failed operation that already tried to replace
// stale, when the client has held no token since. A request that drew a 401
// after that operation settled joins its outcome instead of refreshing again.
func (c *Client) failedFor(stale string) *refreshOutcome {
	f := c.lastFailure.Load()
	if f == nil || stale == "" || f.stale != stale || c.Token() != "" {
		return nil
	}
	return f
}

// fireAuthExpired runs the terminal handler for a failed refresh operation.
func (c *Client) fireAuthExpired(ctx context.Context, outcome *refreshOutcome) {
	if outcome == nil || outcome.expired == nil {
		return
	}
	outcome.expired.Do(func() {
		c.metricInc(MetricAuthExpired)
		c.emitAudit(context.WithoutCancel(ctx), AuditEvent{
			EventType: AuditAuthExpired,
			Success:   false,
			Error:     outcome.err.Error(),
		})
		if c.onAuthExpired != nil {
			c.onAuthExpired(fmt.Errorf("%w: %w", ErrSessionExpired, outcome.err))
		}
	})
}

func refreshFailureReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureTransport:
		return "transport"
	case flows.RefreshFailureStatus:
		return "status"
	case flows.RefreshFailureDecode:
		return "decode"
	default:
		return strconv.Itoa(int(kind))
	}
}
