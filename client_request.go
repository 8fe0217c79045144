package consoleauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/consoleauth/internal/flows"
)

const sessionExpiredMessage = "session expired, please log in again"

// Do sends req with the held access token.
//
// A first 401 triggers one shared refresh and one replay of the same
// request with the new token; the replay's outcome is returned as is. Any
// other failure is returned as a *RequestError without refreshing. Responses
// below 400 are returned untouched, including business error codes carried
// in a 2xx body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}

	start := time.Now()
	defer func() {
		c.metrics.Observe(MetricRequestLatency, time.Since(start))
	}()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		c.metricInc(MetricRequestFailure)
		rerr := &RequestError{
			Method:  method,
			Path:    req.Path,
			Message: err.Error(),
			Err:     ErrInvalidRequest,
			Cause:   err,
		}
		c.notifyError(req, rerr.Message)
		return nil, rerr
	}

	out := flows.Outgoing{
		Method:    method,
		URL:       target,
		Header:    req.Header.Clone(),
		RequestID: c.newRequestID(),
	}
	if req.Body != nil {
		out.Body = append([]byte(nil), req.Body...)
	}

	var failed *refreshOutcome
	deps := c.deps.Request
	deps.Refresh = func(ctx context.Context, stale string) (string, error) {
		if f := c.failedFor(stale); f != nil {
			c.metricInc(MetricRefreshShared)
			failed = f
			return "", f.err
		}
		outcome, err := c.awaitRefresh(ctx)
		if err != nil {
			return "", err
		}
		if outcome.err != nil {
			failed = outcome
			return "", outcome.err
		}
		return outcome.token, nil
	}

	result := flows.RunRequest(ctx, out, deps)
	if result.Proactive {
		c.metricInc(MetricProactiveRefresh)
	}
	if result.Unauthorized {
		c.metricInc(MetricUnauthorized)
	}
	if result.ReusedToken {
		c.metricInc(MetricTokenReused)
	}
	if result.Replayed {
		c.metricInc(MetricReplay)
	}

	resp := responseFromReply(result.Reply, out.RequestID)
	if result.Failure == flows.RequestFailureNone {
		c.metricInc(MetricRequestSuccess)
		return resp, nil
	}

	c.metricInc(MetricRequestFailure)
	rerr := &RequestError{
		Method: method,
		Path:   req.Path,
		Cause:  result.Err,
	}

	switch result.Failure {
	case flows.RequestFailureCanceled:
		rerr.Err = ErrTransport
		rerr.Message = flows.ErrorMessage(flows.Reply{}, result.Err)
		return nil, rerr

	case flows.RequestFailureTransport:
		c.metricInc(MetricTransportError)
		rerr.Err = ErrTransport
		rerr.Message = flows.ErrorMessage(flows.Reply{}, result.Err)

	case flows.RequestFailureStatus:
		rerr.Err = ErrHTTPStatus
		rerr.Status = result.Reply.Status
		rerr.Message = flows.ErrorMessage(result.Reply, nil)
		rerr.Response = resp

	case flows.RequestFailureReplayUnauthorized:
		c.metricInc(MetricReplayUnauthorized)
		rerr.Err = ErrUnauthorized
		rerr.Status = http.StatusUnauthorized
		rerr.Message = flows.ErrorMessage(result.Reply, nil)
		rerr.Response = resp
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditReplayUnauthorized,
			RequestID: out.RequestID,
			Method:    method,
			Path:      req.Path,
			Status:    http.StatusUnauthorized,
		})

	case flows.RequestFailureRefresh:
		rerr.Err = ErrSessionExpired
		rerr.Status = http.StatusUnauthorized
		rerr.Message = sessionExpiredMessage
		rerr.Response = resp
		c.fireAuthExpired(ctx, failed)
	}

	c.notifyError(req, rerr.Message)
	return nil, rerr
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// PostJSON issues a POST request with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*Response, error) {
	req, err := NewJSONRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query})
}

func responseFromReply(reply flows.Reply, requestID string) *Response {
	if reply.Status == 0 {
		return nil
	}
	return &Response{
		Status:    reply.Status,
		Header:    reply.Header,
		Body:      reply.Body,
		RequestID: requestID,
	}
}
