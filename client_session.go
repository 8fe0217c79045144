package consoleauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/consoleauth/internal/flows"
)

// Login exchanges credentials for an access token and stores it. The server
// sets the refresh cookie on the same response.
//
// Login bypasses the refresh-on-401 path: rejected credentials are returned
// as a *RequestError wrapping ErrLoginFailed.
func (c *Client) Login(ctx context.Context, account, password string) error {
	if !c.ready() {
		return ErrClientNotReady
	}

	res := flows.RunLogin(ctx, flows.LoginInput{Account: account, Password: password}, c.deps.Login)
	if res.Failure == flows.LoginFailureNone {
		c.SetToken(res.AccessToken)
		c.metricInc(MetricLoginSuccess)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditLogin,
			Status:    res.Status,
			Success:   true,
			Metadata:  map[string]string{"account": account},
		})
		return nil
	}

	c.metricInc(MetricLoginFailure)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginFailed,
		Status:    res.Status,
		Success:   false,
		Error:     res.Message,
		Metadata:  map[string]string{"account": account},
	})

	if res.Failure == flows.LoginFailureInput {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, res.Err)
	}
	return &RequestError{
		Method:  http.MethodPost,
		Path:    c.config.Endpoint.LoginPath,
		Status:  res.Status,
		Message: res.Message,
		Err:     ErrLoginFailed,
		Cause:   res.Err,
	}
}

// Logout asks the server to revoke the session, then clears the token. The
// token is cleared even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	if !c.ready() {
		return ErrClientNotReady
	}

	res := flows.RunLogout(ctx, c.deps.Logout)
	c.metricInc(MetricLogout)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		Status:    res.Status,
		Success:   res.Err == nil,
		Error:     errorString(res.Err),
	})
	if res.Err == nil {
		return nil
	}

	sentinel := ErrHTTPStatus
	if res.Status == 0 {
		sentinel = ErrTransport
	}
	return &RequestError{
		Method:  http.MethodPost,
		Path:    c.config.Endpoint.LogoutPath,
		Status:  res.Status,
		Message: res.Err.Error(),
		Err:     sentinel,
		Cause:   res.Err,
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
