package flows

import (
	"context"
	"fmt"
	"net/http"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	URL          string
	Token        func() string
	NewRequestID func() string
	Send         Sender
	// Clear runs after the call regardless of its outcome.
	Clear func()
}

type LogoutResult struct {
	Status int
	Err    error
}

// RunLogout asks the server to revoke the session and then clears local
// state. A 401 here is not refreshed: the session is being discarded anyway.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	defer func() {
		if deps.Clear != nil {
			deps.Clear()
		}
	}()

	out := Outgoing{
		Method: http.MethodPost,
		URL:    deps.URL,
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	if deps.NewRequestID != nil {
		out.RequestID = deps.NewRequestID()
	}
	token := ""
	if deps.Token != nil {
		token = deps.Token()
	}

	reply, err := deps.Send(ctx, out.WithBearer(token))
	if err != nil {
		return LogoutResult{Err: err}
	}
	if reply.Status >= http.StatusBadRequest && reply.Status != http.StatusUnauthorized {
		return LogoutResult{
			Status: reply.Status,
			Err:    fmt.Errorf("logout endpoint: %s", ErrorMessage(reply, nil)),
		}
	}
	return LogoutResult{Status: reply.Status}
}
