package flows

import (
	"context"
	"fmt"
	"net/http"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureTransport
	RefreshFailureStatus
	RefreshFailureDecode
)

// RefreshResult carries either the new access token or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	Status      int
	AccessToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	URL          string
	NewRequestID func() string
	Send         Sender
}

// RunRefresh exchanges the implicit session credential (the refresh cookie the
// Sender's transport attaches) for a new access token. It never retries.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	out := Outgoing{
		Method: http.MethodPost,
		URL:    deps.URL,
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	if deps.NewRequestID != nil {
		out.RequestID = deps.NewRequestID()
	}

	reply, err := deps.Send(ctx, out)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureTransport,
			Err:     err,
		}
	}
	if reply.Status < 200 || reply.Status > 299 {
		return RefreshResult{
			Failure: RefreshFailureStatus,
			Err:     fmt.Errorf("refresh endpoint: %s", ErrorMessage(reply, nil)),
			Status:  reply.Status,
		}
	}

	token, err := AccessTokenFromBody(reply.Body)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
			Status:  reply.Status,
		}
	}

	return RefreshResult{
		Failure:     RefreshFailureNone,
		Status:      reply.Status,
		AccessToken: token,
	}
}
