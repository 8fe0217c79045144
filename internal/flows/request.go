package flows

import (
	"context"
	"net/http"
)

// RequestFailureKind classifies request flow failures for root-level mapping.
type RequestFailureKind int

const (
	RequestFailureNone RequestFailureKind = iota
	RequestFailureTransport
	RequestFailureStatus
	RequestFailureReplayUnauthorized
	RequestFailureRefresh
	RequestFailureCanceled
)

// RequestResult carries the final reply or failure metadata.
type RequestResult struct {
	Failure RequestFailureKind
	Err     error
	// Reply is the last reply received. On RequestFailureRefresh it is the
	// original 401.
	Reply Reply
	// Replayed reports that the request was re-issued after a refresh.
	Replayed bool
	// Proactive reports that a refresh ran before the first send.
	Proactive bool
	// ReusedToken reports that the replay used a token obtained by another
	// caller instead of starting a refresh.
	ReusedToken bool
	// Unauthorized reports that the first attempt drew a 401.
	Unauthorized bool
}

// RequestDeps captures request flow dependencies.
type RequestDeps struct {
	Token func() string
	Send  Sender
	// Refresh obtains a new token to replace stale, the token the request
	// was sent with.
	Refresh func(ctx context.Context, stale string) (string, error)
	// ExpiresSoon, when set, triggers a refresh before sending a token that
	// is about to expire.
	ExpiresSoon func(token string) bool
	// ReuseNewerToken replays with the currently held token, without a
	// refresh, when it differs from the token that drew the 401.
	ReuseNewerToken bool
}

// RunRequest sends out with the current bearer token and, on the first 401,
// refreshes once and replays once.
func RunRequest(ctx context.Context, out Outgoing, deps RequestDeps) RequestResult {
	var result RequestResult

	token := deps.Token()
	if token != "" && !out.Retried && deps.ExpiresSoon != nil && deps.ExpiresSoon(token) {
		result.Proactive = true
		fresh, err := deps.Refresh(ctx, token)
		if err != nil || fresh == "" {
			// nothing was sent, so there is no reply to report
			return refreshFailure(ctx, result, err, Reply{})
		}
		token = fresh
	}

	reply, err := deps.Send(ctx, out.WithBearer(token))
	if err != nil {
		result.Failure = RequestFailureTransport
		result.Err = err
		if ctx.Err() != nil {
			result.Failure = RequestFailureCanceled
		}
		return result
	}
	if reply.Status != http.StatusUnauthorized {
		return classify(result, reply)
	}
	if out.Retried {
		result.Failure = RequestFailureReplayUnauthorized
		result.Reply = reply
		return result
	}

	result.Unauthorized = true
	retry := out.WithRetry()
	next := ""
	if current := deps.Token(); deps.ReuseNewerToken && current != "" && current != token {
		next = current
		result.ReusedToken = true
	} else {
		fresh, err := deps.Refresh(ctx, token)
		if err != nil || fresh == "" {
			return refreshFailure(ctx, result, err, reply)
		}
		next = fresh
	}

	result.Replayed = true
	replay, err := deps.Send(ctx, retry.WithBearer(next))
	if err != nil {
		result.Failure = RequestFailureTransport
		result.Err = err
		if ctx.Err() != nil {
			result.Failure = RequestFailureCanceled
		}
		return result
	}
	if replay.Status == http.StatusUnauthorized {
		result.Failure = RequestFailureReplayUnauthorized
		result.Reply = replay
		return result
	}
	return classify(result, replay)
}

func classify(result RequestResult, reply Reply) RequestResult {
	result.Reply = reply
	if reply.Status >= http.StatusBadRequest {
		result.Failure = RequestFailureStatus
	}
	return result
}

func refreshFailure(ctx context.Context, result RequestResult, err error, reply Reply) RequestResult {
	result.Reply = reply
	result.Err = err
	if ctx.Err() != nil {
		result.Failure = RequestFailureCanceled
		if result.Err == nil {
			result.Err = ctx.Err()
		}
		return result
	}
	result.Failure = RequestFailureRefresh
	return result
}
