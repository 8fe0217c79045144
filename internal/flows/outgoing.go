package flows

import (
	"context"
	"net/http"
)

// Outgoing is an immutable description of one HTTP call. Copies are produced
// with WithBearer / WithRetry; the receiver is never modified.
type Outgoing struct {
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
	RequestID string
	// Retried is set only on the single replay issued after a refresh.
	Retried bool
}

// Reply is a fully read HTTP response.
type Reply struct {
	Status int
	Header http.Header
	Body   []byte
}

// Sender performs one round trip. Implementations must read and close the
// response body before returning.
type Sender func(ctx context.Context, out Outgoing) (Reply, error)

// WithBearer returns a copy carrying "Authorization: Bearer <token>".
// An empty token removes any Authorization header instead.
func (o Outgoing) WithBearer(token string) Outgoing {
	out := o
	out.Header = o.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if token == "" {
		out.Header.Del("Authorization")
		return out
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// WithRetry returns a copy with the retry marker set.
func (o Outgoing) WithRetry() Outgoing {
	out := o
	out.Header = o.Header.Clone()
	out.Retried = true
	return out
}
