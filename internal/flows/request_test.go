package flows

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

type recordingSender struct {
	mu      sync.Mutex
	calls   []Outgoing
	replies []Reply
	errs    []error
}

func (r *recordingSender) send(_ context.Context, out Outgoing) (Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.calls)
	r.calls = append(r.calls, out)
	var err error
	if idx < len(r.errs) {
		err = r.errs[idx]
	}
	if err != nil {
		return Reply{}, err
	}
	if idx < len(r.replies) {
		return r.replies[idx], nil
	}
	return Reply{Status: http.StatusOK}, nil
}

func staticToken(token string) func() string {
	return func() string { return token }
}

func TestRunRequestAttachesBearerWhenTokenPresent(t *testing.T) {
	s := &recordingSender{}
	res := RunRequest(context.Background(), Outgoing{Method: http.MethodGet, URL: "http://x/a"}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
	})
	if res.Failure != RequestFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if got := s.calls[0].Header.Get("Authorization"); got != "Bearer T1" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestRunRequestOmitsBearerWithoutToken(t *testing.T) {
	s := &recordingSender{}
	in := Outgoing{Method: http.MethodGet, URL: "http://x/a", Header: http.Header{"Authorization": []string{"Bearer stale"}}}
	_ = RunRequest(context.Background(), in, RequestDeps{Token: staticToken(""), Send: s.send})
	if got := s.calls[0].Header.Get("Authorization"); got != "" {
		t.Fatalf("expected no authorization header, got %q", got)
	}
	if in.Header.Get("Authorization") != "Bearer stale" {
		t.Fatal("caller header was mutated")
	}
}

func TestRunRequestRefreshesAndReplaysOnce(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}, {Status: http.StatusOK, Body: []byte("ok")}}}
	refreshes := 0
	res := RunRequest(context.Background(), Outgoing{Method: http.MethodGet, URL: "http://x/a", RequestID: "rid"}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
		Refresh: func(context.Context, string) (string, error) {
			refreshes++
			return "T2", nil
		},
	})
	if res.Failure != RequestFailureNone || !res.Replayed {
		t.Fatalf("expected replayed success, got %+v", res)
	}
	if refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", refreshes)
	}
	if len(s.calls) != 2 {
		t.Fatalf("expected two sends, got %d", len(s.calls))
	}
	replay := s.calls[1]
	if replay.Header.Get("Authorization") != "Bearer T2" || !replay.Retried {
		t.Fatalf("replay not marked or not re-authorized: %+v", replay)
	}
	if replay.URL != "http://x/a" || replay.Method != http.MethodGet || replay.RequestID != "rid" {
		t.Fatalf("replay diverged from original: %+v", replay)
	}
	if string(res.Reply.Body) != "ok" {
		t.Fatalf("expected replay body, got %q", res.Reply.Body)
	}
}

func TestRunRequestReplayUnauthorizedDoesNotRefreshAgain(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}, {Status: http.StatusUnauthorized}}}
	refreshes := 0
	res := RunRequest(context.Background(), Outgoing{Method: http.MethodGet, URL: "http://x/a"}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
		Refresh: func(context.Context, string) (string, error) {
			refreshes++
			return "T2", nil
		},
	})
	if res.Failure != RequestFailureReplayUnauthorized {
		t.Fatalf("expected replay unauthorized, got %v", res.Failure)
	}
	if refreshes != 1 || len(s.calls) != 2 {
		t.Fatalf("expected 1 refresh and 2 sends, got %d/%d", refreshes, len(s.calls))
	}
}

func TestRunRequestAlreadyRetriedPropagates401(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}}}
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a", Retried: true}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
		Refresh: func(context.Context, string) (string, error) {
			t.Fatal("refresh must not run for a retried request")
			return "", nil
		},
	})
	if res.Failure != RequestFailureReplayUnauthorized {
		t.Fatalf("expected replay unauthorized, got %v", res.Failure)
	}
}

func TestRunRequestRefreshFailureKeepsOriginalReply(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized, Body: []byte(`{"message":"expired"}`)}}}
	refreshErr := errors.New("refresh down")
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
		Token:   staticToken("T1"),
		Send:    s.send,
		Refresh: func(context.Context, string) (string, error) { return "", refreshErr },
	})
	if res.Failure != RequestFailureRefresh {
		t.Fatalf("expected refresh failure, got %v", res.Failure)
	}
	if !errors.Is(res.Err, refreshErr) {
		t.Fatalf("expected refresh error, got %v", res.Err)
	}
	if res.Reply.Status != http.StatusUnauthorized || len(s.calls) != 1 {
		t.Fatalf("expected original 401 and no replay, got %d with %d sends", res.Reply.Status, len(s.calls))
	}
}

func TestRunRequestPassesStaleTokenToRefresh(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}, {Status: http.StatusOK}}}
	var stale string
	_ = RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
		Refresh: func(_ context.Context, token string) (string, error) {
			stale = token
			return "T2", nil
		},
	})
	if stale != "T1" {
		t.Fatalf("expected refresh to receive the rejected token, got %q", stale)
	}
}

func TestRunRequestNon401PassThrough(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusForbidden, http.StatusInternalServerError} {
		s := &recordingSender{replies: []Reply{{Status: status}}}
		res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
			Token: staticToken("T1"),
			Send:  s.send,
			Refresh: func(context.Context, string) (string, error) {
				t.Fatalf("refresh must not run for status %d", status)
				return "", nil
			},
		})
		want := RequestFailureNone
		if status >= 400 {
			want = RequestFailureStatus
		}
		if res.Failure != want {
			t.Fatalf("status %d: expected %v, got %v", status, want, res.Failure)
		}
	}
}

func TestRunRequestTransportError(t *testing.T) {
	netErr := errors.New("connection refused")
	s := &recordingSender{errs: []error{netErr}}
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{Token: staticToken(""), Send: s.send})
	if res.Failure != RequestFailureTransport || !errors.Is(res.Err, netErr) {
		t.Fatalf("expected transport failure, got %+v", res)
	}
}

func TestRunRequestReusesNewerToken(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}, {Status: http.StatusOK}}}
	current := "T1"
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
		Token: func() string {
			tok := current
			current = "T2"
			return tok
		},
		Send:            s.send,
		ReuseNewerToken: true,
		Refresh: func(context.Context, string) (string, error) {
			t.Fatal("refresh must not run when a newer token is held")
			return "", nil
		},
	})
	if res.Failure != RequestFailureNone || !res.ReusedToken {
		t.Fatalf("expected reuse success, got %+v", res)
	}
	if got := s.calls[1].Header.Get("Authorization"); got != "Bearer T2" {
		t.Fatalf("expected replay with newer token, got %q", got)
	}
}

func TestRunRequestProactiveRefresh(t *testing.T) {
	s := &recordingSender{}
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
		Token:       staticToken("old"),
		Send:        s.send,
		ExpiresSoon: func(token string) bool { return token == "old" },
		Refresh:     func(context.Context, string) (string, error) { return "new", nil },
	})
	if res.Failure != RequestFailureNone || !res.Proactive {
		t.Fatalf("expected proactive success, got %+v", res)
	}
	if got := s.calls[0].Header.Get("Authorization"); got != "Bearer new" {
		t.Fatalf("expected refreshed bearer, got %q", got)
	}
}

func TestRunRequestProactiveRefreshFailureSendsNothing(t *testing.T) {
	s := &recordingSender{}
	res := RunRequest(context.Background(), Outgoing{URL: "http://x/a"}, RequestDeps{
		Token:       staticToken("old"),
		Send:        s.send,
		ExpiresSoon: func(string) bool { return true },
		Refresh: func(context.Context, string) (string, error) {
			return "", errors.New("refresh rejected")
		},
	})
	if res.Failure != RequestFailureRefresh {
		t.Fatalf("expected refresh failure, got %v", res.Failure)
	}
	if len(s.calls) != 0 {
		t.Fatalf("expected no send, got %d", len(s.calls))
	}
	if res.Reply.Status != 0 {
		t.Fatalf("expected no reply, got status %d", res.Reply.Status)
	}
}

func TestRunRequestCanceledWhileWaitingForRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}}}
	res := RunRequest(ctx, Outgoing{URL: "http://x/a"}, RequestDeps{
		Token: staticToken("T1"),
		Send:  s.send,
		Refresh: func(ctx context.Context, _ string) (string, error) {
			cancel()
			return "", ctx.Err()
		},
	})
	if res.Failure != RequestFailureCanceled {
		t.Fatalf("expected canceled, got %v", res.Failure)
	}
}

func TestErrorMessagePrecedence(t *testing.T) {
	if got := ErrorMessage(Reply{Status: 500, Body: []byte(`{"message":"boom"}`)}, nil); got != "boom" {
		t.Fatalf("expected envelope message, got %q", got)
	}
	if got := ErrorMessage(Reply{}, errors.New("dial tcp")); got != "dial tcp" {
		t.Fatalf("expected error text, got %q", got)
	}
	if got := ErrorMessage(Reply{Status: 502, Body: []byte("<html>")}, nil); got != "HTTP 502" {
		t.Fatalf("expected status text, got %q", got)
	}
}
