package flows

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestRunRefreshExtractsToken(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusOK, Body: []byte(`{"code":200,"data":{"accessToken":"T2"}}`)}}}
	res := RunRefresh(context.Background(), RefreshDeps{
		URL:          "http://x/auth/refresh",
		NewRequestID: func() string { return "rid-1" },
		Send:         s.send,
	})
	if res.Failure != RefreshFailureNone || res.AccessToken != "T2" {
		t.Fatalf("unexpected result %+v", res)
	}
	call := s.calls[0]
	if call.Method != http.MethodPost || call.URL != "http://x/auth/refresh" || call.RequestID != "rid-1" {
		t.Fatalf("unexpected refresh call %+v", call)
	}
	if call.Header.Get("Authorization") != "" {
		t.Fatal("refresh must rely on the session cookie, not a bearer token")
	}
}

func TestRunRefreshFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		sender *recordingSender
		want   RefreshFailureKind
	}{
		{"transport", &recordingSender{errs: []error{errors.New("timeout")}}, RefreshFailureTransport},
		{"status", &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized}}}, RefreshFailureStatus},
		{"decode", &recordingSender{replies: []Reply{{Status: http.StatusOK, Body: []byte("nope")}}}, RefreshFailureDecode},
		{"empty", &recordingSender{replies: []Reply{{Status: http.StatusOK, Body: []byte(`{"data":{}}`)}}}, RefreshFailureDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := RunRefresh(context.Background(), RefreshDeps{URL: "http://x/auth/refresh", Send: tc.sender.send})
			if res.Failure != tc.want {
				t.Fatalf("expected %v, got %v (%v)", tc.want, res.Failure, res.Err)
			}
			if res.Err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunLoginPostsCredentials(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusCreated, Body: []byte(`{"data":{"accessToken":"T1"}}`)}}}
	res := RunLogin(context.Background(), LoginInput{Account: "admin", Password: "admin123456"}, LoginDeps{
		URL:  "http://x/auth/login",
		Send: s.send,
	})
	if res.Failure != LoginFailureNone || res.AccessToken != "T1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if string(s.calls[0].Body) != `{"account":"admin","password":"admin123456"}` {
		t.Fatalf("unexpected body %s", s.calls[0].Body)
	}
}

func TestRunLoginRejected(t *testing.T) {
	s := &recordingSender{replies: []Reply{{Status: http.StatusUnauthorized, Body: []byte(`{"message":"bad credentials"}`)}}}
	res := RunLogin(context.Background(), LoginInput{Account: "admin", Password: "wrong-password"}, LoginDeps{URL: "http://x", Send: s.send})
	if res.Failure != LoginFailureRejected || res.Message != "bad credentials" || res.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunLoginRequiresInput(t *testing.T) {
	res := RunLogin(context.Background(), LoginInput{}, LoginDeps{URL: "http://x", Send: func(context.Context, Outgoing) (Reply, error) {
		t.Fatal("send must not run")
		return Reply{}, nil
	}})
	if res.Failure != LoginFailureInput {
		t.Fatalf("expected input failure, got %v", res.Failure)
	}
}
