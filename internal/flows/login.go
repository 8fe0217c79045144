package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInput
	LoginFailureTransport
	LoginFailureRejected
	LoginFailureDecode
)

// LoginInput is the credential pair posted to the login endpoint.
type LoginInput struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// LoginResult carries the issued access token or failure metadata.
type LoginResult struct {
	Failure     LoginFailureKind
	Err         error
	Status      int
	Message     string
	AccessToken string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	URL          string
	NewRequestID func() string
	Send         Sender
}

// RunLogin posts credentials without bearer attachment and without any
// refresh-on-401 handling: a rejected login is an answer, not an expiry.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	if in.Account == "" || in.Password == "" {
		return LoginResult{
			Failure: LoginFailureInput,
			Err:     errors.New("account and password are required"),
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return LoginResult{Failure: LoginFailureInput, Err: err}
	}

	out := Outgoing{
		Method: http.MethodPost,
		URL:    deps.URL,
		Header: http.Header{
			"Accept":       []string{"application/json"},
			"Content-Type": []string{"application/json"},
		},
		Body: body,
	}
	if deps.NewRequestID != nil {
		out.RequestID = deps.NewRequestID()
	}

	reply, err := deps.Send(ctx, out)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureTransport,
			Err:     err,
			Message: ErrorMessage(Reply{}, err),
		}
	}
	if reply.Status < 200 || reply.Status > 299 {
		msg := ErrorMessage(reply, nil)
		return LoginResult{
			Failure: LoginFailureRejected,
			Err:     fmt.Errorf("login rejected: %s", msg),
			Status:  reply.Status,
			Message: msg,
		}
	}

	token, err := AccessTokenFromBody(reply.Body)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureDecode,
			Err:     err,
			Status:  reply.Status,
			Message: ErrorMessage(reply, err),
		}
	}

	return LoginResult{
		Failure:     LoginFailureNone,
		Status:      reply.Status,
		AccessToken: token,
	}
}
