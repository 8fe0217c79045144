package flows

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrEmptyToken is returned when a 2xx auth response carries no access token.
var ErrEmptyToken = errors.New("response carried no access token")

type tokenEnvelope struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

type messageEnvelope struct {
	Message string `json:"message"`
}

// AccessTokenFromBody extracts data.accessToken from an API envelope.
func AccessTokenFromBody(body []byte) (string, error) {
	var env tokenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	token := strings.TrimSpace(env.Data.AccessToken)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// ErrorMessage picks the human-readable failure text: the envelope message
// when the server sent one, then the transport error text, then "HTTP <status>".
func ErrorMessage(reply Reply, err error) string {
	if len(reply.Body) > 0 {
		var env messageEnvelope
		if json.Unmarshal(reply.Body, &env) == nil && strings.TrimSpace(env.Message) != "" {
			return env.Message
		}
	}
	if err != nil {
		return err.Error()
	}
	if reply.Status == 0 {
		return "request failed"
	}
	return "HTTP " + strconv.Itoa(reply.Status)
}
