package consoleauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one call made through Client.Do. Path is relative to
// the configured base URL. The zero Method means GET.
//
// Do never modifies a Request; the same value may be reused.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// SuppressErrorNotice skips the client's error handler for this call.
	// The error is still returned.
	SuppressErrorNotice bool
}

// NewJSONRequest encodes body as JSON and sets the Content-Type header.
func NewJSONRequest(method, path string, body any) (Request, error) {
	req := Request{Method: method, Path: path, Header: make(http.Header)}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Request{}, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		req.Body = data
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// RequestID is the correlation ID sent with the request that produced
	// this response.
	RequestID string
}

// Envelope is the backend's standard reply wrapper.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Envelope decodes the response body as an Envelope.
func (r *Response) Envelope() (Envelope, error) {
	var env Envelope
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Decode unmarshals the envelope's data field into v. A missing or null
// data field leaves v untouched.
func (r *Response) Decode(v any) error {
	env, err := r.Envelope()
	if err != nil {
		return err
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
