package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"faction-intel/internal/constants"

	"github.com/valyala/fasthttp"
)

// NetworkError is a transport failure: no usable response arrived.
type NetworkError struct {
	Service string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a well-formed error payload (or a non-200 status) returned by a
// remote service.
type APIError struct {
	Service string
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: API error %d: %s", e.Service, e.Code, e.Message)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

func newHTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		MaxConnsPerHost:     16,
		ReadTimeout:         constants.ExternalAPITimeout,
		WriteTimeout:        constants.ExternalAPITimeout,
		MaxIdleConnDuration: 1 * time.Minute,
	}
}

// errorEnvelope covers both error shapes seen upstream:
// {"error": {"code": 2, "error": "Incorrect key"}} and
// {"code": 6, "error": "Invalid API key"}.
type errorEnvelope struct {
	Code  int             `json:"code"`
	Error json.RawMessage `json:"error"`
}

func checkErrorPayload(service string, status int, body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	raw := bytes.TrimSpace(env.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	apiErr := &APIError{Service: service, Status: status, Code: env.Code}
	switch raw[0] {
	case '{':
		var inner struct {
			Code  int    `json:"code"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &inner); err == nil {
			apiErr.Code = inner.Code
			apiErr.Message = inner.Error
		}
	case '"':
		_ = json.Unmarshal(raw, &apiErr.Message)
	default:
		apiErr.Message = string(raw)
	}
	return apiErr
}

// get performs a GET and returns the body once the status and any error
// payload have been checked.
func get(ctx context.Context, client *fasthttp.Client, service, url string, headers map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.DoDeadline(req, resp, deadline); err != nil {
			return nil, &NetworkError{Service: service, Err: err}
		}
	} else {
		if err := client.Do(req, resp); err != nil {
			return nil, &NetworkError{Service: service, Err: err}
		}
	}

	// body is owned by resp, which is released on return
	body := append([]byte(nil), resp.Body()...)

	if err := checkErrorPayload(service, resp.StatusCode(), body); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &APIError{Service: service, Status: resp.StatusCode()}
	}
	return body, nil
}

func doRequest[T any](ctx context.Context, client *fasthttp.Client, service, url string, headers map[string]string) (*T, error) {
	body, err := get(ctx, client, service, url, headers)
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", service, err)
	}
	return &result, nil
}
