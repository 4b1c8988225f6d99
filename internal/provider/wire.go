package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"textgen-bridge/internal/models"
)

const (
	contentTypeJSON = "application/json"

	// UserAgent is sent on every upstream request.
	UserAgent = "textgen-bridge/0.1"

	maxResponseBytes = 8 << 20
)

// ErrResponseTooLarge is returned when an upstream body exceeds the read cap.
var ErrResponseTooLarge = errors.New("response body too large")

// HTTPDoer is the transport capability wire clients call through.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawResponse is an uninterpreted upstream answer.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// PostJSON sends body to url and returns the raw status and body. Per-call
// options are applied on top of headers. Transport failures are returned
// as-is; the status code is not interpreted. Bodies over the read cap fail
// with ErrResponseTooLarge instead of being truncated.
func PostJSON(ctx context.Context, doer HTTPDoer, url string, headers map[string]string, body []byte, opts models.ClientOptions) (RawResponse, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return RawResponse{}, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return RawResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return RawResponse{}, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxResponseBytes {
		return RawResponse{}, fmt.Errorf("%w: status %d, limit %d bytes", ErrResponseTooLarge, resp.StatusCode, maxResponseBytes)
	}

	return RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
