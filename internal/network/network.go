// Package network performs the outbound side of a fetch.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huangsam/precache/internal/contract"
	"github.com/huangsam/precache/schema"
)

// maxBodyBytes caps a single response body read into memory.
const maxBodyBytes = 64 << 20

// ErrBodyTooLarge is returned when a response body exceeds maxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPFetcher implements the Fetcher interface with an http.Client.
type HTTPFetcher struct {
	client *http.Client
}

var _ contract.Fetcher = &HTTPFetcher{} // Compile-time check

// NewHTTPFetcher creates a fetcher whose requests give up after timeout.
// A zero timeout means no client-side limit beyond the context.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// NewHTTPFetcherWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch performs the request and reads the whole body.
// A non-2xx status is returned as a response, not an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, req schema.Request) (*schema.Response, error) {
	method := schema.NormalizeMethod(req.Method)
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("invalid request %s %s: %w", method, req.URL, err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s failed: %w", method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s failed: %w", req.URL, err)
	}
	if n > maxBodyBytes {
		return nil, fmt.Errorf("%s: %w", req.URL, ErrBodyTooLarge)
	}

	return &schema.Response{
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Header:     schema.CloneHeader(resp.Header),
		Body:       buf.Bytes(),
		Source:     schema.NetworkSource,
	}, nil
}
