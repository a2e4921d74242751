package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryIndexHeader tags each attempt with its position in the failover
// sequence, starting at 0
const RetryIndexHeader = "X-Retry-Index"

// Transport sends requests against an ordered list of candidate base
// URLs. A connection-level failure (no HTTP response at all) replays
// the identical request against the next candidate; any received HTTP
// status, success or error, ends the failover. When every candidate
// fails at the connection level the first failure is surfaced.
type Transport struct {
	candidates []string
	override   *ServerURLStore
	httpClient *http.Client
}

// NewTransport builds a transport over the candidate addresses.
// Addresses may arrive as a comma-separated string via ParseCandidates.
// The override store is optional.
func NewTransport(candidates []string, override *ServerURLStore, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cleaned := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimRight(strings.TrimSpace(c), "/")
		if c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return &Transport{
		candidates: cleaned,
		override:   override,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ParseCandidates splits a comma-separated address list
func ParseCandidates(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// bases returns the effective address order for one request. A
// persisted override is consulted fresh each time and takes precedence.
func (t *Transport) bases() []string {
	if t.override != nil {
		if manual := t.override.Get(); manual != "" {
			return []string{manual}
		}
	}
	return t.candidates
}

// Do sends the request against each candidate until one yields an HTTP
// response. The body is buffered so it can be replayed verbatim.
func (t *Transport) Do(ctx context.Context, method, path string, body []byte, headers http.Header) (*http.Response, error) {
	bases := t.bases()
	if len(bases) == 0 {
		return nil, fmt.Errorf("no server addresses configured")
	}

	var firstErr error
	for i, base := range bases {
		req, err := http.NewRequestWithContext(ctx, method, base+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		for key, values := range headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		req.Header.Set(RetryIndexHeader, strconv.Itoa(i))

		resp, err := t.httpClient.Do(req)
		if err == nil {
			// Any HTTP status ends failover, including error statuses.
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("all %d server addresses unreachable: %w", len(bases), firstErr)
}

// readBody drains and closes a response body
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
