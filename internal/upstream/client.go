// Package upstream contains the typed HTTP clients for the commerce API the
// gateway orchestrates: identity, catalog, cart store, coupon validator and
// order submission. The API is a black box; this package owns the wire
// contract and the mapping of its failures onto the domain error taxonomy.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nattapol/talad/internal/domain"
)

// Client is the shared transport for all commerce API calls.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the commerce API at baseURL. The timeout bounds
// every call end-to-end so a stalled upstream can never pin a session's busy
// flag forever.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// doJSON issues a JSON request and decodes the response into out (when out is
// non-nil). A non-2xx status is mapped through decodeError; transport and
// parse failures become EUNAVAILABLE so callers know their state is unchanged
// and a retry is safe.
func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return domain.Internal(err, op, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.Internal(err, op, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Unavailable(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return domain.Unavailable(err, op)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return domain.Unavailable(fmt.Errorf("malformed response: %w", err), op)
		}
	}

	return nil
}

// errorPayload is the structured error shape the commerce API uses on 4xx.
type errorPayload struct {
	Error string `json:"error"`
}

// decodeError maps an upstream failure onto the domain taxonomy. Structured
// 4xx reasons pass through verbatim for display; unstructured bodies and all
// 5xx responses are treated as transient.
func decodeError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))

	var payload errorPayload
	reason := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		reason = strings.TrimSpace(payload.Error)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.Unauthorized(op, "authentication required")
	case resp.StatusCode == http.StatusNotFound && reason != "":
		return domain.Errorf(domain.ENOTFOUND, op, "%s", reason)
	case resp.StatusCode == http.StatusNotFound:
		return domain.Errorf(domain.ENOTFOUND, op, "not found")
	case resp.StatusCode == http.StatusConflict && reason != "":
		return domain.Errorf(domain.ECONFLICT, op, "%s", reason)
	case resp.StatusCode >= 400 && resp.StatusCode <= 499 && reason != "":
		return domain.Rejected(op, reason)
	default:
		// No structured reason to show; state unchanged, retry is safe.
		return domain.Unavailable(
			fmt.Errorf("upstream status %d: %s", resp.StatusCode, truncate(string(body), 200)),
			op,
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
