// Package moodle implements the client for a Moodle site's REST web
// services. All methods are context-aware, respect the shared rate limiter,
// and retry on transient errors (429, 5xx).
package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	restPath    = "/webservice/rest/server.php"
	maxRetries  = 4
	userAgent   = "mafazaa-cli/1.0"
	baseBackoff = 500 * time.Millisecond
)

// APIError is an exception reported by the site in a 200 response.
type APIError struct {
	Function  string
	Exception string
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Function, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

// Client calls web-service functions on one site with one token.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
	debug      bool
}

// NewClient creates a Client for siteURL (e.g. https://school.example) using token.
func NewClient(siteURL, token string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		endpoint: strings.TrimRight(siteURL, "/") + restPath,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		backoff: baseBackoff,
		debug:   debug,
	}
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// call posts a web-service function with form-encoded params and decodes the
// JSON reply into out. Exceptions the site reports are returned as *APIError.
func (c *Client) call(ctx context.Context, function string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}

	q := url.Values{}
	q.Set("wstoken", c.token)
	q.Set("wsfunction", function)
	q.Set("moodlewsrestformat", "json")
	reqURL := c.endpoint + "?" + q.Encode()
	form := params.Encode()

	if c.debug {
		safe := strings.Replace(reqURL, c.token, "REDACTED", 1)
		slog.Debug("moodle request", "url", safe, "params", form)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			slog.Debug("retrying after backoff", "function", function, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBufferString(form))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		if c.debug {
			slog.Debug("moodle response", "function", function, "status", resp.StatusCode, "bytes", len(body))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if apiErr := decodeException(function, body); apiErr != nil {
			return apiErr
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", function, err)
		}
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// decodeException recognises the {"exception": ...} object the site returns
// with status 200 when a function fails.
func decodeException(function string, body []byte) *APIError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var raw struct {
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil
	}
	if raw.Exception == "" && raw.ErrorCode == "" && raw.Error == "" {
		return nil
	}
	msg := raw.Message
	if msg == "" {
		msg = raw.Error
	}
	return &APIError{Function: function, Exception: raw.Exception, Code: raw.ErrorCode, Message: msg}
}
