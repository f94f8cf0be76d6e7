// Package summary calls the remote AI function that condenses note text.
// The function is opaque: it takes {"text": ...} and answers {"summary": ...}.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// MaxTextLen is the longest input accepted, in runes.
const MaxTextLen = 20000

// Sentinel errors for summary calls.
var (
	// ErrNotConfigured means no SUMMARY_URL was set.
	ErrNotConfigured = errors.New("summary: not configured")
	// ErrUpstream means the remote function failed or answered garbage.
	ErrUpstream = errors.New("summary: upstream error")
)

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Client posts text to the summary endpoint.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOutboundRate caps calls to the upstream at r per second with the given
// burst, independent of the per-client limit applied at the HTTP edge.
func WithOutboundRate(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// New creates a client for url. An empty url yields a client whose
// Summarize always returns ErrNotConfigured.
func New(url string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:     strings.TrimSpace(url),
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Summarize returns the summary of text. Blank or oversized input fails with
// domain.ErrValidation before any network call is made.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return "", fmt.Errorf("%w: text must be at most %d characters", domain.ErrValidation, MaxTextLen)
	}
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("summary.Client.Summarize: wait: %w", err)
	}

	body, err := json.Marshal(summarizeRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("summary.Client.Summarize: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summary.Client.Summarize: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary.Client.Summarize: %w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "summary call",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_chars", len(text),
	)

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("summary.Client.Summarize: %w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summary.Client.Summarize: %w: decode: %w", ErrUpstream, err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", fmt.Errorf("summary.Client.Summarize: %w: empty summary", ErrUpstream)
	}
	return out.Summary, nil
}
