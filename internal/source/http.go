package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/afl-stats/internal/logger"
)

const (
	UserAgent  = "afl-stats/1.0 (github.com/pfrederiksen/afl-stats)"
	Timeout    = 30 * time.Second
	MaxRetries = 3
)

// HTTP fetches documents over HTTP, retrying transient failures with
// exponential backoff.
type HTTP struct {
	client        *http.Client
	userAgent     string
	maxRetries    uint64
	retryInterval time.Duration
}

// NewHTTP creates an HTTP source. Zero values select the defaults.
func NewHTTP(userAgent string, timeout time.Duration, maxRetries int) *HTTP {
	if userAgent == "" {
		userAgent = UserAgent
	}
	if timeout <= 0 {
		timeout = Timeout
	}
	if maxRetries < 0 {
		maxRetries = MaxRetries
	}
	return &HTTP{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:     userAgent,
		maxRetries:    uint64(maxRetries),
		retryInterval: 500 * time.Millisecond,
	}
}

// Fetch implements Source. Client errors other than 429 are not retried.
func (h *HTTP) Fetch(ctx context.Context, url string) (*Document, error) {
	start := time.Now()
	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		b, err := h.get(ctx, url)
		if err != nil {
			if ue, ok := err.(*UnavailableError); ok && isPermanent(ue.StatusCode) {
				return backoff.Permanent(err)
			}
			logger.Debug("Fetch attempt failed", logger.Fields{"url": url, "attempt": attempt, "error": err.Error()})
			return err
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = h.retryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, h.maxRetries), ctx))
	logger.RecordTiming("source.fetch", time.Since(start))
	if err != nil {
		logger.IncrCounter("source.fetch.failed")
		if _, ok := err.(*UnavailableError); ok {
			return nil, err
		}
		return nil, &UnavailableError{ID: url, Err: err}
	}

	logger.IncrCounter("source.fetch.ok")
	return &Document{ID: url, Body: body, FetchedAt: time.Now().UTC()}, nil
}

func (h *HTTP) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UnavailableError{ID: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{ID: url, Err: fmt.Errorf("fetching page: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{ID: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{ID: url, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

func isPermanent(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
