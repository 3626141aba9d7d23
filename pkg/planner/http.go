package planner

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// retryingClient retries network errors, rate limits and 5xx responses with
// exponential backoff and jitter. Other statuses are returned to the caller.
type retryingClient struct {
	client   *http.Client
	logger   *slog.Logger
	attempts uint
}

func newRetryingClient(c *http.Client, logger *slog.Logger) *retryingClient {
	if c == nil {
		c = &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &retryingClient{client: c, logger: logger, attempts: 4}
}

// Do performs req. The returned response body must be closed by the caller.
func (c *retryingClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	err := retry.Do(
		func() error {
			var err error
			resp, err = c.client.Do(req) //nolint:bodyclose // closed here on retry, returned open on success
			if err != nil {
				lastErr = err
				return err
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
				if closeErr := resp.Body.Close(); closeErr != nil {
					c.logger.Debug("failed to close error response body", "error", closeErr)
				}
				if readErr != nil {
					c.logger.Debug("failed to read error response body", "error", readErr)
				}
				lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
				return lastErr
			}
			return nil
		},
		retry.Context(req.Context()),
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(3*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying HTTP request", "attempt", n+1, "host", req.URL.Host, "path", req.URL.Path, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request failed after retries: %w", lastErr)
	}
	return resp, nil
}
