// Package fetch is the HTTP layer under the dataset loaders: a rate-limited
// client that retries transient failures and digests what it downloads.
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit keeps catalog traffic polite: 4 requests per second.
	RateLimit = 4.0

	// maxAttempts is the initial request plus a single retry.
	maxAttempts = 2

	// maxBodyBytes caps in-memory responses (catalog indexes, not archives).
	maxBodyBytes = 32 * 1024 * 1024

	userAgent = "graphset (+https://github.com/verger/graphset)"
)

// Client is a rate-limited HTTP client for catalog and archive downloads.
type Client struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	log           *zap.Logger
	retryInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryInterval overrides the first retry delay (for testing).
func WithRetryInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryInterval = d
	}
}

// NewClient creates a download client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(RateLimit), 1),
		log:           zap.NewNop(),
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a GET with rate limiting and a single retry on transient
// failures. Client errors other than 429 are permanent: a 404 will not
// come back on the second try.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("requesting %s: %w", url, err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}
		return resp, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn("retrying request",
				zap.String("url", url),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)
}

// Get fetches a small resource, such as a catalog index, into memory.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	c.log.Debug("fetched resource",
		zap.String("url", url),
		zap.Int("bytes", len(data)))
	return data, nil
}

// Download streams a resource to dest and returns the byte count and the
// hex BLAKE2b-256 digest of what was written.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, string, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("creating %s: %w", dest, err)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		f.Close()
		return 0, "", err
	}

	written, err := io.Copy(io.MultiWriter(f, hasher), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", fmt.Errorf("downloading %s: %w", url, err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	c.log.Debug("downloaded archive",
		zap.String("url", url),
		zap.Int64("bytes", written),
		zap.String("digest", digest))
	return written, digest, nil
}
