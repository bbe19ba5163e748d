package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// HTTPClient downloads images over HTTP. It accepts any Content-Type: some
// servers mislabel images, and decoding decides validity.
type HTTPClient struct {
	httpClient *http.Client
	maxBytes   int64
	userAgent  string
	logger     *slog.Logger
}

func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = 20 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Err: ErrBadStatus}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Err: ErrTooLarge}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: target, Status: resp.StatusCode, Err: ErrEmptyBody}
	}

	contentType := resp.Header.Get("Content-Type")
	c.logger.Debug("fetched image",
		"url", target,
		"bytes", len(data),
		"content_type", contentType,
		"duration", time.Since(start),
	)

	return &Image{
		Data:        data,
		Source:      target,
		ContentType: contentType,
	}, nil
}
