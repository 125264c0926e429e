// Package httpclient is the shared HTTP client (C1): GET with configured
// headers/cookies, streamed bodies, and the retry/backoff policy shared by
// the playlist fetcher, key cache, and segment fetcher.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
)

const (
	maxAttempts    = 5
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
	maxRetryAfter  = 30 * time.Second
	connectTimeout = 10 * time.Second
	readTimeout    = 30 * time.Second
	jitterFraction = 0.20
)

// ByteRange is an HTTP Range request, inclusive on both ends when Length > 0.
type ByteRange struct {
	Offset int64
	Length int64 // 0 means "to end of resource"
}

func (r ByteRange) header() string {
	if r.Length <= 0 {
		return fmt.Sprintf("bytes=%d-", r.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Length-1)
}

// Config configures a Client.
type Config struct {
	UserAgent string
	Referer   string
	Cookies   string
	Logger    *slog.Logger
}

// Client wraps resty.Client with the retry policy from spec.md §4.1.
type Client struct {
	resty     *resty.Client
	userAgent string
	referer   string
	cookies   string
	logger    *slog.Logger
}

// New builds a Client. A zero Config yields usable defaults.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "hlsfetch/1.0"
	}

	rc := resty.New().
		SetTimeout(connectTimeout + readTimeout).
		SetRetryCount(maxAttempts - 1).
		// resty clamps every wait to its max wait time (2s by default);
		// raise it so the 8s backoff cap and 30s Retry-After clamp apply.
		SetRetryMaxWaitTime(maxRetryAfter)

	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		switch r.StatusCode() {
		case 408, 425, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	})

	rc.SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
		attempt := 1
		if r != nil && r.Request != nil && r.Request.Attempt > 0 {
			attempt = r.Request.Attempt
		}
		if r != nil && (r.StatusCode() == 429 || r.StatusCode() == 503) {
			if d, ok := retryAfterHeader(r.Header()); ok {
				return d, nil
			}
		}
		return backoffWithJitter(attempt), nil
	})

	c := &Client{
		resty:     rc,
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		cookies:   cfg.Cookies,
		logger:    cfg.Logger,
	}
	return c
}

// MaxAttempts is the retry policy's attempt ceiling (spec.md §4.1), exported
// so callers that manage their own retry loop (e.g. the streaming HTTP
// downloader, whose body copy can fail after headers are already received)
// can honor the same bound.
const MaxAttempts = maxAttempts

// Backoff computes the same exponential-backoff-with-jitter delay resty
// uses internally, exported for callers driving their own retry loop.
func Backoff(attempt int) time.Duration {
	return backoffWithJitter(attempt)
}

// backoffWithJitter computes 500ms * 2^(attempt-1), capped at 8s, ±20% jitter.
func backoffWithJitter(attempt int) time.Duration {
	d := baseBackoff << uint(attempt-1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	jitter := float64(d) * jitterFraction
	offset := (rand.Float64()*2 - 1) * jitter
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		result = 0
	}
	return result
}

func retryAfterHeader(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d, true
	}
	return 0, false
}

func (c *Client) applyDefaultHeaders(req *resty.Request, headers map[string]string) {
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.SetHeader("User-Agent", c.userAgent)
	}
	if req.Header.Get("Referer") == "" && c.referer != "" {
		req.SetHeader("Referer", c.referer)
	}
	if c.cookies != "" && req.Header.Get("Cookie") == "" {
		req.SetHeader("Cookie", c.cookies)
	}
}

// GetText fetches a URL and returns its body as a string.
func (c *Client) GetText(ctx context.Context, url string, headers map[string]string) (string, error) {
	body, err := c.GetBytes(ctx, url, headers, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBytes fetches a URL (optionally ranged) and returns the full body.
func (c *Client) GetBytes(ctx context.Context, url string, headers map[string]string, byteRange *ByteRange) ([]byte, error) {
	req := c.resty.R().SetContext(ctx)
	c.applyDefaultHeaders(req, headers)
	if byteRange != nil {
		req.SetHeader("Range", byteRange.header())
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, hlserr.NewNetworkError(url, 0, attemptCount(resp), err)
	}
	if resp.StatusCode() >= 400 || (byteRange != nil && resp.StatusCode() != 206 && resp.StatusCode() != 200) {
		return nil, hlserr.NewNetworkError(url, resp.StatusCode(), attemptCount(resp), nil)
	}
	return resp.Body(), nil
}

// GetStream returns an incremental reader over the response body, for the
// plain HTTP downloader (C9) which must not buffer the whole file in memory.
func (c *Client) GetStream(ctx context.Context, url string, headers map[string]string, byteRange *ByteRange) (io.ReadCloser, int, error) {
	req := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)
	c.applyDefaultHeaders(req, headers)
	if byteRange != nil {
		req.SetHeader("Range", byteRange.header())
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, 0, hlserr.NewNetworkError(url, 0, attemptCount(resp), err)
	}
	raw := resp.RawResponse
	if raw.StatusCode >= 400 {
		raw.Body.Close()
		return nil, raw.StatusCode, hlserr.NewNetworkError(url, raw.StatusCode, attemptCount(resp), nil)
	}
	return raw.Body, raw.StatusCode, nil
}

// Head issues a HEAD request and returns the Content-Type header, falling
// back to a ranged GET of one byte when the server doesn't support HEAD
// (some origins return 405/501), since mode detection only needs the header.
func (c *Client) Head(ctx context.Context, url string, headers map[string]string) (string, error) {
	req := c.resty.R().SetContext(ctx)
	c.applyDefaultHeaders(req, headers)

	resp, err := req.Head(url)
	if err == nil && resp.StatusCode() < 400 {
		return resp.Header().Get("Content-Type"), nil
	}

	req = c.resty.R().SetContext(ctx)
	c.applyDefaultHeaders(req, headers)
	req.SetHeader("Range", "bytes=0-0")
	resp, err = req.Get(url)
	if err != nil {
		return "", hlserr.NewNetworkError(url, 0, attemptCount(resp), err)
	}
	return resp.Header().Get("Content-Type"), nil
}

func attemptCount(resp *resty.Response) int {
	if resp == nil || resp.Request == nil {
		return maxAttempts
	}
	if resp.Request.Attempt > 0 {
		return resp.Request.Attempt
	}
	return 1
}
