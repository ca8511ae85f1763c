package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// FetchConfig controls how remote catalogs are downloaded.
type FetchConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxBytes          int64         `mapstructure:"max_bytes"`
}

// DefaultFetchConfig returns the fetch settings used when none are configured.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		RequestsPerSecond: 2,
		Timeout:           30 * time.Second,
		MaxBytes:          32 << 20,
	}
}

// FetchError is returned once all attempts for a URL are exhausted or the
// server answered with a status that is not worth retrying.
type FetchError struct {
	URL        string
	Attempts   int
	LastStatus int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch %s after %d attempts", e.URL, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.LastStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads catalogs over HTTP with throttling and retries.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	config  FetchConfig
	sleep   func(context.Context, time.Duration) error
}

// NewFetcher creates a fetcher. A zero RequestsPerSecond disables throttling.
func NewFetcher(config FetchConfig) *Fetcher {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	return &Fetcher{
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		config:  config,
		sleep:   sleepContext,
	}
}

// Fetch returns the response body of a successful GET along with its
// Content-Type header.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	var (
		lastStatus int
		lastErr    error
	)
	attempts := f.config.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", &FetchError{URL: rawURL, Attempts: attempt, LastStatus: lastStatus, Err: err}
		}

		data, contentType, status, retryAfter, err := f.get(ctx, rawURL)
		if err == nil {
			return data, contentType, nil
		}
		lastStatus, lastErr = status, err
		if ctx.Err() != nil || (status != 0 && !isRetryableStatus(status)) {
			return nil, "", &FetchError{URL: rawURL, Attempts: attempt + 1, LastStatus: status, Err: err}
		}
		if attempt == attempts-1 {
			break
		}

		reason := "network"
		backoff := f.backoff(attempt, 2)
		if status == http.StatusTooManyRequests {
			reason = "rate_limited"
			backoff = f.backoff(attempt, 3)
			if retryAfter > 0 {
				backoff = retryAfter
			}
		} else if status != 0 {
			reason = "server_error"
		}
		fetchRetries.WithLabelValues(reason).Inc()
		if err := f.sleep(ctx, backoff); err != nil {
			return nil, "", &FetchError{URL: rawURL, Attempts: attempt + 1, LastStatus: lastStatus, Err: err}
		}
	}
	return nil, "", &FetchError{URL: rawURL, Attempts: attempts, LastStatus: lastStatus, Err: lastErr}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (data []byte, contentType string, status int, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", 0, 0, err
	}
	req.Header.Set("User-Agent", "coupon-planner/1.0")
	req.Header.Set("Accept", "application/json, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")),
			fmt.Errorf("unexpected status %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.config.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.config.MaxBytes+1)
	}
	data, err = io.ReadAll(body)
	if err != nil {
		return nil, "", resp.StatusCode, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	if f.config.MaxBytes > 0 && int64(len(data)) > f.config.MaxBytes {
		return nil, "", resp.StatusCode, 0, fmt.Errorf("response exceeds %d bytes", f.config.MaxBytes)
	}
	return data, resp.Header.Get("Content-Type"), resp.StatusCode, 0, nil
}

// backoff is InitialBackoff * factor^attempt capped at MaxBackoff, plus up to
// 25% jitter.
func (f *Fetcher) backoff(attempt int, factor float64) time.Duration {
	delay := float64(f.config.InitialBackoff) * math.Pow(factor, float64(attempt))
	if f.config.MaxBackoff > 0 {
		delay = math.Min(delay, float64(f.config.MaxBackoff))
	}
	return time.Duration(delay + rand.Float64()*0.25*delay)
}

// LoadURL downloads a snapshot and decodes it as JSON or XLSX based on the
// response Content-Type, falling back to the URL path extension.
func (f *Fetcher) LoadURL(ctx context.Context, rawURL string) (Snapshot, error) {
	data, contentType, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return Snapshot{}, err
	}

	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "application/json":
			name = "catalog.json"
		case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
			name = "catalog.xlsx"
		}
	}
	snap, err := decodeByName(path.Base(name), data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", rawURL, err)
	}
	return snap, nil
}

// IsURL reports whether arg names an http or https resource.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
