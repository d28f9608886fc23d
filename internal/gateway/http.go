package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Error reports a failed service call: transport failure, non-success status
// or a payload that could not be decoded.
type Error struct {
	Service    string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d from %s: %v", e.Service, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: request %s: %v", e.Service, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ResponseCache stores raw response bodies keyed by request URL.
type ResponseCache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

// Recorder receives per-request observations, e.g. for metrics.
type Recorder interface {
	ObserveRequest(service, outcome string, elapsed time.Duration)
}

// Options configure a service client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration // used when HTTPClient is nil
	Retries    int           // attempts after the first, for transport errors and 5xx
	Cache      ResponseCache
	Recorder   Recorder
	Logger     *zap.Logger
}

// Request outcomes passed to Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var errNotFound = errors.New("not found")

// fetcher performs cached, deduplicated and retried GET requests for one service.
type fetcher struct {
	service  string
	baseURL  string
	client   *http.Client
	cache    ResponseCache
	retries  int
	recorder Recorder
	logger   *zap.Logger
	group    singleflight.Group
}

func newFetcher(service, baseURL string, opts Options) *fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fetcher{
		service:  service,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		cache:    opts.Cache,
		retries:  max(opts.Retries, 0),
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// getJSON fetches url and decodes the body into out. found is false for a
// 404 response.
func (f *fetcher) getJSON(ctx context.Context, url string, out any) (found bool, err error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		if f.recorder != nil {
			f.recorder.ObserveRequest(f.service, outcome, time.Since(start))
		}
	}()

	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			f.logger.Warn("response cache read failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			if err := json.Unmarshal(body, out); err == nil {
				outcome = OutcomeCached
				return true, nil
			}
			f.logger.Warn("discarding undecodable cached response", zap.String("url", url))
		}
	}

	// The shared fetch outlives any single caller; each caller still
	// stops waiting when its own context ends.
	ch := f.group.DoChan(url, func() (any, error) {
		return f.fetch(context.WithoutCancel(ctx), url)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return false, &Error{Service: f.service, URL: url, Err: ctx.Err()}
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if errors.Is(err, errNotFound) {
		outcome = OutcomeNotFound
		return false, nil
	}
	if err != nil {
		return false, err
	}
	body := v.([]byte)

	if err := json.Unmarshal(body, out); err != nil {
		return false, &Error{Service: f.service, URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	if f.cache != nil {
		if err := f.cache.Put(ctx, url, body); err != nil {
			f.logger.Warn("response cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	outcome = OutcomeOK
	return true, nil
}

func (f *fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(&Error{Service: f.service, URL: url, Err: err})
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, &Error{Service: f.service, URL: url, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Service: f.service, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(errNotFound)
		case resp.StatusCode >= 500:
			return nil, &Error{Service: f.service, URL: url, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
		default:
			return nil, backoff.Permanent(&Error{Service: f.service, URL: url, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))})
		}
	}

	f.logger.Debug("GET", zap.String("service", f.service), zap.String("url", url))
	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(f.retries+1)),
	)
	if err != nil {
		var gwErr *Error
		if errors.Is(err, errNotFound) || errors.As(err, &gwErr) {
			return nil, err
		}
		return nil, &Error{Service: f.service, URL: url, Err: err}
	}
	return body, nil
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
