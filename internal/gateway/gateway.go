package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"reviewmonitor/internal/model"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// CallLogger persists failed remote exchanges for offline debugging.
// Implementations must be safe to call from the request path; errors are
// swallowed by the gateway.
type CallLogger interface {
	Insert(ctx context.Context, rec model.RemoteCall) error
}

// Result is the outcome of one logical request, after internal retries.
// Status is the last observed HTTP status, 0 when the transport itself
// failed on every attempt. Body is the raw response body (possibly empty).
type Result struct {
	OK     bool
	Status int
	Body   []byte
}

// Client executes JSON requests against a remote API with a bounded retry
// budget. Transport errors, 429 and 5xx are retried with a linearly
// increasing delay; other 4xx are surfaced immediately.
type Client struct {
	Target      string // call-log tag, e.g. "crm"
	MaxAttempts int
	BackoffBase time.Duration

	http  *http.Client
	log   *zap.Logger
	calls CallLogger // may be nil
	runID string
}

func New(target string, timeout time.Duration, lg *zap.Logger, calls CallLogger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		Target:      target,
		MaxAttempts: defaultMaxAttempts,
		BackoffBase: defaultBackoffBase,
		http:        &http.Client{Timeout: timeout},
		log:         lg,
		calls:       calls,
	}
}

// WithRunID returns a shallow copy tagging call-log rows with the run id.
func (c *Client) WithRunID(runID string) *Client {
	cp := *c
	cp.runID = runID
	return &cp
}

// Do executes method+url with an optional JSON payload. It never returns an
// error: every outcome, including exhausted retries, is a Result.
func (c *Client) Do(ctx context.Context, method, url string, payload any, headers map[string]string) Result {
	var reqBody []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.log.Error("gateway: marshal payload", zap.String("url", url), zap.Error(err))
			return Result{}
		}
		reqBody = b
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	var last Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := c.once(ctx, method, url, reqBody, headers)
		if err != nil {
			// transport failure
			last = Result{}
			c.logFailure(ctx, method, url, reqBody, nil, 0, err)
			if attempt < maxAttempts && c.sleep(ctx, attempt) {
				continue
			}
			return last
		}

		last = res
		if res.Status == http.StatusTooManyRequests || (res.Status >= 500 && res.Status <= 599) {
			c.logFailure(ctx, method, url, reqBody, res.Body, res.Status, nil)
			if attempt < maxAttempts && c.sleep(ctx, attempt) {
				continue
			}
			return Result{OK: false, Status: res.Status, Body: res.Body}
		}

		if res.Status >= 400 {
			c.logFailure(ctx, method, url, reqBody, res.Body, res.Status, nil)
			return Result{OK: false, Status: res.Status, Body: res.Body}
		}

		return Result{OK: true, Status: res.Status, Body: res.Body}
	}

	return last
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, headers map[string]string) (Result, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return Result{}, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return Result{}, err
	}

	return Result{Status: res.StatusCode, Body: b}, nil
}

// sleep waits attempt*BackoffBase, honoring ctx. Returns false when the
// context was cancelled mid-wait.
func (c *Client) sleep(ctx context.Context, attempt int) bool {
	base := c.BackoffBase
	if base <= 0 {
		base = defaultBackoffBase
	}
	t := time.NewTimer(time.Duration(attempt) * base)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// logFailure records a bad exchange to zap and, when configured, the call
// log. Must never abort the caller.
func (c *Client) logFailure(ctx context.Context, method, url string, reqBody, respBody []byte, status int, cause error) {
	fields := []zap.Field{
		zap.String("target", c.Target),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", status),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	c.log.Warn("gateway: remote call failed", fields...)

	if c.calls == nil {
		return
	}
	rec := model.RemoteCall{
		RunID:        c.runID,
		Target:       c.Target,
		Method:       method,
		URL:          url,
		StatusCode:   int32(status),
		RequestBody:  string(reqBody),
		ResponseBody: string(respBody),
		CreatedAt:    time.Now().UTC(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := c.calls.Insert(ctx, rec); err != nil {
		c.log.Warn("gateway: call log insert failed", zap.Error(err))
	}
}
