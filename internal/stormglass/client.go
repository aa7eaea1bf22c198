package stormglass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"swellcast/internal/metrics"
	"swellcast/internal/types"
)

// WindowData couples the raw provider rows of one successful window request
// with their reconciled hourly view.
type WindowData struct {
	Hours  []Hour
	Series types.ObservationSeries
}

// Client issues weather point requests against the provider, rotating
// through the credential pool on quota failures. One Client owns one pool
// cursor; it is not safe for concurrent use (see CredentialPool).
type Client struct {
	baseURL    string
	pool       *CredentialPool
	transport  *transport
	maxRetries int
	retryBase  time.Duration
	sleepFn    func(ctx context.Context, d time.Duration)
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSleepFunc overrides the sleep used between transient retries. Intended
// for tests.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration)) Option {
	return func(c *Client) { c.sleepFn = fn }
}

// WithMetrics attaches a telemetry recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Client) { c.metrics = rec }
}

// WithRetryPolicy overrides the transient retry bound and backoff base.
func WithRetryPolicy(maxRetries int, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBase = base
	}
}

// NewClient constructs a Client over the given pool and HTTP client.
// Defaults: 3 transient attempts per request with exponential backoff
// starting at 2 seconds.
func NewClient(baseURL string, pool *CredentialPool, httpClient httpDoer, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pool:       pool,
		transport:  newTransport(httpClient),
		maxRetries: 3,
		retryBase:  2 * time.Second,
		sleepFn:    sleepContext,
		logger:     logger,
		metrics:    metrics.Noop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PoolSize returns the number of credentials available to this client.
func (c *Client) PoolSize() int {
	return c.pool.Size()
}

// Cursor returns the pool's current cursor position.
func (c *Client) Cursor() int {
	return c.pool.Cursor()
}

// Attempt tries to fetch the window using at most one request per credential,
// in strict round-robin order starting at the pool cursor.
//
//   - 200 with data: reconcile, advance the cursor once, return.
//   - 402/429: quota exhausted on that credential; advance without delay.
//   - 422: fatal parameter rejection; abort all remaining attempts.
//   - network/5xx: bounded retry with exponential backoff, then advance.
//
// If every credential fails, Attempt returns an acquisition_exhausted error.
// It never fabricates data; fallbacks belong to the caller.
func (c *Client) Attempt(ctx context.Context, point types.GeoPoint, window types.TimeWindow, params []string) (*WindowData, error) {
	n := c.pool.Size()
	var lastErr error
	for tried := 0; tried < n; tried++ {
		idx, cred := c.pool.Current()
		data, err := c.request(ctx, cred, point, window, params)

		// The cursor advances on every attempt, success or failure, so the
		// next call starts from the following credential.
		c.pool.Advance()
		c.metrics.RecordRotation(ctx)

		if err == nil {
			c.metrics.RecordAttempt(ctx, metrics.OutcomeSuccess)
			return data, nil
		}

		code := types.CodeOf(err)
		c.metrics.RecordAttempt(ctx, outcomeFor(code))
		if code == types.ErrCodeAcqFatalParams {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, types.NewAppError(types.ErrCodeAcqTransient, "acquisition cancelled", ctx.Err())
		}
		lastErr = err
		c.logger.Warn("credential attempt failed, rotating",
			"credential_index", idx,
			"code", string(code),
			"error", err,
		)
	}
	// A window with no data on any credential means the provider has nothing
	// for this range; surface that distinctly from quota exhaustion.
	if types.CodeOf(lastErr) == types.ErrCodeAcqEmpty {
		return nil, lastErr
	}
	return nil, types.NewAppError(types.ErrCodeAcqExhausted,
		fmt.Sprintf("all %d credentials exhausted", n), lastErr)
}

// AttemptPinned issues one request using the credential at the given index,
// without touching the rotation cursor. The backfill loop uses it to spend a
// fixed per-credential sub-budget. Transient retry rules match Attempt.
func (c *Client) AttemptPinned(ctx context.Context, credIndex int, point types.GeoPoint, window types.TimeWindow, params []string) (*WindowData, error) {
	if credIndex < 0 || credIndex >= c.pool.Size() {
		return nil, types.NewAppError(types.ErrCodeAcqExhausted,
			fmt.Sprintf("credential index %d out of range", credIndex), nil)
	}
	data, err := c.request(ctx, c.pool.At(credIndex), point, window, params)
	if err != nil {
		c.metrics.RecordAttempt(ctx, outcomeFor(types.CodeOf(err)))
		return nil, err
	}
	c.metrics.RecordAttempt(ctx, metrics.OutcomeSuccess)
	return data, nil
}

// request performs the HTTP exchange for one credential, retrying only
// transient failures: up to maxRetries tries with backoff doubling from
// retryBase (2s, 4s, ...). All other failures classify immediately.
func (c *Client) request(ctx context.Context, cred types.SecretString, point types.GeoPoint, window types.TimeWindow, params []string) (*WindowData, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := c.buildRequest(ctx, cred, point, window, params)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building provider request", err)
		}

		resp, err := c.transport.do(req)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			lastErr = types.NewAppError(types.ErrCodeAcqTransient, "provider request failed", err)
			if breakerOpen(err) || ctx.Err() != nil {
				return nil, lastErr
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		data, err := c.classifyResponse(resp)
		if err == nil {
			return data, nil
		}
		if types.CodeOf(err) == types.ErrCodeAcqTransient {
			lastErr = err
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// backoff suspends before the next transient retry. The suspension is a
// cancellation point: a context that ends mid-sleep aborts the retry loop
// immediately instead of after the full delay.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries-1 {
		return nil
	}
	c.sleepFn(ctx, c.retryBase<<attempt)
	if ctx.Err() != nil {
		return types.NewAppError(types.ErrCodeAcqTransient, "acquisition cancelled during backoff", ctx.Err())
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// classifyResponse maps a provider response to data or a typed failure.
// It always drains and closes the body.
func (c *Client) classifyResponse(resp *http.Response) (*WindowData, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payload pointResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, types.NewAppError(types.ErrCodeAcqTransient, "decoding provider response", err)
		}
		if len(payload.Hours) == 0 {
			return nil, types.NewAppError(types.ErrCodeAcqEmpty, "provider returned no hourly data", nil)
		}
		return &WindowData{
			Hours:  payload.Hours,
			Series: reconcileSeries(payload.Hours),
		}, nil

	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, types.NewAppError(types.ErrCodeAcqAuthExhausted,
			fmt.Sprintf("credential quota exhausted (%d)", resp.StatusCode), nil)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewAppError(types.ErrCodeAcqFatalParams,
			fmt.Sprintf("provider rejected request parameters: %s", strings.TrimSpace(string(detail))), nil)

	default:
		io.Copy(io.Discard, resp.Body)
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("unexpected provider status %d", resp.StatusCode), nil)
	}
}

func (c *Client) buildRequest(ctx context.Context, cred types.SecretString, point types.GeoPoint, window types.TimeWindow, params []string) (*http.Request, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(point.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(point.Lng, 'f', -1, 64))
	q.Set("start", strconv.FormatInt(window.Start.Unix(), 10))
	q.Set("end", strconv.FormatInt(window.End.Unix(), 10))
	q.Set("params", strings.Join(params, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather/point?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", cred.Unmask())
	return req, nil
}

func outcomeFor(code types.ErrorCode) string {
	switch code {
	case types.ErrCodeAcqAuthExhausted:
		return metrics.OutcomeAuthExhausted
	case types.ErrCodeAcqFatalParams:
		return metrics.OutcomeFatal
	case types.ErrCodeAcqEmpty:
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeTransient
	}
}
