package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/echolens/echolens/internal/ledger"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 4 * 1024 * 1024
)

// Options configures the shared plumbing every adapter carries.
type Options struct {
	// WindowLimit and WindowDuration define the adapter's fixed rate window.
	WindowLimit    int
	WindowDuration time.Duration

	// MinInterval spaces consecutive calls within a window. Zero disables
	// smoothing.
	MinInterval time.Duration

	Ledger     *ledger.CostLedger
	HTTPClient *http.Client
}

// SmoothingInterval derives the inter-call spacing from a fixed rate window:
// a window allowing limit calls per duration is smoothed to one call every
// duration/limit. Returns zero (smoothing off) when either side is unset.
func SmoothingInterval(window time.Duration, limit int) time.Duration {
	if window <= 0 || limit <= 0 {
		return 0
	}
	return window / time.Duration(limit)
}

// fetchClient is the rate-limited HTTP plumbing shared by all adapters: one
// fixed window plus an inter-call smoother, a health streak, and request
// accounting into the shared ledger.
type fetchClient struct {
	http     *http.Client
	window   *ledger.RateWindow
	smoother *rate.Limiter
	ledger   *ledger.CostLedger
	health   *healthTracker
	sleep    func(context.Context, time.Duration) error
}

func newFetchClient(opts Options) *fetchClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	var smoother *rate.Limiter
	if opts.MinInterval > 0 {
		smoother = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	return &fetchClient{
		http:     httpClient,
		window:   ledger.NewRateWindow(opts.WindowLimit, opts.WindowDuration),
		smoother: smoother,
		ledger:   opts.Ledger,
		health:   newHealthTracker(),
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// get performs one rate-limited GET and classifies the result. The caller
// decides what the class means for its strategy; get itself never retries.
func (c *fetchClient) get(ctx context.Context, url string) ([]byte, outcome) {
	if err := c.window.Acquire(ctx); err != nil {
		return nil, outcome{class: classRetryable, err: err}
	}
	if c.smoother != nil {
		if err := c.smoother.Wait(ctx); err != nil {
			return nil, outcome{class: classRetryable, err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, outcome{class: classUnavailable, err: err}
	}
	req.Header.Set("User-Agent", "echolens/1.0")

	if c.ledger != nil {
		c.ledger.RecordRequest()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient by definition.
		return nil, outcome{class: classRetryable, err: err}
	}
	defer resp.Body.Close()

	// Adopt the provider-advertised remaining budget when it is stricter
	// than our own window.
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil {
			c.window.Tighten(n)
		}
	}

	if class := classifyStatus(resp.StatusCode); class != classSuccess {
		return nil, outcome{class: class, status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, outcome{class: classRetryable, err: fmt.Errorf("read response: %w", err)}
	}

	return body, outcome{class: classSuccess, status: resp.StatusCode}
}

// getWithRetry wraps get with the bounded backoff policy.
func (c *fetchClient) getWithRetry(ctx context.Context, url string) ([]byte, outcome) {
	var body []byte
	out := withBackoff(ctx, c.sleep, func() outcome {
		var o outcome
		body, o = c.get(ctx, url)
		return o
	})
	return body, out
}

func (c *fetchClient) healthSnapshot() (int, int) {
	return c.window.Remaining(), c.health.errorCount()
}
