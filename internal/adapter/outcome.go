package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// attemptClass is the failure class of one fetch attempt. Fallback and retry
// decisions branch on the class, never on raw errors.
type attemptClass int

const (
	classSuccess attemptClass = iota
	// classRetryable covers transient network failures and 5xx responses;
	// the same strategy is retried with bounded backoff.
	classRetryable
	// classQuota covers 402/429: terminal for the active strategy, the
	// adapter switches to its fallback for the remainder of the call.
	classQuota
	// classUnavailable covers 403/404: the single item is skipped and the
	// batch continues.
	classUnavailable
)

// outcome is the result of one attempt against an upstream.
type outcome struct {
	class  attemptClass
	status int
	err    error
}

func (o outcome) ok() bool { return o.class == classSuccess }

func (o outcome) Error() string {
	if o.err != nil {
		return o.err.Error()
	}
	return fmt.Sprintf("upstream returned status %d", o.status)
}

// classifyStatus maps an HTTP status to an attempt class.
func classifyStatus(status int) attemptClass {
	switch {
	case status >= 200 && status < 300:
		return classSuccess
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests:
		return classQuota
	case status == http.StatusForbidden || status == http.StatusNotFound ||
		status == http.StatusGone || status == http.StatusUnavailableForLegalReasons:
		return classUnavailable
	default:
		return classRetryable
	}
}

const (
	maxAttempts    = 3
	backoffInitial = 500 * time.Millisecond
)

// withBackoff runs fn up to maxAttempts times, doubling the delay between
// retryable failures. Quota and unavailable outcomes return immediately;
// only retryable outcomes are retried.
func withBackoff(ctx context.Context, sleep func(context.Context, time.Duration) error, fn func() outcome) outcome {
	delay := backoffInitial
	var last outcome
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return outcome{class: classRetryable, err: err}
			}
			delay *= 2
		}

		last = fn()
		if last.class != classRetryable {
			return last
		}
	}
	return last
}
