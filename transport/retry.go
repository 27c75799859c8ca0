package transport

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bullhorn-auth/core"
)

const (
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 4 * time.Second
)

// Policy governs every transport call for one acquisition attempt. Validated
// eagerly; an invalid policy never reaches the network.
type Policy struct {
	Timeout        time.Duration
	Retries        int
	UserAgent      string
	OnRetryAttempt core.RetryObserver
}

func PolicyFromConfig(cfg core.HTTPConfig, observer core.RetryObserver) Policy {
	return Policy{
		Timeout:        cfg.Timeout(),
		Retries:        cfg.Retries,
		UserAgent:      cfg.UserAgent,
		OnRetryAttempt: observer,
	}
}

func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("transport: policy timeout must be positive, got %s", p.Timeout)
	}
	if p.Retries < 0 {
		return fmt.Errorf("transport: policy retries must not be negative, got %d", p.Retries)
	}
	return nil
}

// ExponentialBackoff doubles the delay per failed attempt up to Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := b.Initial
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	max := b.Max
	if max <= 0 {
		max = defaultMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// RetryingAdapter wraps a TransportAdapter with the module's retry policy:
// a per-attempt timeout, conversion of 429/5xx responses into raised
// failures, and capped exponential backoff between attempts.
type RetryingAdapter struct {
	next    core.TransportAdapter
	policy  Policy
	backoff ExponentialBackoff
	wait    func(ctx context.Context, delay time.Duration) error
}

func NewRetryingAdapter(next core.TransportAdapter, policy Policy) *RetryingAdapter {
	return &RetryingAdapter{
		next:    next,
		policy:  policy,
		backoff: ExponentialBackoff{Initial: defaultInitialBackoff, Max: defaultMaxBackoff},
		wait:    waitWithContext,
	}
}

// Do attempts the request policy.Retries+1 times. A response with status 429
// or any 5xx counts as a failure even though it is a well-formed response.
// Once attempts are exhausted the last failure is returned unchanged in
// kind.
func (a *RetryingAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.next == nil {
		return core.TransportResponse{}, core.NewError(
			"transport: retrying adapter requires a next adapter",
			goerrors.CategoryInternal,
			nil,
		)
	}
	if err := a.policy.Validate(); err != nil {
		return core.TransportResponse{}, core.WrapError(err, goerrors.CategoryBadInput, "transport: invalid policy", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if req.Timeout <= 0 {
		req.Timeout = a.policy.Timeout
	}
	if a.policy.UserAgent != "" {
		headers := make(map[string]string, len(req.Headers)+1)
		for key, value := range req.Headers {
			headers[key] = value
		}
		headers["User-Agent"] = a.policy.UserAgent
		req.Headers = headers
	}

	attempts := a.policy.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := a.next.Do(ctx, req)
		if err == nil && !statusRetryable(res.StatusCode) {
			return res, nil
		}
		if err == nil {
			err = retryableStatusError(res)
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if waitErr := a.wait(ctx, a.backoff.Delay(attempt)); waitErr != nil {
			return core.TransportResponse{}, core.WrapError(
				waitErr,
				goerrors.CategoryExternal,
				"transport: retry wait interrupted",
				map[string]any{"attempt": attempt},
			)
		}
		a.notifyRetry(core.RetryAttempt{
			Attempt: attempt,
			Status:  statusOf(err),
			Err:     err,
		})
	}
	return core.TransportResponse{}, lastErr
}

// notifyRetry isolates observer failures: a panicking callback must never
// interrupt the retry loop.
func (a *RetryingAdapter) notifyRetry(attempt core.RetryAttempt) {
	observer := a.policy.OnRetryAttempt
	if observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	observer(attempt)
}

// statusOf extracts the response status a failure was built from. Network
// failures carry no status_code metadata and report zero.
func statusOf(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return 0
	}
	if status, ok := richErr.Metadata["status_code"].(int); ok {
		return status
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ core.TransportAdapter = (*RetryingAdapter)(nil)
