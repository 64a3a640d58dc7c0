package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// ExecutorConfig configures the retry executor.
type ExecutorConfig struct {
	// Policies maps failure category to its retry policy. Missing
	// categories fall back to the unknown policy.
	Policies map[domain.FailureCategory]domain.RetryPolicy
	// Jitter enables bounded randomization of computed delays.
	Jitter bool
	// RecordMaxAge is the staleness threshold for attempt records.
	RecordMaxAge time.Duration

	// Now and Sleep are test hooks; nil means real time.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each scheduled retry (metrics hook).
	OnRetry func(category domain.FailureCategory, attempt int)
}

// Executor wraps a fallible asynchronous operation in a bounded
// classify-and-retry loop with exponential backoff. The backoff suspension
// is the only blocking point and is context-aware.
type Executor struct {
	policies     map[domain.FailureCategory]domain.RetryPolicy
	jitter       bool
	recordMaxAge time.Duration

	mu       sync.Mutex
	attempts map[string]*attemptRecord

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func(category domain.FailureCategory, attempt int)
}

type attemptRecord struct {
	count       int
	lastAttempt time.Time
}

// NewExecutor constructs an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Policies == nil {
		cfg.Policies = domain.DefaultRetryPolicies(0, 0)
	}
	if cfg.RecordMaxAge <= 0 {
		cfg.RecordMaxAge = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &Executor{
		policies:     cfg.Policies,
		jitter:       cfg.Jitter,
		recordMaxAge: cfg.RecordMaxAge,
		attempts:     make(map[string]*attemptRecord),
		now:          cfg.Now,
		sleep:        cfg.Sleep,
		onRetry:      cfg.OnRetry,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute invokes op until it succeeds, the failure category forbids retry,
// or the category's retry budget is exhausted. On success the request's
// attempt record is cleared; on terminal failure it is left for the sweep so
// the same request id cannot silently restart its budget.
func (e *Executor) Execute(ctx context.Context, requestID string, op func(ctx context.Context) (string, error)) (string, error) {
	for {
		out, err := op(ctx)
		if err == nil {
			e.clear(requestID)
			return out, nil
		}

		cls := Classify(err)
		pol := e.policyFor(cls.Category)
		attempt := e.attemptCount(requestID)

		if !pol.Retryable() || attempt >= pol.MaxRetries {
			return "", e.terminal(cls, pol, err)
		}

		delay := e.nextDelay(pol, attempt)
		// A server-supplied retry-after hint wins over the computed
		// backoff for rate-limited failures.
		if cls.Category == domain.CategoryRateLimited && cls.RetryAfter > 0 {
			delay = cls.RetryAfter
		}

		e.recordAttempt(requestID)
		if e.onRetry != nil {
			e.onRetry(cls.Category, attempt+1)
		}
		slog.Warn("retrying after upstream failure",
			slog.String("request_id", requestID),
			slog.String("category", string(cls.Category)),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", pol.MaxRetries),
			slog.Duration("delay", delay))

		if serr := e.sleep(ctx, delay); serr != nil {
			// Caller went away mid-backoff; its record is swept later.
			return "", e.terminal(cls, pol, serr)
		}
	}
}

// nextDelay computes the backoff delay for the given zero-based attempt:
// base * 2^attempt, capped at the policy maximum, with optional bounded
// jitter.
func (e *Executor) nextDelay(pol domain.RetryPolicy, attempt int) time.Duration {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = pol.BaseDelay
	expo.Multiplier = 2.0
	expo.MaxInterval = pol.MaxDelay
	expo.MaxElapsedTime = 0
	expo.RandomizationFactor = 0
	if e.jitter {
		expo.RandomizationFactor = 0.25
	}
	expo.Reset()

	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = expo.NextBackOff()
	}
	if pol.MaxDelay > 0 && d > pol.MaxDelay {
		d = pol.MaxDelay
	}
	return d
}

func (e *Executor) policyFor(c domain.FailureCategory) domain.RetryPolicy {
	if p, ok := e.policies[c]; ok {
		return p
	}
	if p, ok := e.policies[domain.CategoryUnknown]; ok {
		return p
	}
	return domain.RetryPolicy{}
}

func (e *Executor) terminal(cls domain.Classification, pol domain.RetryPolicy, err error) error {
	return &domain.ClassifiedError{
		Classification: cls,
		UserMessage:    UserMessage(cls),
		ShouldRetry:    pol.Retryable(),
		Err:            err,
	}
}

// Attempts reports the recorded attempt count for a request id.
func (e *Executor) Attempts(requestID string) int {
	return e.attemptCount(requestID)
}

func (e *Executor) attemptCount(requestID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.attempts[requestID]; ok {
		return rec.count
	}
	return 0
}

func (e *Executor) recordAttempt(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.attempts[requestID]
	if !ok {
		rec = &attemptRecord{}
		e.attempts[requestID] = rec
	}
	rec.count++
	rec.lastAttempt = e.now()
}

func (e *Executor) clear(requestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attempts, requestID)
}

// Sweep purges attempt records older than the staleness threshold.
func (e *Executor) Sweep() {
	cutoff := e.now().Add(-e.recordMaxAge)
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, rec := range e.attempts {
		if rec.lastAttempt.Before(cutoff) {
			delete(e.attempts, id)
		}
	}
}

// Run executes the periodic record sweep until the context is cancelled.
func (e *Executor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Sweep()
		}
	}
}
