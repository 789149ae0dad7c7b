package transport

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/repoq/internal/model"
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 2 * time.Second
	defaultMaxDelay       = 60 * time.Second
	defaultAttemptTimeout = 30 * time.Second
	defaultResetWaitCap   = 5 * time.Minute
	defaultSafetyMargin   = time.Second
)

// Config tunes the retry and rate-limit behavior of a Runner.
type Config struct {
	MaxAttempts    int           `yaml:"max_attempts" env:"TRANSPORT_MAX_ATTEMPTS"`
	BaseDelay      time.Duration `yaml:"base_delay" env:"TRANSPORT_BASE_DELAY"`
	MaxDelay       time.Duration `yaml:"max_delay" env:"TRANSPORT_MAX_DELAY"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"TRANSPORT_ATTEMPT_TIMEOUT"`
	ResetWaitCap   time.Duration `yaml:"reset_wait_cap" env:"TRANSPORT_RESET_WAIT_CAP"`
	SafetyMargin   time.Duration `yaml:"safety_margin" env:"TRANSPORT_SAFETY_MARGIN"`
}

func (cfg *Config) PrepareAndValidate() error {
	cfg.MaxAttempts = lang.Check(cfg.MaxAttempts, defaultMaxAttempts)
	cfg.BaseDelay = lang.Check(cfg.BaseDelay, defaultBaseDelay)
	cfg.MaxDelay = lang.Check(cfg.MaxDelay, defaultMaxDelay)
	cfg.AttemptTimeout = lang.Check(cfg.AttemptTimeout, defaultAttemptTimeout)
	cfg.ResetWaitCap = lang.Check(cfg.ResetWaitCap, defaultResetWaitCap)
	cfg.SafetyMargin = lang.Check(cfg.SafetyMargin, defaultSafetyMargin)
	return nil
}

// Meta describes one response of a host API call as far as the transport
// layer cares: the status code and the rate-limit headers.
type Meta struct {
	StatusCode    int
	RateRemaining int
	RateLimit     int
	RateReset     time.Time
	RetryAfter    time.Duration
	HasRate       bool
}

// Call performs a single attempt of one host API request and reports the
// response metadata. The attempt context carries the per-attempt timeout.
type Call func(ctx context.Context) (Meta, error)

// Runner executes host API calls with a rate-limit wait gate, bounded
// retries on transient failures and exact status classification. It owns
// the shared RateLimitState; concurrent workers all funnel through it.
type Runner struct {
	rate RateLimitState
	cfg  Config
	log  logze.Logger

	rndMu sync.Mutex // rand.Rand is not goroutine safe
	rnd   *rand.Rand
}

// NewRunner creates a transport runner.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg: cfg,
		log: logze.With("component", "transport"),
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	return r, nil
}

// RateLimit returns the last observed rate-limit state.
func (r *Runner) RateLimit() (remaining, limit int, reset time.Time) {
	return r.rate.Snapshot()
}

// Do runs one logical request. It waits out an exhausted rate limit before
// sending, retries 5xx and connection-level failures with exponential
// backoff plus jitter, waits on 403/429 rate-limit responses, and maps
// terminal statuses to the pipeline error taxonomy. Rate-limit retries use
// an explicit attempt counter, never recursion.
func (r *Runner) Do(ctx context.Context, op string, call Call) error {
	var lastErr error
	var rateLimited bool
	var resetAt time.Time

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if wait := r.rate.delayUntilReset(time.Now(), r.cfg.SafetyMargin, r.cfg.ResetWaitCap); wait > 0 {
			r.log.Debug("rate limit exhausted, waiting for reset", "op", op, "wait", wait.String())
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		meta, err := call(attemptCtx)
		cancel()

		if meta.HasRate {
			r.rate.Update(meta.RateRemaining, meta.RateLimit, meta.RateReset)
		}

		if err == nil && meta.StatusCode < http.StatusBadRequest {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case meta.StatusCode == http.StatusNotFound:
			return model.ErrNotFound

		case meta.StatusCode == http.StatusUnauthorized:
			return model.ErrUnauthorized

		case isRateLimit(meta):
			rateLimited = true
			resetAt = lang.If(meta.RateReset.IsZero(), time.Now().Add(meta.RetryAfter), meta.RateReset)
			wait := r.rateLimitWait(meta)
			r.log.Warn("rate limited by host", "op", op, "attempt", attempt, "wait", wait.String())
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			lastErr = errors.New("rate limited")

		case meta.StatusCode == http.StatusForbidden:
			// 403 without rate-limit markers means missing permissions.
			return model.ErrUnauthorized

		case meta.StatusCode >= http.StatusInternalServerError || meta.StatusCode == 0:
			lastErr = err
			if lastErr == nil {
				lastErr = errors.New(http.StatusText(meta.StatusCode))
			}
			delay := r.backoff(attempt)
			r.log.Debug("transient failure, retrying", "op", op, "attempt", attempt,
				"status", meta.StatusCode, "delay", delay.String())
			if err := sleep(ctx, delay); err != nil {
				return err
			}

		default:
			// Unexpected 4xx: not retryable, not part of the taxonomy.
			if err == nil {
				err = errors.New(http.StatusText(meta.StatusCode))
			}
			return &model.TransportError{Op: op, Attempts: attempt, Err: err}
		}
	}

	if rateLimited {
		return &model.RateLimitedError{ResetAt: resetAt}
	}
	return &model.TransportError{Op: op, Attempts: r.cfg.MaxAttempts, Err: lastErr}
}

// isRateLimit reports whether a 403/429 response is a rate-limit condition.
func isRateLimit(meta Meta) bool {
	if meta.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if meta.StatusCode != http.StatusForbidden {
		return false
	}
	return meta.RetryAfter > 0 || (meta.HasRate && meta.RateRemaining == 0)
}

// rateLimitWait decides how long to hold off after a rate-limit response.
func (r *Runner) rateLimitWait(meta Meta) time.Duration {
	wait := meta.RetryAfter
	if wait == 0 && !meta.RateReset.IsZero() {
		wait = time.Until(meta.RateReset) + r.cfg.SafetyMargin
	}
	wait = lang.Check(wait, r.cfg.BaseDelay)
	if wait > r.cfg.ResetWaitCap {
		wait = r.cfg.ResetWaitCap
	}
	return wait
}

// backoff computes the delay before the given retry attempt: the base delay
// doubling per attempt, capped, plus random jitter of up to the base delay
// so concurrent workers do not retry in lockstep.
func (r *Runner) backoff(attempt int) time.Duration {
	delay := r.cfg.BaseDelay << (attempt - 1)
	if delay > r.cfg.MaxDelay {
		delay = r.cfg.MaxDelay
	}
	r.rndMu.Lock()
	jitter := time.Duration(r.rnd.Int63n(int64(r.cfg.BaseDelay)))
	r.rndMu.Unlock()
	return delay + jitter
}
