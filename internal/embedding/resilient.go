package embedding

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/resilience"
)

const breakerName = "embedding"

// Resilient guards an Embedder. Each attempt waits for the rate limiter and
// runs under a timeout; failed attempts are retried with backoff, and the
// whole call goes through a circuit breaker. Per-word failures inside a
// successful response are not retried.
type Resilient struct {
	inner   Embedder
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	timeout time.Duration
	logger  *slog.Logger
}

func NewResilient(inner Embedder, cfg config.EmbeddingConfig, m *metrics.Metrics) *Resilient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	logger := slog.Default().With("component", "resilient-embedder")
	breaker := resilience.NewCircuitBreaker(breakerName, resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			m.BreakerState(name, int(to))
		},
	})
	m.BreakerState(breakerName, int(resilience.StateClosed))
	return &Resilient{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Retryable:    Retryable,
		},
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (r *Resilient) EmbedBatch(ctx context.Context, words []string) ([]Result, error) {
	var results []Result
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		results, err = resilience.Retry(ctx, "embed-batch", r.retry, func(ctx context.Context, attempt int) ([]Result, error) {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			if attempt > 1 {
				r.logger.Debug("retrying embedding batch", "attempt", attempt, "words", len(words))
			}
			return resilience.WithTimeout(ctx, r.timeout, "embed-batch", func(ctx context.Context) ([]Result, error) {
				return r.inner.EmbedBatch(ctx, words)
			})
		})
		return err
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			r.logger.Warn("embedding service circuit open", "words", len(words))
		}
		return nil, err
	}
	return results, nil
}

// Retryable reports whether a whole-batch failure may succeed on another
// attempt: rate limiting, timeouts, server errors and transport failures.
// Client errors and caller cancellation are final.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrInvalidInput) {
		return false
	}
	if errors.Is(err, apperrors.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, apperrors.ErrGenerationFailed)
}
