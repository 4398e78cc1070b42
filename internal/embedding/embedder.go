// Package embedding turns words into vectors through an external
// embedding-producing service. Every word handed to a Generator comes back as
// exactly one Result, success or failure.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
)

// Embedder produces one vector per word. EmbedBatch returns one Result per
// input word, in input order. A non-nil error means the whole batch failed;
// individual failures are carried in Result.Err.
type Embedder interface {
	EmbedBatch(ctx context.Context, words []string) ([]Result, error)
}

// Result is the outcome for a single word.
type Result struct {
	Word   string
	Vector store.Vector
	Err    error
}

// OK reports whether the word received a vector.
func (r Result) OK() bool {
	return r.Err == nil && r.Vector.Dim() > 0
}

// NewFromConfig builds the configured provider wrapped in rate limiting,
// retry and a circuit breaker.
func NewFromConfig(cfg config.EmbeddingConfig, m *metrics.Metrics) (Embedder, error) {
	switch cfg.Provider {
	case "openai", "":
		client, err := NewOpenAI(cfg, &http.Client{})
		if err != nil {
			return nil, err
		}
		return NewResilient(client, cfg, m), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown embedding provider %q", cfg.Provider)
	}
}

// failAll reports err for every word of a batch.
func failAll(words []string, err error) []Result {
	out := make([]Result, len(words))
	for i, w := range words {
		out[i] = Result{Word: w, Err: err}
	}
	return out
}

func generationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrGenerationFailed, fmt.Sprintf(format, args...))
}

func wrapGeneration(err error) error {
	if errors.Is(err, apperrors.ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, err)
}
