package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/tracing"
)

const defaultBatchSize = 100

// BatchHandler receives the results of one batch. An error from the handler
// stops the generator and is returned to the caller of Add or Flush.
type BatchHandler func(ctx context.Context, results []Result) error

// Generator accumulates words and embeds them in batches of a fixed size.
// A batch is sent when it is full and on Flush. It is not safe for
// concurrent use.
type Generator struct {
	embedder  Embedder
	batchSize int
	pending   []string
	handle    BatchHandler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewGenerator(embedder Embedder, batchSize int, handle BatchHandler, m *metrics.Metrics) *Generator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Generator{
		embedder:  embedder,
		batchSize: batchSize,
		pending:   make([]string, 0, batchSize),
		handle:    handle,
		metrics:   m,
		logger:    slog.Default().With("component", "embedding-generator"),
	}
}

// Add queues word and sends the batch once it reaches the batch size.
func (g *Generator) Add(ctx context.Context, word string) error {
	g.pending = append(g.pending, word)
	if len(g.pending) >= g.batchSize {
		return g.Flush(ctx)
	}
	return nil
}

// Pending returns the number of queued words not yet sent.
func (g *Generator) Pending() int {
	return len(g.pending)
}

// Flush embeds every queued word and hands the results to the handler. A
// whole-batch failure is reported as a failed Result for each word. Only
// cancellation and handler errors are returned. The batch span is logged here
// unless ctx already carries a span that owns it.
func (g *Generator) Flush(ctx context.Context) error {
	if len(g.pending) == 0 {
		return nil
	}
	batch := g.pending
	g.pending = make([]string, 0, g.batchSize)

	parent := tracing.SpanFromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "embed-batch")
	span.SetAttr("words", len(batch))
	defer func() {
		span.End()
		if parent == nil {
			span.Log(ctx, g.logger)
		}
	}()

	start := time.Now()
	results, err := g.embedder.EmbedBatch(ctx, batch)
	g.metrics.EmbeddingBatch(time.Since(start).Seconds())
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("embedding batch of %d words: %w", len(batch), ctx.Err())
	}
	switch {
	case err != nil:
		g.logger.Error("embedding batch failed", "words", len(batch), "error", err)
		results = failAll(batch, wrapGeneration(err))
	case len(results) != len(batch):
		err = generationError("service returned %d results for %d words", len(results), len(batch))
		g.logger.Error("embedding batch size mismatch", "error", err)
		results = failAll(batch, err)
	default:
		for i := range results {
			results[i].Word = batch[i]
			if results[i].Err == nil && results[i].Vector.Dim() == 0 {
				results[i].Err = generationError("empty vector for %q", batch[i])
			}
		}
	}

	failed := 0
	for _, r := range results {
		g.metrics.Embedding(r.OK())
		if !r.OK() {
			failed++
		}
	}
	span.SetAttr("failed", failed)
	g.logger.Debug("embedding batch done",
		"words", len(batch),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return g.handle(ctx, results)
}
