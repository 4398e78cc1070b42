package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/wordsource"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/tracing"
)

// Store is the part of the vector store the pipeline needs.
type Store interface {
	Get(word string) (store.Vector, bool, error)
	Set(word string, v store.Vector) error
	Flush() error
}

// EventSink receives per-word outcome events.
type EventSink interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Invalidator drops derived data made stale by new vectors.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Recorder persists finished run reports.
type Recorder interface {
	SaveRun(ctx context.Context, report *Report) error
}

// Options control a run. Limit caps how many missing words are sent for
// embedding; zero means no cap.
type Options struct {
	BatchSize int
	Limit     int
}

type Option func(*Pipeline)

func WithEvents(sink EventSink) Option {
	return func(p *Pipeline) { p.events = sink }
}

func WithInvalidator(inv Invalidator) Option {
	return func(p *Pipeline) { p.invalidator = inv }
}

func WithRecorder(rec Recorder) Option {
	return func(p *Pipeline) { p.recorder = rec }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline is not safe for concurrent Runs against the same store.
type Pipeline struct {
	store       Store
	embedder    embedding.Embedder
	opts        Options
	events      EventSink
	invalidator Invalidator
	recorder    Recorder
	metrics     *metrics.Metrics
}

func New(st Store, embedder embedding.Embedder, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{store: st, embedder: embedder, opts: opts}
	for _, o := range options {
		o(p)
	}
	return p
}

// run holds the state of a single Run call.
type run struct {
	*Pipeline
	report *Report
	logger *slog.Logger
}

// Run embeds every word of words that the store does not hold yet. Words are
// trimmed, de-duplicated and processed in sorted order. A word that cannot be
// embedded is recorded and the run continues; the returned error then wraps
// ErrGenerationFailed. Store failures and cancellation abort the run. The
// report is returned in every case.
func (p *Pipeline) Run(ctx context.Context, words []string) (*Report, error) {
	r := &run{
		Pipeline: p,
		report:   &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()},
	}
	ctx = logger.WithRunID(ctx, r.report.RunID)
	r.logger = logger.FromContext(ctx).With("component", "ingest")
	ctx, span := tracing.StartSpan(ctx, "ingest")
	span.SetAttr("run_id", r.report.RunID)
	defer func() {
		span.End()
		span.Log(ctx, r.logger)
	}()

	words = normalize(words)
	r.report.Total = len(words)
	r.logger.Info("ingestion started",
		"words", len(words),
		"limit", p.opts.Limit,
		"batch_size", p.opts.BatchSize,
	)

	err := r.process(ctx, words)
	if err == nil {
		if err = p.store.Flush(); err != nil {
			err = fmt.Errorf("flushing store: %w", err)
		}
	}
	r.report.FinishedAt = time.Now().UTC()
	r.finish(ctx)
	span.SetAttr("generated", r.report.Generated)
	span.SetAttr("failed", r.report.Failed)

	if err != nil {
		r.logger.Error("ingestion aborted", "error", err)
		return r.report, err
	}
	if failed := r.report.Failed + r.report.Invalid; failed > 0 {
		return r.report, apperrors.Newf(apperrors.ErrGenerationFailed, apperrors.ExitPartial,
			"%d of %d words could not be embedded", failed, r.report.Total)
	}
	return r.report, nil
}

func (r *run) process(ctx context.Context, words []string) error {
	gen := embedding.NewGenerator(r.embedder, r.opts.BatchSize, r.handleBatch, r.metrics)
	queued := 0
	for _, word := range words {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingestion cancelled: %w", err)
		}
		if err := wordsource.ValidateWord(word); err != nil {
			r.logger.Warn("invalid word", "word", word, "error", err)
			r.report.record(Outcome{Word: word, Status: StatusInvalid, Err: err})
			continue
		}
		_, ok, err := r.store.Get(word)
		if err != nil {
			return fmt.Errorf("looking up %q: %w", word, err)
		}
		if ok {
			r.logger.Debug("embedding already exists", "word", word)
			r.report.record(Outcome{Word: word, Status: StatusSkipped})
			r.metrics.Skipped()
			continue
		}
		if r.opts.Limit > 0 && queued >= r.opts.Limit {
			r.report.LimitReached = true
			break
		}
		queued++
		if err := gen.Add(ctx, word); err != nil {
			return err
		}
	}
	return gen.Flush(ctx)
}

// handleBatch stores successful vectors and records every result. A store
// error stops the run.
func (r *run) handleBatch(ctx context.Context, results []embedding.Result) error {
	events := make([]kafka.Event, 0, len(results))
	for _, res := range results {
		event := WordEvent{RunID: r.report.RunID, Word: res.Word, OccurredAt: time.Now().UTC()}
		if res.OK() {
			if err := r.store.Set(res.Word, res.Vector); err != nil {
				return fmt.Errorf("storing %q: %w", res.Word, err)
			}
			r.report.record(Outcome{Word: res.Word, Status: StatusGenerated})
			r.logger.Debug("embedding generated", "word", res.Word, "dimensions", res.Vector.Dim())
			event.Status = StatusGenerated
			event.Dimensions = res.Vector.Dim()
		} else {
			r.report.record(Outcome{Word: res.Word, Status: StatusFailed, Err: res.Err})
			r.logger.Error("embedding failed", "word", res.Word, "error", res.Err)
			event.Status = StatusFailed
			event.Error = errString(res.Err)
		}
		events = append(events, kafka.Event{
			Key:     res.Word,
			Value:   event,
			Headers: map[string]string{"run_id": r.report.RunID},
		})
	}
	if r.events != nil {
		if err := r.events.PublishBatch(ctx, events); err != nil {
			r.logger.Warn("publishing outcome events failed", "events", len(events), "error", err)
		}
	}
	return nil
}

// finish runs the post-run side effects. Their failures are logged, never
// returned: the vectors are already stored.
func (r *run) finish(ctx context.Context) {
	if r.report.Generated > 0 && r.invalidator != nil {
		if err := r.invalidator.Invalidate(ctx); err != nil {
			r.logger.Warn("rank cache invalidation failed", "error", err)
		}
	}
	if r.recorder != nil {
		if err := r.recorder.SaveRun(context.WithoutCancel(ctx), r.report); err != nil {
			r.logger.Warn("saving run report failed", "error", err)
		}
	}
	r.logger.Info("ingestion finished",
		"total", r.report.Total,
		"generated", r.report.Generated,
		"skipped", r.report.Skipped,
		"failed", r.report.Failed,
		"invalid", r.report.Invalid,
		"limit_reached", r.report.LimitReached,
		"duration_ms", r.report.Duration().Milliseconds(),
	)
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func errString(err error) string {
	if err == nil {
		return "no vector returned"
	}
	return err.Error()
}
