// Package ranker orders every stored word by cosine distance to a root word.
package ranker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/tracing"
)

// cancelCheckEvery bounds how many entries are processed between context
// checks.
const cancelCheckEvery = 1024

// Corpus is the full-scan view of the store the ranker consumes.
type Corpus interface {
	Entries() iter.Seq2[store.Entry, error]
}

// Neighbor is one ranked word.
type Neighbor struct {
	Word     string
	Distance float64
}

// Degenerate reports whether the distance is the undefined-distance
// sentinel.
func (n Neighbor) Degenerate() bool {
	return n.Distance == DegenerateDistance
}

type Ranker struct {
	corpus  Corpus
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(corpus Corpus, m *metrics.Metrics) *Ranker {
	return &Ranker{
		corpus:  corpus,
		metrics: m,
		logger:  slog.Default().With("component", "ranker"),
	}
}

// Rank loads the whole corpus and returns every word ordered by ascending
// cosine distance to root, ties broken by word. It fails without partial
// output if root is absent (ErrWordNotFound), has a zero norm
// (ErrDegenerateVector), or any candidate's dimension differs from root's
// (ErrDimensionMismatch). Other zero-norm candidates get DegenerateDistance.
// The root itself is always first, at distance exactly 0.
func (r *Ranker) Rank(ctx context.Context, root string) ([]Neighbor, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "rank")
	span.SetAttr("root", root)
	defer func() {
		span.End()
		span.Log(ctx, r.logger)
	}()

	corpus, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	rootVec, ok := corpus[root]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrWordNotFound, apperrors.ExitNotFound, "word %q not found in the database", root)
	}
	rootNorm := norm(rootVec)
	if !usableNorm(rootNorm) {
		return nil, fmt.Errorf("root %q: %w", root, apperrors.ErrDegenerateVector)
	}

	_, scoreSpan := tracing.StartSpan(ctx, "score")
	result := make([]Neighbor, 0, len(corpus))
	degenerate := 0
	for word, v := range corpus {
		if len(result)%cancelCheckEvery == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if v.Dim() != rootVec.Dim() {
			return nil, fmt.Errorf("%w: word %q has %d components, root %q has %d",
				apperrors.ErrDimensionMismatch, word, v.Dim(), root, rootVec.Dim())
		}
		if word == root {
			result = append(result, Neighbor{Word: word, Distance: 0})
			continue
		}
		d, err := cosineWithNorm(rootVec, rootNorm, v)
		if errors.Is(err, apperrors.ErrDegenerateVector) {
			degenerate++
			d = DegenerateDistance
		}
		result = append(result, Neighbor{Word: word, Distance: d})
	}
	scoreSpan.End()

	_, sortSpan := tracing.StartSpan(ctx, "sort")
	slices.SortFunc(result, func(a, b Neighbor) int {
		return compareNeighbors(root, a, b)
	})
	sortSpan.End()

	if degenerate > 0 {
		r.logger.Warn("degenerate vectors ranked last", "count", degenerate)
	}
	span.SetAttr("words", len(result))
	r.metrics.Ranked(time.Since(start).Seconds(), len(result), degenerate)
	r.logger.Info("ranking complete",
		"root", root,
		"words", len(result),
		"degenerate", degenerate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (r *Ranker) load(ctx context.Context) (map[string]store.Vector, error) {
	_, span := tracing.StartSpan(ctx, "scan")
	defer span.End()

	corpus := make(map[string]store.Vector)
	n := 0
	for e, err := range r.corpus.Entries() {
		if err != nil {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		n++
		if n%cancelCheckEvery == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		corpus[e.Word] = e.Vector
	}
	span.SetAttr("words", len(corpus))
	return corpus, nil
}

// compareNeighbors orders by distance, then puts root ahead of any word at
// the same distance, then orders by word.
func compareNeighbors(root string, a, b Neighbor) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	if a.Word != b.Word {
		switch root {
		case a.Word:
			return -1
		case b.Word:
			return 1
		}
	}
	return cmp.Compare(a.Word, b.Word)
}
