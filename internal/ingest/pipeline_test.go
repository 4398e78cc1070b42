package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]bool
	err   error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, words []string) ([]embedding.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), words...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]embedding.Result, len(words))
	for i, w := range words {
		if f.fail[w] {
			out[i] = embedding.Result{Word: w, Err: apperrors.ErrGenerationFailed}
			continue
		}
		out[i] = embedding.Result{Word: w, Vector: vectorFor(w)}
	}
	return out, nil
}

func (f *fakeEmbedder) embedded() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c...)
	}
	return out
}

func vectorFor(word string) store.Vector {
	return store.NewVector([]float64{float64(len(word)), float64(word[0])})
}

type recordingSink struct {
	events []kafka.Event
	err    error
}

func (s *recordingSink) PublishBatch(_ context.Context, events []kafka.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

type recordingRecorder struct{ reports []*Report }

func (r *recordingRecorder) SaveRun(_ context.Context, report *Report) error {
	r.reports = append(r.reports, report)
	return nil
}

func openStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	s, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunPopulatesStore(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	emb := &fakeEmbedder{}
	sink := &recordingSink{}
	inv := &countingInvalidator{}
	rec := &recordingRecorder{}
	p := New(s, emb, Options{BatchSize: 2}, WithEvents(sink), WithInvalidator(inv), WithRecorder(rec), WithMetrics(metrics.New(nil)))

	report, err := p.Run(context.Background(), []string{"katt", " bok", "", "katt", "apa", "hund"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Generated)
	assert.Zero(t, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.Equal(t, [][]string{{"apa", "bok"}, {"hund", "katt"}}, emb.calls)
	assert.Len(t, sink.events, 4)
	assert.Equal(t, 1, inv.calls)
	require.Len(t, rec.reports, 1)
	assert.Same(t, report, rec.reports[0])

	// Flushed by Run: a fresh store sees every word.
	fresh, err := store.Open(dir)
	require.NoError(t, err)
	defer fresh.Close()
	for _, w := range []string{"apa", "bok", "hund", "katt"} {
		v, ok, err := fresh.Get(w)
		require.NoError(t, err)
		require.True(t, ok, w)
		assert.True(t, v.Equal(vectorFor(w)))
	}
}

func TestRunSkipsExistingWords(t *testing.T) {
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Set("bok", store.NewVector([]float64{9, 9})))
	emb := &fakeEmbedder{}
	inv := &countingInvalidator{}
	p := New(s, emb, Options{BatchSize: 10}, WithInvalidator(inv))

	report, err := p.Run(context.Background(), []string{"bok", "katt"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, []string{"katt"}, emb.embedded())

	v, _, err := s.Get("bok")
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9}, v.Values())

	report, err = p.Run(context.Background(), []string{"bok", "katt"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Generated)
	assert.Equal(t, 1, inv.calls)
}

func TestRunHonoursLimit(t *testing.T) {
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Set("b", store.NewVector([]float64{1})))
	emb := &fakeEmbedder{}
	p := New(s, emb, Options{BatchSize: 10, Limit: 2})

	report, err := p.Run(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, emb.embedded())
	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.LimitReached)
}

func TestRunReportsFailedWords(t *testing.T) {
	s := openStore(t, t.TempDir())
	emb := &fakeEmbedder{fail: map[string]bool{"bok": true}}
	sink := &recordingSink{}
	p := New(s, emb, Options{BatchSize: 10}, WithEvents(sink))

	report, err := p.Run(context.Background(), []string{"apa", "bok", "katt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
	assert.Equal(t, apperrors.ExitPartial, apperrors.ExitCode(err))

	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bok", report.Failures[0].Word)
	assert.Equal(t, StatusFailed, report.Failures[0].Status)

	_, ok, err := s.Get("bok")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get("katt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, sink.events, 3)
	failed := sink.events[1].Value.(WordEvent)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, report.RunID, sink.events[1].Headers["run_id"])
}

func TestRunWholeBatchFailureReportsEveryWord(t *testing.T) {
	s := openStore(t, t.TempDir())
	emb := &fakeEmbedder{err: errors.New("service unavailable")}
	p := New(s, emb, Options{BatchSize: 10})

	report, err := p.Run(context.Background(), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
	assert.Equal(t, 3, report.Failed)
	assert.Len(t, report.Failures, 3)
}

func TestRunRecordsInvalidWords(t *testing.T) {
	s := openStore(t, t.TempDir())
	emb := &fakeEmbedder{}
	p := New(s, emb, Options{BatchSize: 10})

	report, err := p.Run(context.Background(), []string{"ok", "bad\x01word", "bad\xff"})
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, []string{"ok"}, emb.embedded())
}

func TestRunEventFailuresAreNotFatal(t *testing.T) {
	s := openStore(t, t.TempDir())
	p := New(s, &fakeEmbedder{}, Options{BatchSize: 10}, WithEvents(&recordingSink{err: errors.New("broker down")}))
	report, err := p.Run(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
}

func TestRunCancelled(t *testing.T) {
	s := openStore(t, t.TempDir())
	emb := &fakeEmbedder{}
	p := New(s, emb, Options{BatchSize: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, report)
	assert.Empty(t, emb.calls)
}

func TestRunStoreErrorAborts(t *testing.T) {
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Close())
	p := New(s, &fakeEmbedder{}, Options{BatchSize: 10})

	_, err := p.Run(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, apperrors.ErrStoreClosed)
}

func TestRunLogsSpanTree(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug", "json")

	s := openStore(t, t.TempDir())
	report, err := New(s, &fakeEmbedder{}, Options{BatchSize: 1}).Run(context.Background(), []string{"apa", "bok"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"span":"ingest"`)
	assert.Contains(t, out, `"span":"embed-batch"`)
	assert.Contains(t, out, `"depth":1`)
	assert.Contains(t, out, `"run_id":"`+report.RunID+`"`)
}
