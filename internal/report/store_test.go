package report

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/postgres"
)

func sampleReport() *ingest.Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &ingest.Report{
		RunID:      uuid.NewString(),
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Total:      4,
		Generated:  2,
		Skipped:    0,
		Failed:     1,
		Invalid:    1,
		Failures: []ingest.Outcome{
			{Word: "bok", Status: ingest.StatusFailed, Err: errors.New("no embedding returned")},
			{Word: "bad\x01", Status: ingest.StatusInvalid},
		},
	}
}

func TestFromReport(t *testing.T) {
	r := sampleReport()
	run, failures := fromReport(r)

	assert.Equal(t, r.RunID, run.RunID)
	assert.Equal(t, 2, run.Generated)
	assert.Equal(t, 1, run.Invalid)
	assert.Equal(t, r.FinishedAt, run.FinishedAt)
	require.Len(t, failures, 2)
	assert.Equal(t, Failure{Word: "bok", Status: "failed", Error: "no embedding returned"}, failures[0])
	assert.Equal(t, "", failures[1].Error)
}

// TestStoreRoundTrip needs a reachable PostgreSQL; set WV_TEST_POSTGRES_HOST
// to run it.
func TestStoreRoundTrip(t *testing.T) {
	host := os.Getenv("WV_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("WV_TEST_POSTGRES_HOST not set")
	}
	ctx := context.Background()
	db, err := postgres.New(ctx, config.PostgresConfig{
		Host:         host,
		Port:         5432,
		Database:     "wordvec",
		User:         "wordvec",
		Password:     "localdev",
		SSLMode:      "disable",
		MaxOpenConns: 2,
	})
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db)
	require.NoError(t, s.Migrate(ctx))

	r := sampleReport()
	r.StartedAt = time.Now().UTC().Truncate(time.Microsecond)
	r.FinishedAt = r.StartedAt.Add(time.Second)
	require.NoError(t, s.SaveRun(ctx, r))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, r.RunID, latest.RunID)
	assert.Equal(t, 1, latest.Failed)

	failures, err := s.Failures(ctx, r.RunID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "bad\x01", failures[0].Word)
	assert.Equal(t, "bok", failures[1].Word)

	// Same run ID twice violates the primary key and leaves nothing behind.
	err = s.SaveRun(ctx, r)
	require.Error(t, err)
}
