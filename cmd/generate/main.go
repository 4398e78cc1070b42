// Command generate fills the vector store with an embedding for every word of
// the word list that is not stored yet.
//
// Usage:
//
//	go run ./cmd/generate [-config configs/development.yaml] [-words words.txt] [-limit N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ranker/cache"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/report"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/wordsource"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	wordsFile := flag.String("words", "", "word list, one word per line (overrides ingest.wordsFile)")
	dataDir := flag.String("data-dir", "", "store directory (overrides store.dataDir)")
	limit := flag.Int("limit", -1, "embed at most N missing words (0 = no limit)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	if *wordsFile != "" {
		cfg.Ingest.WordsFile = *wordsFile
	}
	if *dataDir != "" {
		cfg.Store.DataDir = *dataDir
	}
	if *limit >= 0 {
		cfg.Ingest.Limit = *limit
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("generate failed", "error", err)
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	f, err := os.Open(cfg.Ingest.WordsFile)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "opening word list: %v", err)
	}
	words, err := wordsource.ReadWords(f)
	f.Close()
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
	}
	checker := health.NewChecker()
	checker.Register("store", health.DirCheck(cfg.Store.DataDir))

	embedder, err := embedding.NewFromConfig(cfg.Embedding, m)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.DataDir, store.WithMetrics(m))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	opts := []ingest.Option{ingest.WithMetrics(m)}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		opts = append(opts, ingest.WithEvents(producer))
		slog.Info("publishing outcome events", "topic", cfg.Kafka.Topic)
	}

	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, rank cache will not be invalidated", "error", err)
		} else {
			defer rdb.Close()
			checker.Register("redis", health.PingCheck(rdb.Ping))
			opts = append(opts, ingest.WithInvalidator(cache.New(rdb, cfg.Store.DataDir, cfg.Redis.CacheTTL, m)))
		}
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, run report will not be saved", "error", err)
		} else {
			defer db.Close()
			reports := report.NewStore(db)
			if err := reports.Migrate(ctx); err != nil {
				return err
			}
			checker.Register("postgres", health.PingCheck(db.Ping))
			opts = append(opts, ingest.WithRecorder(reports))
		}
	}

	if cfg.Metrics.Enabled {
		srv, err := metrics.StartServer(cfg.Metrics.Port, m, map[string]http.Handler{
			"/health/ready": checker.ReadyHandler(),
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	pipeline := ingest.New(st, embedder, ingest.Options{
		BatchSize: cfg.Embedding.BatchSize,
		Limit:     cfg.Ingest.Limit,
	}, opts...)

	rep, err := pipeline.Run(ctx, words)
	printSummary(rep)
	return err
}

func printSummary(rep *ingest.Report) {
	if rep == nil {
		return
	}
	for _, o := range rep.Failures {
		fmt.Fprintf(os.Stderr, "%s\t%s\t%v\n", o.Status, o.Word, o.Err)
	}
	fmt.Printf("run %s: %d words, %d generated, %d skipped, %d failed, %d invalid in %s\n",
		rep.RunID, rep.Total, rep.Generated, rep.Skipped, rep.Failed, rep.Invalid,
		rep.Duration().Round(time.Millisecond))
}
