// Command rank prints every stored word ordered by cosine distance to a root
// word, one "word: distance" line per entry.
//
// Usage:
//
//	go run ./cmd/rank -word katt [-config configs/development.yaml] [-no-cache]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ranker/cache"
	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	word := flag.String("word", "", "root word to rank against (required)")
	dataDir := flag.String("data-dir", "", "store directory (overrides store.dataDir)")
	noCache := flag.Bool("no-cache", false, "bypass the redis rank cache")
	flag.Parse()

	if *word == "" {
		fmt.Fprintln(os.Stderr, "rank: -word is required")
		flag.Usage()
		os.Exit(apperrors.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	if *dataDir != "" {
		cfg.Store.DataDir = *dataDir
	}
	if *noCache {
		cfg.Redis.Enabled = false
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *word); err != nil {
		slog.Error("rank failed", "word", *word, "error", err)
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, root string) (err error) {
	if _, statErr := os.Stat(cfg.Store.DataDir); statErr != nil {
		return apperrors.Newf(apperrors.ErrWordNotFound, apperrors.ExitNotFound,
			"store directory %s: %v", cfg.Store.DataDir, statErr)
	}
	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	var rankCache *cache.RankCache
	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, ranking without cache", "error", err)
		} else {
			defer rdb.Close()
			rankCache = cache.New(rdb, cfg.Store.DataDir, cfg.Redis.CacheTTL, nil)
		}
	}

	rk := ranker.New(st, nil)
	ranking, cached, err := rankCache.GetOrCompute(ctx, root, func(ctx context.Context) ([]ranker.Neighbor, error) {
		return rk.Rank(ctx, root)
	})
	if err != nil {
		return err
	}
	slog.Debug("ranking ready", "root", root, "words", len(ranking), "cached", cached)
	return ranker.WriteRanking(os.Stdout, ranking)
}
