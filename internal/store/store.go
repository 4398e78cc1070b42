// Package store is the persistent word-to-vector store. Words are sharded
// by their lowercase first character into one JSON file per shard, and at
// most one shard is held in memory at a time. Switching to another shard
// flushes the resident one first; every other flush is the caller's job, and
// Close must run on every exit path.
package store

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/metrics"
)

// Entry is one stored word and its vector.
type Entry struct {
	Word   string
	Vector Vector
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records shard loads, flushes and lookups in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store owns a data directory exclusively. It is not designed for concurrent
// writers; the mutex only keeps the resident-shard slot consistent.
type Store struct {
	dir     string
	mu      sync.Mutex
	current *shard
	closed  bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Open creates dir if needed and returns a Store with no shard resident.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store data directory: %w", err)
	}
	s := &Store{
		dir:    dir,
		logger: slog.Default().With("component", "vector-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the vector stored for word. ok is false when the word is
// absent; absence is not an error.
func (s *Store) Get(word string) (v Vector, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.resolve(word)
	if err != nil {
		return Vector{}, false, err
	}
	v, ok = sh.entries[word]
	s.metrics.Lookup(ok)
	return v, ok, nil
}

// Set stores v for word in the resident shard and marks it dirty. Nothing is
// written to disk until the shard is flushed.
func (s *Store) Set(word string, v Vector) error {
	if v.Dim() == 0 {
		return fmt.Errorf("%w: vector for %q must not be empty", apperrors.ErrInvalidInput, word)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.resolve(word)
	if err != nil {
		return err
	}
	sh.entries[word] = v
	sh.dirty = true
	s.metrics.Write()
	return nil
}

// Flush writes the resident shard to its file, replacing the previous
// contents. Flushing a clean shard, or with nothing resident, is a no-op.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	return s.flushLocked()
}

// Close flushes the resident shard and releases it. The store is unusable
// afterwards even if the final flush fails.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.current = nil
	s.closed = true
	if err != nil {
		return fmt.Errorf("final flush on close: %w", err)
	}
	s.logger.Debug("store closed", "data_dir", s.dir)
	return nil
}

// Entries yields every entry of every shard file in the data directory, in
// shard file order. It reads only what is on disk, independent of the
// resident shard: flush first to include buffered writes. A read or decode
// failure is yielded once as the error and ends the sequence. Each call
// re-scans the directory.
func (s *Store) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			yield(Entry{}, apperrors.ErrStoreClosed)
			return
		}

		names, err := listShardFiles(s.dir)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		for _, name := range names {
			entries, err := readShardFile(filepath.Join(s.dir, name))
			if err != nil {
				yield(Entry{}, err)
				return
			}
			for word, v := range entries {
				if !yield(Entry{Word: word, Vector: v}, nil) {
					return
				}
			}
		}
	}
}

// resolve returns the shard owning word, switching the resident shard if
// needed. Callers hold s.mu.
func (s *Store) resolve(word string) (*shard, error) {
	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	key, err := ShardKey(word)
	if err != nil {
		return nil, err
	}
	if s.current != nil && s.current.key == key {
		return s.current, nil
	}
	if err := s.switchTo(key); err != nil {
		return nil, err
	}
	return s.current, nil
}

// switchTo flushes the resident shard and then loads the shard for key.
// The slot is replaced only after both steps succeed; on failure the old
// shard stays resident.
func (s *Store) switchTo(key rune) error {
	if err := s.flushLocked(); err != nil {
		return fmt.Errorf("flushing shard before switch: %w", err)
	}
	path := filepath.Join(s.dir, ShardFileName(key))
	sh, fromDisk, err := loadShard(key, path)
	if err != nil {
		return fmt.Errorf("loading shard %q: %w", string(key), err)
	}
	s.metrics.ShardLoaded(fromDisk)
	s.logger.Debug("shard loaded",
		"shard", string(key),
		"path", path,
		"from_disk", fromDisk,
		"words", len(sh.entries),
	)
	s.current = sh
	return nil
}

func (s *Store) flushLocked() error {
	sh := s.current
	if sh == nil || !sh.dirty {
		s.metrics.ShardFlushed("clean")
		return nil
	}
	if err := writeShardFile(sh.path, sh.entries); err != nil {
		s.metrics.ShardFlushed("error")
		return err
	}
	sh.dirty = false
	s.metrics.ShardFlushed("written")
	s.logger.Info("shard flushed",
		"shard", string(sh.key),
		"path", sh.path,
		"words", len(sh.entries),
	)
	return nil
}
