package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

const (
	shardExt = ".json"
	tmpExt   = ".tmp"
)

// ShardKey returns the lowercase first character of word. Every word with
// the same key lives in the same shard file.
func ShardKey(word string) (rune, error) {
	if word == "" {
		return 0, fmt.Errorf("%w: word must not be empty", apperrors.ErrInvalidInput)
	}
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError && size <= 1 {
		return 0, fmt.Errorf("%w: word %q is not valid UTF-8", apperrors.ErrInvalidInput, word)
	}
	return unicode.ToLower(r), nil
}

// ShardFileName maps a shard key to its backing file name: "<key>.json" for
// letters and digits, "u<hex codepoint>.json" for anything else so that
// separators and dots never reach the filesystem.
func ShardFileName(key rune) string {
	if unicode.IsLetter(key) || unicode.IsDigit(key) {
		return string(key) + shardExt
	}
	return fmt.Sprintf("u%04x%s", key, shardExt)
}

// shard is the in-memory form of one shard file.
type shard struct {
	key     rune
	path    string
	entries map[string]Vector
	dirty   bool
}

// loadShard reads the shard at path. A missing file yields an empty shard
// and fromDisk=false.
func loadShard(key rune, path string) (sh *shard, fromDisk bool, err error) {
	entries, err := readShardFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &shard{key: key, path: path, entries: make(map[string]Vector)}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &shard{key: key, path: path, entries: entries}, true, nil
}

// readShardFile decodes a shard document: a JSON object of word to encoded
// vector. Any parse or blob error is ErrCorruptShard.
func readShardFile(path string) (map[string]Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shard file %s: %w", path, err)
	}
	var raw map[string]string
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrCorruptShard, path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s does not contain a JSON object", apperrors.ErrCorruptShard, path)
	}
	entries := make(map[string]Vector, len(raw))
	for word, blob := range raw {
		v, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("word %q in %s: %w", word, path, err)
		}
		entries[word] = v
	}
	return entries, nil
}

// writeShardFile replaces the file at path with entries. It writes to a
// .tmp sibling, syncs, and renames, so readers never observe a partial
// shard.
func writeShardFile(path string, entries map[string]Vector) error {
	raw := make(map[string]string, len(entries))
	for word, v := range entries {
		raw[word] = v.Encode()
	}
	data, err := gojson.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshaling shard %s: %w", path, err)
	}

	tmpPath := path + tmpExt
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp shard file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing shard %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing shard %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing shard %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming shard %s: %w", path, err)
	}
	return nil
}

// listShardFiles returns the shard file names in dir in lexical order.
func listShardFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), shardExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
