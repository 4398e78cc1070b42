// Package wordsource produces the word lists the store is populated from:
// filters over linguistic resources and plain one-word-per-line files.
package wordsource

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

const maxWordLength = 256

// ValidateWord rejects words that cannot be stored: empty, surrounded by
// whitespace, not UTF-8, containing control characters, or too long.
func ValidateWord(word string) error {
	switch {
	case word == "":
		return fmt.Errorf("%w: word is empty", apperrors.ErrInvalidInput)
	case strings.TrimSpace(word) != word:
		return fmt.Errorf("%w: word %q has surrounding whitespace", apperrors.ErrInvalidInput, word)
	case !utf8.ValidString(word):
		return fmt.Errorf("%w: word %q is not valid UTF-8", apperrors.ErrInvalidInput, word)
	case utf8.RuneCountInString(word) > maxWordLength:
		return fmt.Errorf("%w: word exceeds %d characters", apperrors.ErrInvalidInput, maxWordLength)
	}
	if strings.IndexFunc(word, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: word %q contains control characters", apperrors.ErrInvalidInput, word)
	}
	return nil
}

// ReadWords reads one word per line. Lines are trimmed, blank lines dropped,
// and the result is de-duplicated and sorted.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading word list: %w", err)
	}
	slices.Sort(words)
	return slices.Compact(words), nil
}
