package wordsource

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode"

	gojson "github.com/goccy/go-json"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

// Result is one item from a source: a word, or the reason an entry could not
// be read. Fatal marks a failure of the input as a whole; it is always the
// last item. A failed entry alone never ends the sequence.
type Result struct {
	Word  string
	Err   error
	Fatal bool
}

// Source turns a linguistic resource into a lazy sequence of words.
type Source func(r io.Reader) iter.Seq[Result]

// ByFormat returns the source for a --from-format name.
func ByFormat(format string) (Source, error) {
	switch format {
	case "unimorph":
		return Unimorph, nil
	case "lexin":
		return Lexin, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown format %q (want unimorph or lexin)", format)
	}
}

// unimorphNounTags must all be present for a UniMorph line to count as the
// nominative singular indefinite form of a noun.
var unimorphNounTags = []string{"N", "NOM", "SG", "INDF"}

// Unimorph reads UniMorph TSV ("lemma<TAB>form<TAB>tag;tag;...") and yields
// the lemma of every nominative singular indefinite noun. Blank lines are
// ignored; a line without exactly three fields is a failed entry.
func Unimorph(r io.Reader) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			fields := strings.Split(text, "\t")
			if len(fields) != 3 {
				err := fmt.Errorf("%w: unimorph line %d: want 3 tab-separated fields, got %d", apperrors.ErrInvalidInput, line, len(fields))
				if !yield(Result{Err: err}) {
					return
				}
				continue
			}
			if !hasAllTags(fields[2], unimorphNounTags) {
				continue
			}
			if !yield(Result{Word: fields[0]}) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Result{Err: fmt.Errorf("reading unimorph input: %w", err), Fatal: true})
		}
	}
}

func hasAllTags(tags string, want []string) bool {
	set := make(map[string]struct{})
	for _, t := range strings.Split(tags, ";") {
		set[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

type lexinDocument struct {
	Words []gojson.RawMessage `json:"words"`
}

type lexinEntry struct {
	Pos  any `json:"pos"`
	Form any `json:"form"`
}

// Lexin reads a Lexin JSON export and yields lowercase single-word nouns
// ("subst."), with the "~" compound marker removed. Forms with spaces or
// hyphens are skipped.
func Lexin(r io.Reader) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		var doc lexinDocument
		if err := gojson.NewDecoder(r).Decode(&doc); err != nil {
			yield(Result{Err: fmt.Errorf("%w: decoding lexin document: %v", apperrors.ErrInvalidInput, err), Fatal: true})
			return
		}
		if doc.Words == nil {
			yield(Result{Err: fmt.Errorf("%w: lexin document has no \"words\" array", apperrors.ErrInvalidInput), Fatal: true})
			return
		}
		for i, raw := range doc.Words {
			word, ok, err := lexinWord(raw)
			if err != nil {
				if !yield(Result{Err: fmt.Errorf("lexin entry %d: %w", i, err)}) {
					return
				}
				continue
			}
			if !ok {
				continue
			}
			if !yield(Result{Word: word}) {
				return
			}
		}
	}
}

func lexinWord(raw gojson.RawMessage) (string, bool, error) {
	var entry lexinEntry
	if err := gojson.Unmarshal(raw, &entry); err != nil {
		return "", false, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if entry.Pos != "subst." {
		return "", false, nil
	}
	form, ok := entry.Form.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: noun entry has no string form: %s", apperrors.ErrInvalidInput, string(raw))
	}
	word := strings.ReplaceAll(form, "~", "")
	if word == "" || strings.ContainsAny(word, " -") {
		return "", false, nil
	}
	if strings.IndexFunc(word, unicode.IsUpper) >= 0 {
		return "", false, nil
	}
	return word, true, nil
}
