package wordsource

import (
	"errors"
	"iter"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

func collect(seq iter.Seq[Result]) (words []string, errs []error) {
	for r := range seq {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		words = append(words, r.Word)
	}
	return words, errs
}

func TestUnimorph(t *testing.T) {
	input := strings.Join([]string{
		"katt\tkatt\tN;NOM;SG;INDF",
		"katt\tkatten\tN;NOM;SG;DEF",
		"hund\thundar\tN;NOM;PL;INDF",
		"",
		"springa\tspringer\tV;IND;PRS",
		"bok\tbok\tINDF;SG;NOM;N",
	}, "\n")

	words, errs := collect(Unimorph(strings.NewReader(input)))
	assert.Empty(t, errs)
	assert.Equal(t, []string{"katt", "bok"}, words)
}

func TestUnimorphMalformedLineIsPerItem(t *testing.T) {
	input := "katt\tkatt\tN;NOM;SG;INDF\nbroken line\nbok\tbok\tN;NOM;SG;INDF\n"
	words, errs := collect(Unimorph(strings.NewReader(input)))
	assert.Equal(t, []string{"katt", "bok"}, words)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperrors.ErrInvalidInput)
	assert.Contains(t, errs[0].Error(), "line 2")

	for r := range Unimorph(strings.NewReader(input)) {
		assert.False(t, r.Fatal)
	}
}

func TestUnimorphReaderFailure(t *testing.T) {
	words, errs := collect(Unimorph(iotest.ErrReader(errors.New("disk gone"))))
	assert.Empty(t, words)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "disk gone")
}

func TestUnimorphStopsWhenConsumerStops(t *testing.T) {
	input := "a\ta\tN;NOM;SG;INDF\nb\tb\tN;NOM;SG;INDF\n"
	var got []string
	for r := range Unimorph(strings.NewReader(input)) {
		got = append(got, r.Word)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestLexin(t *testing.T) {
	input := `{"words":[
		{"pos":"subst.","form":"katt"},
		{"pos":"subst.","form":"bok~hylla"},
		{"pos":"verb","form":"springa"},
		{"pos":"subst.","form":"New York"},
		{"pos":"subst.","form":"e-post"},
		{"pos":"subst.","form":"Sverige"},
		{"form":"utan"},
		{"pos":"subst.","form":"ö~"}
	]}`
	words, errs := collect(Lexin(strings.NewReader(input)))
	assert.Empty(t, errs)
	assert.Equal(t, []string{"katt", "bokhylla", "ö"}, words)
}

func TestLexinBadEntryIsPerItem(t *testing.T) {
	input := `{"words":[
		{"pos":"subst.","form":"katt"},
		{"pos":"subst."},
		"not an object",
		{"pos":"subst.","form":"hund"}
	]}`
	words, errs := collect(Lexin(strings.NewReader(input)))
	assert.Equal(t, []string{"katt", "hund"}, words)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestLexinBadDocument(t *testing.T) {
	for _, input := range []string{`{"words":`, `{"entries":[]}`} {
		var results []Result
		for r := range Lexin(strings.NewReader(input)) {
			results = append(results, r)
		}
		require.Len(t, results, 1, input)
		assert.True(t, results[0].Fatal)
		assert.ErrorIs(t, results[0].Err, apperrors.ErrInvalidInput)
	}
}

func TestByFormat(t *testing.T) {
	for _, name := range []string{"unimorph", "lexin"} {
		src, err := ByFormat(name)
		require.NoError(t, err)
		assert.NotNil(t, src)
	}
	_, err := ByFormat("wordnet")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
}

func TestReadWords(t *testing.T) {
	words, err := ReadWords(strings.NewReader("  katt\nbok\n\nkatt\r\nälg\n   \nBok\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bok", "bok", "katt", "älg"}, words)
}

func TestReadWordsReaderFailure(t *testing.T) {
	_, err := ReadWords(iotest.ErrReader(errors.New("boom")))
	require.Error(t, err)
}

func TestValidateWord(t *testing.T) {
	valid := []string{"katt", "Älg", "ice cream", "x"}
	for _, w := range valid {
		assert.NoError(t, ValidateWord(w), w)
	}
	invalid := []string{"", " katt", "katt\n", "a\tb", "bad\xff", strings.Repeat("a", 257)}
	for _, w := range invalid {
		err := ValidateWord(w)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "%q", w)
	}
}
