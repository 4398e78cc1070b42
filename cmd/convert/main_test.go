package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

const unimorphInput = "katt\tkatt\tN;NOM;SG;INDF\nbroken\nbok\tbok\tN;NOM;SG;INDF\n"

func TestRunSkipsBadEntries(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(strings.NewReader(unimorphInput), &out, "unimorph", false))
	assert.Equal(t, "katt\nbok\n", out.String())
}

func TestRunStrictAborts(t *testing.T) {
	var out bytes.Buffer
	err := run(strings.NewReader(unimorphInput), &out, "unimorph", true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitData, apperrors.ExitCode(err))
	assert.Equal(t, "katt\n", out.String())
}

func TestRunFatalInputAborts(t *testing.T) {
	var out bytes.Buffer
	err := run(strings.NewReader(`{"words":`), &out, "lexin", false)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestRunUnknownFormat(t *testing.T) {
	err := run(strings.NewReader(""), &bytes.Buffer{}, "csv", false)
	assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))
}
