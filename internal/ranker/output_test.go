package ranker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRanking(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRanking(&buf, []Neighbor{
		{Word: "A", Distance: 0},
		{Word: "C", Distance: 0.25},
		{Word: "B", Distance: 1},
		{Word: "Z", Distance: DegenerateDistance},
	})
	require.NoError(t, err)
	assert.Equal(t, "A: 0\nC: 0.25\nB: 1\nZ: inf\n", buf.String())
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "2", FormatDistance(2))
	assert.Equal(t, "1e-07", FormatDistance(1e-7))
	assert.Equal(t, "0.1", FormatDistance(0.1))
}
