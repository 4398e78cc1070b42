package ranker

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// FormatDistance renders d in its shortest round-trip form; the degenerate
// sentinel prints as "inf".
func FormatDistance(d float64) string {
	if d == DegenerateDistance {
		return "inf"
	}
	return strconv.FormatFloat(d, 'g', -1, 64)
}

// WriteRanking writes one "word: distance" line per neighbor, in order.
func WriteRanking(w io.Writer, ranking []Neighbor) error {
	bw := bufio.NewWriter(w)
	for _, n := range ranking {
		if _, err := fmt.Fprintf(bw, "%s: %s\n", n.Word, FormatDistance(n.Distance)); err != nil {
			return fmt.Errorf("writing ranking: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing ranking: %w", err)
	}
	return nil
}
