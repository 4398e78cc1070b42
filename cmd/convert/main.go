// Command convert filters a linguistic resource read from stdin into a word
// list on stdout, one word per line.
//
// Usage:
//
//	go run ./cmd/convert -from-format unimorph < swe.tsv > words.txt
//	go run ./cmd/convert -from-format lexin [-strict] < lexin.json > words.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/wordsource"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/logger"
)

func main() {
	format := flag.String("from-format", "", "input format: unimorph or lexin (required)")
	strict := flag.Bool("strict", false, "abort on the first entry that cannot be read")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	if err := run(os.Stdin, os.Stdout, *format, *strict); err != nil {
		slog.Error("convert failed", "format", *format, "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

// run writes every word of the source to out. Unreadable entries are logged
// and skipped, or abort the conversion when strict is set. Failures of the
// input itself always abort.
func run(in io.Reader, out io.Writer, format string, strict bool) error {
	source, err := wordsource.ByFormat(format)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	written, skipped := 0, 0
	for res := range source(in) {
		if res.Err != nil {
			if strict || res.Fatal {
				w.Flush()
				return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitData, "%v", res.Err)
			}
			slog.Warn("skipping entry", "error", res.Err)
			skipped++
			continue
		}
		if _, err := fmt.Fprintln(w, res.Word); err != nil {
			return fmt.Errorf("writing word list: %w", err)
		}
		written++
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing word list: %w", err)
	}
	slog.Info("conversion finished", "words", written, "skipped", skipped)
	return nil
}
