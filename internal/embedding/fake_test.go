package embedding

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
)

// fakeEmbedder maps each word to a vector derived from its length. Words in
// failWords fail individually; batchErrs are returned, one per call, before
// any batch succeeds.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     [][]string
	failWords map[string]error
	batchErrs []error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, words []string) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), words...))
	if len(f.batchErrs) > 0 {
		err := f.batchErrs[0]
		f.batchErrs = f.batchErrs[1:]
		return nil, err
	}
	out := make([]Result, len(words))
	for i, w := range words {
		if err, ok := f.failWords[w]; ok {
			out[i] = Result{Word: w, Err: err}
			continue
		}
		out[i] = Result{Word: w, Vector: store.NewVector([]float64{float64(len(w)), 1})}
	}
	return out, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
