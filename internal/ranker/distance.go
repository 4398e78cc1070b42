package ranker

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

// DegenerateDistance is assigned to candidates whose distance is undefined
// (zero norm or non-finite components). It sorts after every real distance.
var DegenerateDistance = math.Inf(1)

// CosineDistance returns 1 - dot(a,b)/(|a||b|), clamped to [0, 2].
// Mismatched dimensions are ErrDimensionMismatch; a zero-norm or
// non-finite input is ErrDegenerateVector.
func CosineDistance(a, b store.Vector) (float64, error) {
	if a.Dim() != b.Dim() {
		return 0, fmt.Errorf("%w: %d vs %d", apperrors.ErrDimensionMismatch, a.Dim(), b.Dim())
	}
	na := norm(a)
	if !usableNorm(na) {
		return 0, apperrors.ErrDegenerateVector
	}
	return cosineWithNorm(a, na, b)
}

func cosineWithNorm(a store.Vector, na float64, b store.Vector) (float64, error) {
	nb := norm(b)
	if !usableNorm(nb) {
		return 0, apperrors.ErrDegenerateVector
	}
	d := 1 - dot(a, b)/(na*nb)
	if math.IsNaN(d) {
		return 0, apperrors.ErrDegenerateVector
	}
	return clamp(d), nil
}

func dot(a, b store.Vector) float64 {
	var sum float64
	for i := 0; i < a.Dim(); i++ {
		sum += a.At(i) * b.At(i)
	}
	return sum
}

func norm(v store.Vector) float64 {
	return math.Sqrt(dot(v, v))
}

func usableNorm(n float64) bool {
	return n > 0 && !math.IsInf(n, 0) && !math.IsNaN(n)
}

func clamp(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
