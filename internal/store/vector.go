package store

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordvec/pkg/errors"
)

// float64Size is the width in bytes of one encoded component.
const float64Size = 8

// Vector is an immutable, fixed-length sequence of float64 components.
type Vector struct {
	data []float64
}

// NewVector copies values into a new Vector.
func NewVector(values []float64) Vector {
	return Vector{data: slices.Clone(values)}
}

// Dim returns the number of components.
func (v Vector) Dim() int {
	return len(v.data)
}

// At returns component i.
func (v Vector) At(i int) float64 {
	return v.data[i]
}

// Values returns a copy of the components.
func (v Vector) Values() []float64 {
	return slices.Clone(v.data)
}

// Equal reports whether v and o have the same dimension and bitwise-equal
// components.
func (v Vector) Equal(o Vector) bool {
	if len(v.data) != len(o.data) {
		return false
	}
	for i := range v.data {
		if math.Float64bits(v.data[i]) != math.Float64bits(o.data[i]) {
			return false
		}
	}
	return true
}

// Encode serializes v as IEEE-754 float64 little-endian bytes, base64
// (standard alphabet, padded).
func (v Vector) Encode() string {
	buf := make([]byte, len(v.data)*float64Size)
	for i, f := range v.data {
		binary.LittleEndian.PutUint64(buf[i*float64Size:], math.Float64bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeVector parses the Encode format. A bad base64 payload, an empty
// payload, or a length that is not a multiple of 8 is ErrCorruptShard.
func DecodeVector(s string) (Vector, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Vector{}, fmt.Errorf("%w: decoding vector blob: %v", apperrors.ErrCorruptShard, err)
	}
	if len(buf) == 0 || len(buf)%float64Size != 0 {
		return Vector{}, fmt.Errorf("%w: vector blob of %d bytes is not a whole number of float64s", apperrors.ErrCorruptShard, len(buf))
	}
	data := make([]float64, len(buf)/float64Size)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*float64Size:]))
	}
	return Vector{data: data}, nil
}
