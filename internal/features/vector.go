package features

import "sort"

// Vector is a sparse, non-negative feature vector of fixed dimension.
// Indices are strictly ascending and every stored value is positive.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NewVector builds a vector from bucket counts, dropping zero entries
func NewVector(dim int, counts map[int]float64) Vector {
	indices := make([]int, 0, len(counts))
	for idx, c := range counts {
		if c != 0 {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = counts[idx]
	}

	return Vector{Dim: dim, Indices: indices, Values: values}
}

// NNZ returns the number of stored entries
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// IsZero reports whether the vector has no non-zero entry
func (v Vector) IsZero() bool {
	return len(v.Indices) == 0
}

// At returns the weight of bucket i
func (v Vector) At(i int) float64 {
	pos := sort.SearchInts(v.Indices, i)
	if pos < len(v.Indices) && v.Indices[pos] == i {
		return v.Values[pos]
	}
	return 0
}

// Sum returns the total weight
func (v Vector) Sum() float64 {
	var total float64
	for _, val := range v.Values {
		total += val
	}
	return total
}

// Equal reports whether two vectors hold the same dimension and entries
func (v Vector) Equal(o Vector) bool {
	if v.Dim != o.Dim || len(v.Indices) != len(o.Indices) {
		return false
	}
	for i := range v.Indices {
		if v.Indices[i] != o.Indices[i] || v.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}
