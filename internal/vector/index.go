// Package vector provides an exact nearest-neighbor index over dense
// float32 vectors.
package vector

import (
	"errors"
	"fmt"
	"sort"
)

// NoMatch fills result slots when the index holds fewer rows than requested.
const NoMatch = -1

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is a flat, append-only index of fixed-dimension float32 vectors.
// Rows are never reordered or removed, so the row number assigned at insert
// time identifies a vector for the lifetime of the index. Search is an exact
// scan over every row; there is no approximation or pruning.
//
// Index is not safe for concurrent use; callers serialize access.
type Index struct {
	dim  int
	rows [][]float32
}

// New creates an empty index bound to the given dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Dimension returns the fixed width of every stored vector.
func (ix *Index) Dimension() int { return ix.dim }

// Rows returns the number of stored vectors.
func (ix *Index) Rows() int { return len(ix.rows) }

// Row returns a copy of the vector stored at row i. The caller must pass a
// row in [0, Rows()).
func (ix *Index) Row(i int) []float32 {
	row := make([]float32, ix.dim)
	copy(row, ix.rows[i])
	return row
}

// Add appends vectors in order, extending the row space contiguously.
// Widths are validated before the first row is appended, so a mismatched
// batch leaves the index untouched.
func (ix *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector %d has width %d, index has %d", ErrDimensionMismatch, i, len(v), ix.dim)
		}
	}
	for _, v := range vectors {
		row := make([]float32, ix.dim)
		copy(row, v)
		ix.rows = append(ix.rows, row)
	}
	return nil
}

// Search returns the k stored rows nearest to query by squared Euclidean
// distance, ascending. Ties go to the lower row number. When fewer than k
// rows exist, the remainder of both result slices is padded with NoMatch
// and a zero distance. Searching an empty index returns all sentinels.
func (ix *Index) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("%w: query has width %d, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive, got %d", k)
	}

	type hit struct {
		row  int
		dist float64
	}
	hits := make([]hit, len(ix.rows))
	for i, row := range ix.rows {
		// accumulate in float64 to keep the sum stable for wide vectors
		var sum float64
		for j := range row {
			d := float64(query[j]) - float64(row[j])
			sum += d * d
		}
		hits[i] = hit{row: i, dist: sum}
	}
	// stable sort keeps insertion order for equal distances
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })

	indices := make([]int, k)
	distances := make([]float32, k)
	for i := 0; i < k; i++ {
		if i < len(hits) {
			indices[i] = hits[i].row
			distances[i] = float32(hits[i].dist)
		} else {
			indices[i] = NoMatch
		}
	}
	return indices, distances, nil
}
