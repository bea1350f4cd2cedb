// Package emu provides the functional reference model for the systolic
// engine: signed operand matrices, seeded stimulus generation, and the
// wide-accumulator matrix product that timing results are validated against.
package emu

import (
	"fmt"
	"math/rand"
)

// Matrix is a dense row-major matrix of signed integers. Elements are held at
// full int64 precision; truncation to an interchange width happens only at
// pack/compare time.
type Matrix struct {
	Rows, Cols int
	data       []int64
}

// New creates a zero rows x cols matrix.
func New(rows, cols int) Matrix {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("invalid matrix shape %dx%d", rows, cols))
	}
	return Matrix{Rows: rows, Cols: cols, data: make([]int64, rows*cols)}
}

// FromRows creates a matrix from row slices. All rows must have equal length.
func FromRows(rows [][]int64) Matrix {
	m := New(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.Cols {
			panic(fmt.Sprintf("ragged row %d: %d elements, want %d", i, len(r), m.Cols))
		}
		copy(m.data[i*m.Cols:], r)
	}
	return m
}

// At returns element (i, j).
func (m Matrix) At(i, j int) int64 {
	return m.data[i*m.Cols+j]
}

// Set writes element (i, j).
func (m Matrix) Set(i, j int, v int64) {
	m.data[i*m.Cols+j] = v
}

// Flat returns the row-major backing slice, element (i, j) at index
// i*cols+j. The slice aliases the matrix.
func (m Matrix) Flat() []int64 {
	return m.data
}

// Equal reports whether both matrices have the same shape and elements.
func (m Matrix) Equal(o Matrix) bool {
	if m.Rows != o.Rows || m.Cols != o.Cols {
		return false
	}
	for i, v := range m.data {
		if v != o.data[i] {
			return false
		}
	}
	return true
}

// Random fills a rows x cols matrix with uniform signed width-bit values in
// [-2^(width-1), 2^(width-1)-1], the full operand range of the array edges.
func Random(rows, cols, width int, rng *rand.Rand) Matrix {
	m := New(rows, cols)
	span := int64(1) << uint(width) // e.g. 256 for 8-bit
	half := span / 2
	for i := range m.data {
		m.data[i] = rng.Int63n(span) - half
	}
	return m
}

// Truncate masks v to width bits and reinterprets the result as a signed
// two's-complement value, matching the hardware wrap-around on interchange.
func Truncate(v int64, width int) int64 {
	if width >= 64 {
		return v
	}
	u := uint64(v) & ((uint64(1) << uint(width)) - 1)
	if u&(uint64(1)<<uint(width-1)) != 0 {
		u |= ^uint64(0) << uint(width)
	}
	return int64(u)
}

// TruncateAll returns a copy of m with every element truncated to width bits.
func (m Matrix) TruncateAll(width int) Matrix {
	out := New(m.Rows, m.Cols)
	for i, v := range m.data {
		out.data[i] = Truncate(v, width)
	}
	return out
}
