package emu

import "fmt"

// MatMul computes a @ b with a full-precision signed accumulator. This is the
// golden reference the systolic results are compared against bit-exactly
// (after truncation to the interchange width on both sides).
func MatMul(a, b Matrix) (Matrix, error) {
	if a.Cols != b.Rows {
		return Matrix{}, fmt.Errorf(
			"shape mismatch: %dx%d @ %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	c := New(a.Rows, b.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			var sum int64
			for k := 0; k < a.Cols; k++ {
				sum += a.At(i, k) * b.At(k, j)
			}
			c.Set(i, j, sum)
		}
	}
	return c, nil
}

// MatMulTiled computes a @ b by partitioning the reduction dimension into
// tiles of the given size with partial-sum carry-over, mirroring the
// weight-stationary K-tiling protocol. The result is identical to MatMul;
// the function exists so tests can check the tiling algebra independently of
// the timing model.
func MatMulTiled(a, b Matrix, tile int) (Matrix, error) {
	if a.Cols != b.Rows {
		return Matrix{}, fmt.Errorf(
			"shape mismatch: %dx%d @ %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if tile < 1 {
		return Matrix{}, fmt.Errorf("tile size must be >= 1, got %d", tile)
	}
	c := New(a.Rows, b.Cols)
	for base := 0; base < a.Cols; base += tile {
		end := base + tile
		if end > a.Cols {
			end = a.Cols
		}
		for i := 0; i < a.Rows; i++ {
			for j := 0; j < b.Cols; j++ {
				sum := c.At(i, j)
				for k := base; k < end; k++ {
					sum += a.At(i, k) * b.At(k, j)
				}
				c.Set(i, j, sum)
			}
		}
	}
	return c, nil
}
