// Package loader reads and writes the packed-hex interchange files used to
// exchange stimulus and golden results with external tooling.
//
// Every stimulus file carries one line of lowercase zero-padded hex per
// cycle. Lanes are packed little-lane: lane 0 (row/column 0) occupies the
// least-significant bits, each lane masked to its two's-complement width.
// The golden file is a single line holding the flattened result matrix,
// element (i, j) at bit offset (i*cols+j)*opWidth.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/Arjun0170/Systolic-Tensors/emu"
)

// PackLanes packs signed values into one little-lane bit vector, each lane
// masked to width bits.
func PackLanes(vals []int64, width int) *big.Int {
	mask := laneMask(width)
	x := new(big.Int)
	lane := new(big.Int)
	for l, v := range vals {
		lane.SetUint64(uint64(v) & mask)
		lane.Lsh(lane, uint(l*width))
		x.Or(x, lane)
	}
	return x
}

// UnpackLanes splits a little-lane bit vector into sign-extended values.
func UnpackLanes(x *big.Int, lanes, width int) []int64 {
	mask := new(big.Int).SetUint64(laneMask(width))
	vals := make([]int64, lanes)
	scratch := new(big.Int)
	for l := 0; l < lanes; l++ {
		scratch.Rsh(x, uint(l*width))
		scratch.And(scratch, mask)
		vals[l] = emu.Truncate(int64(scratch.Uint64()), width)
	}
	return vals
}

func laneMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// FormatLine renders a bit vector as zero-padded lowercase hex covering
// totalBits bits.
func FormatLine(x *big.Int, totalBits int) string {
	hexChars := (totalBits + 3) / 4
	return fmt.Sprintf("%0*x", hexChars, x)
}

// ParseLine parses one hex line into a bit vector.
func ParseLine(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	x, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex line %q", s)
	}
	return x, nil
}

// WriteInputsOS writes the output-stationary left-operand stream: one line
// per reduction index k, lane r carrying a[r][k].
func WriteInputsOS(w io.Writer, a emu.Matrix, ipWidth int) error {
	lanes := make([]int64, a.Rows)
	for k := 0; k < a.Cols; k++ {
		for r := 0; r < a.Rows; r++ {
			lanes[r] = a.At(r, k)
		}
		if err := writeLine(w, lanes, ipWidth); err != nil {
			return err
		}
	}
	return nil
}

// WriteInputsWS writes the weight-stationary left-operand stream: one line
// per (tile, output row) pair, lane i carrying a[m][tile*tileRows+i], with
// the tail tile zero-padded. Total lines = ceil(K/tileRows) * a.Rows.
func WriteInputsWS(w io.Writer, a emu.Matrix, tileRows, ipWidth int) error {
	if tileRows < 1 {
		return fmt.Errorf("tile rows must be >= 1, got %d", tileRows)
	}
	lanes := make([]int64, tileRows)
	blocks := (a.Cols + tileRows - 1) / tileRows
	for b := 0; b < blocks; b++ {
		base := b * tileRows
		for m := 0; m < a.Rows; m++ {
			for i := 0; i < tileRows; i++ {
				if kk := base + i; kk < a.Cols {
					lanes[i] = a.At(m, kk)
				} else {
					lanes[i] = 0
				}
			}
			if err := writeLine(w, lanes, ipWidth); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteWeights writes the top-operand stream, shared by both dataflows: one
// line per reduction index k, lane c carrying b[k][c].
func WriteWeights(w io.Writer, b emu.Matrix, ipWidth int) error {
	lanes := make([]int64, b.Cols)
	for k := 0; k < b.Rows; k++ {
		for c := 0; c < b.Cols; c++ {
			lanes[c] = b.At(k, c)
		}
		if err := writeLine(w, lanes, ipWidth); err != nil {
			return err
		}
	}
	return nil
}

// WriteGolden writes the expected result as a single flattened line.
func WriteGolden(w io.Writer, c emu.Matrix, opWidth int) error {
	return writeLine(w, c.Flat(), opWidth)
}

func writeLine(w io.Writer, lanes []int64, width int) error {
	x := PackLanes(lanes, width)
	if _, err := fmt.Fprintln(w, FormatLine(x, len(lanes)*width)); err != nil {
		return fmt.Errorf("failed to write hex line: %w", err)
	}
	return nil
}

// ReadStream reads a per-cycle stimulus file: one lane vector per line,
// sign-extended from width bits. Blank lines are skipped.
func ReadStream(r io.Reader, lanes, width int) ([][]int64, error) {
	var out [][]int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		x, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		out = append(out, UnpackLanes(x, lanes, width))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stimulus stream: %w", err)
	}
	return out, nil
}

// ReadGolden reads a single-line flattened golden file back into a matrix.
func ReadGolden(r io.Reader, rows, cols, opWidth int) (emu.Matrix, error) {
	vecs, err := ReadStream(r, rows*cols, opWidth)
	if err != nil {
		return emu.Matrix{}, err
	}
	if len(vecs) != 1 {
		return emu.Matrix{}, fmt.Errorf("golden file must hold one line, got %d", len(vecs))
	}
	m := emu.New(rows, cols)
	copy(m.Flat(), vecs[0])
	return m, nil
}
