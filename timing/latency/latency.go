// Package latency provides the geometry configuration and derived latency
// constants for the systolic array.
//
// Every timing offset in the engine (input skew, drain countdown, weight-
// stationary capture alignment) comes from the formulas here. A single
// misderived offset desynchronizes every computed value after it, so the
// offsets are never duplicated or hand-tuned at use sites.
package latency

// RowSkew returns the delay, in cycles, applied to row i's left-operand
// stream before it enters the grid's west edge.
//
// Output-stationary operands pass east through the grid one unregistered-skew
// hop per cycle, so rows are staggered by one cycle each. Weight-stationary
// partial sums take a full pipeline pass per row on their way down, so the
// left operands of row i must trail row i-1 by PipeLatency+1 cycles for the
// wavefronts to meet.
func (c Config) RowSkew(df Dataflow, i int) int {
	if df == WeightStationary {
		return i * (c.PipeLatency + 1)
	}
	return i
}

// ColSkew returns the delay, in cycles, applied to column j's top-operand
// (or, for WS, weight and partial-sum injection) stream before it enters the
// grid's north edge.
func (c Config) ColSkew(j int) int {
	return j
}

// TotalLatency returns the number of cycles between the last valid input
// token and the last accumulator update it causes, per dataflow. The
// completion tracker arms its countdown with this value.
func (c Config) TotalLatency(df Dataflow) int {
	if df == WeightStationary {
		return (c.Rows-1)*(c.PipeLatency+1) + (c.Cols - 1) + c.PipeLatency
	}
	return (c.Rows - 1) + (c.Cols - 1) + c.PipeLatency + c.ExtraDrainCycles
}

// CaptureBase returns the weight-stationary capture offset: output row m,
// column j of a tile drains from the bottom edge exactly CaptureBase()+m+j
// cycles after the tile's first compute token is presented. Tile b+1's
// partial-sum injection for (m, j) is the value captured at that offset
// during tile b's drain.
func (c Config) CaptureBase() int {
	return (c.Rows-1)*(c.PipeLatency+1) + c.PipeLatency
}

// Tiles returns the number of K-dimension tiles needed to cover a reduction
// of length k with tiles of Rows.
func (c Config) Tiles(k int) int {
	return (k + c.Rows - 1) / c.Rows
}
