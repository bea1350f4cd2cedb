// Package array implements the cycle-accurate systolic compute core: delay
// lines, the input skew network, the 4-stage MAC processing elements, the
// output-stationary and weight-stationary grids, and the completion tracker.
//
// The whole array advances in lockstep through a single Step entry point.
// Every register update for cycle t is computed from the state at cycle t-1;
// inputs for all PEs are gathered from the previous-cycle snapshot before any
// PE commits, so no value is ever read and overwritten in the same cycle.
package array

import (
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// StepInput is the per-cycle external surface of an array, sampled once per
// Step. Lane 0 of each vector is row/column 0.
type StepInput struct {
	// Valid marks a live compute cycle.
	Valid bool

	// Ctl is the clear flag (output-stationary) or, when Valid is false, the
	// weight-load select (weight-stationary).
	Ctl bool

	// Left holds one left operand per row.
	Left []int32

	// Top holds one top operand per column: per-cycle operands for OS, one
	// weight row per load cycle for WS.
	Top []int32

	// Psums holds one partial-sum injection per column (WS compute only).
	Psums []int64
}

// StepOutput is what an array reports after each cycle.
type StepOutput struct {
	// Done pulses for exactly one cycle, total-latency cycles after the last
	// valid input.
	Done bool

	// CycleCount is the free-running activity counter.
	CycleCount uint32
}

// OSArray is an output-stationary systolic grid. Each PE's accumulator stays
// in place; left operands stream east and top operands stream south, one hop
// per cycle, and the rows x cols accumulator snapshot is the result.
type OSArray struct {
	cfg     latency.Config
	pes     []pe
	skew    *skewNetwork
	tracker *Tracker

	// per-cycle scratch, allocated once at construction
	ins       []peInput
	westEdge  []int32
	tokEdge   []Token
	northEdge []int32
}

// NewOS builds an output-stationary array. The configuration is validated;
// width misconfigurations are rejected here rather than truncated later.
func NewOS(cfg latency.Config) (*OSArray, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &OSArray{
		cfg:       cfg,
		pes:       make([]pe, cfg.Rows*cfg.Cols),
		skew:      newSkewNetwork(cfg, latency.OutputStationary),
		tracker:   NewTracker(cfg.TotalLatency(latency.OutputStationary)),
		ins:       make([]peInput, cfg.Rows*cfg.Cols),
		westEdge:  make([]int32, cfg.Rows),
		tokEdge:   make([]Token, cfg.Rows),
		northEdge: make([]int32, cfg.Cols),
	}
	alignDepth := cfg.PipeLatency - 2
	for i := range a.pes {
		a.pes[i].align = make([]alignReg, alignDepth)
	}
	return a, nil
}

// Config returns the array's configuration.
func (a *OSArray) Config() latency.Config {
	return a.cfg
}

func (a *OSArray) at(i, j int) *pe {
	return &a.pes[i*a.cfg.Cols+j]
}

// Step advances the whole array by one cycle.
func (a *OSArray) Step(in StepInput) StepOutput {
	rows, cols := a.cfg.Rows, a.cfg.Cols

	// Skewed edge injection.
	tok := Token{Valid: in.Valid, Clear: in.Valid && in.Ctl}
	for i := 0; i < rows; i++ {
		a.westEdge[i] = a.skew.left[i].Advance(lane32(in.Left, i))
		a.tokEdge[i] = a.skew.tok[i].Advance(tok)
	}
	for j := 0; j < cols; j++ {
		a.northEdge[j] = a.skew.top[j].Advance(lane32(in.Top, j))
	}

	// Gather every PE's inputs from the previous-cycle snapshot.
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var pin peInput
			if j == 0 {
				pin.west = a.westEdge[i]
				pin.tok = a.tokEdge[i]
			} else {
				w := a.at(i, j-1)
				pin.west = w.west
				pin.tok = w.tok
			}
			if i == 0 {
				pin.north = a.northEdge[j]
			} else {
				pin.north = a.at(i-1, j).north
			}
			a.ins[i*cols+j] = pin
		}
	}

	// Commit.
	for idx := range a.pes {
		a.pes[idx].step(a.ins[idx], a.cfg.ClrLoadFirst)
	}

	done := a.tracker.Observe(in.Valid)
	return StepOutput{Done: done, CycleCount: a.tracker.Cycles()}
}

// At returns the accumulator of PE (i, j).
func (a *OSArray) At(i, j int) int64 {
	return a.at(i, j).acc
}

// Snapshot copies the rows x cols accumulator matrix into dst, element (i, j)
// at index i*cols+j, and returns it. A new slice is allocated when dst is too
// short.
func (a *OSArray) Snapshot(dst []int64) []int64 {
	if len(dst) < len(a.pes) {
		dst = make([]int64, len(a.pes))
	}
	for idx := range a.pes {
		dst[idx] = a.pes[idx].acc
	}
	return dst[:len(a.pes)]
}

// Reset forces every register in the array, its skew network, and its
// tracker back to the zero/idle state.
func (a *OSArray) Reset() {
	for idx := range a.pes {
		a.pes[idx].reset()
	}
	a.skew.reset()
	a.tracker.Reset()
}
