package array

import (
	"fmt"

	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// WSArray is a weight-stationary systolic grid. Weights are shifted down into
// the grid during a load phase (one row per cycle, Rows cycles per tile);
// during compute, left operands stream east while partial sums flow south,
// taking one full pipeline pass per row. The bottom edge drains one output
// row per cycle, staggered by the capture offset in latency.Config.
//
// Issuing a compute token while a weight-load burst is incomplete, or before
// any load has completed, leaves stale stationary weights and panics: it is a
// caller sequencing error, not a data error.
type WSArray struct {
	cfg     latency.Config
	pes     []wsPE
	skew    *skewNetwork
	psum    []*DelayLine[int64]
	loadSel []*DelayLine[bool]
	tracker *Tracker

	// per-cycle scratch, allocated once at construction
	ins      []wsInput
	westEdge []int32
	tokEdge  []Token
	wEdge    []int32
	loadEdge []bool
	psumEdge []int64

	// weight-load bookkeeping
	loaded      bool
	inLoadBurst bool
	burst       int
}

// NewWS builds a weight-stationary array.
func NewWS(cfg latency.Config) (*WSArray, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &WSArray{
		cfg:      cfg,
		pes:      make([]wsPE, cfg.Rows*cfg.Cols),
		skew:     newSkewNetwork(cfg, latency.WeightStationary),
		psum:     make([]*DelayLine[int64], cfg.Cols),
		loadSel:  make([]*DelayLine[bool], cfg.Cols),
		tracker:  NewTracker(cfg.TotalLatency(latency.WeightStationary)),
		ins:      make([]wsInput, cfg.Rows*cfg.Cols),
		westEdge: make([]int32, cfg.Rows),
		tokEdge:  make([]Token, cfg.Rows),
		wEdge:    make([]int32, cfg.Cols),
		loadEdge: make([]bool, cfg.Cols),
		psumEdge: make([]int64, cfg.Cols),
	}
	alignDepth := cfg.PipeLatency - 2
	for i := range a.pes {
		a.pes[i].align = make([]wsAlignReg, alignDepth)
	}
	for j := 0; j < cfg.Cols; j++ {
		a.psum[j] = NewDelayLine[int64](cfg.ColSkew(j))
		a.loadSel[j] = NewDelayLine[bool](cfg.ColSkew(j))
	}
	return a, nil
}

// Config returns the array's configuration.
func (a *WSArray) Config() latency.Config {
	return a.cfg
}

func (a *WSArray) at(i, j int) *wsPE {
	return &a.pes[i*a.cfg.Cols+j]
}

// WeightsLoaded reports whether a complete weight-load burst has been shifted
// in since the last reset.
func (a *WSArray) WeightsLoaded() bool {
	return a.loaded && !a.inLoadBurst
}

// Step advances the whole array by one cycle. A cycle with Ctl set and Valid
// clear is a weight-load cycle; Top then carries one weight row. Feed tile
// weight rows bottom-up (row Rows-1 first): the first-injected row settles in
// the bottom PE row.
func (a *WSArray) Step(in StepInput) StepOutput {
	rows, cols := a.cfg.Rows, a.cfg.Cols
	loadCycle := in.Ctl && !in.Valid

	if in.Valid {
		if a.inLoadBurst {
			if a.burst < rows {
				panic(fmt.Sprintf(
					"weight load incomplete: %d of %d rows shifted in", a.burst, rows))
			}
			a.inLoadBurst = false
			a.loaded = true
		}
		if !a.loaded {
			panic("compute token issued before weight load completed")
		}
	}
	if loadCycle {
		if !a.inLoadBurst {
			a.inLoadBurst = true
			a.burst = 0
		}
		a.burst++
	}

	// Skewed edge injection.
	tok := Token{Valid: in.Valid, Clear: in.Valid && in.Ctl}
	for i := 0; i < rows; i++ {
		a.westEdge[i] = a.skew.left[i].Advance(lane32(in.Left, i))
		a.tokEdge[i] = a.skew.tok[i].Advance(tok)
	}
	for j := 0; j < cols; j++ {
		var wv int32
		if loadCycle {
			wv = lane32(in.Top, j)
		}
		a.wEdge[j] = a.skew.top[j].Advance(wv)
		a.loadEdge[j] = a.loadSel[j].Advance(loadCycle)
		a.psumEdge[j] = a.psum[j].Advance(lane64(in.Psums, j))
	}

	// Gather every PE's inputs from the previous-cycle snapshot. Row 0 reads
	// the skewed edges; every other row reads the stage-4 partial sum and the
	// weight-shift data of the PE above. The shift enable is broadcast to the
	// whole column so each load cycle moves the column down exactly one row.
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var pin wsInput
			if j == 0 {
				pin.west = a.westEdge[i]
				pin.tok = a.tokEdge[i]
			} else {
				w := a.at(i, j-1)
				pin.west = w.west
				pin.tok = w.tok
			}
			if i == 0 {
				pin.psum = a.psumEdge[j]
				pin.wtop = a.wEdge[j]
			} else {
				n := a.at(i-1, j)
				pin.psum = n.acc
				pin.wtop = n.wtop
			}
			pin.load = a.loadEdge[j]
			a.ins[i*cols+j] = pin
		}
	}

	// Commit.
	for idx := range a.pes {
		a.pes[idx].step(a.ins[idx])
	}

	done := a.tracker.Observe(in.Valid)
	return StepOutput{Done: done, CycleCount: a.tracker.Cycles()}
}

// At returns the stage-4 result register of PE (i, j).
func (a *WSArray) At(i, j int) int64 {
	return a.at(i, j).acc
}

// WeightAt returns the stationary weight held by PE (i, j).
func (a *WSArray) WeightAt(i, j int) int32 {
	return a.at(i, j).weight
}

// BottomPsums copies the bottom edge's southbound partial sums into dst,
// lane j for column j, and returns it. Output row m of a tile appears in
// lane j exactly CaptureBase()+m+j cycles after the tile's first compute
// token.
func (a *WSArray) BottomPsums(dst []int64) []int64 {
	cols := a.cfg.Cols
	if len(dst) < cols {
		dst = make([]int64, cols)
	}
	bottom := a.cfg.Rows - 1
	for j := 0; j < cols; j++ {
		dst[j] = a.at(bottom, j).acc
	}
	return dst[:cols]
}

// Snapshot copies the rows x cols stage-4 result matrix into dst, element
// (i, j) at index i*cols+j, and returns it.
func (a *WSArray) Snapshot(dst []int64) []int64 {
	if len(dst) < len(a.pes) {
		dst = make([]int64, len(a.pes))
	}
	for idx := range a.pes {
		dst[idx] = a.pes[idx].acc
	}
	return dst[:len(a.pes)]
}

// Reset forces every register, skew line, and the tracker back to zero/idle,
// and clears the weight-load state.
func (a *WSArray) Reset() {
	for idx := range a.pes {
		a.pes[idx].reset()
	}
	a.skew.reset()
	for j := range a.psum {
		a.psum[j].Reset()
		a.loadSel[j].Reset()
	}
	a.tracker.Reset()
	a.loaded = false
	a.inLoadBurst = false
	a.burst = 0
}
