package array

import (
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// skewNetwork holds the per-row and per-column delay lines that stagger the
// operand streams into the triangular wavefront the grid expects. Control
// tokens ride the left-operand stream with the same per-row delay; the
// per-column offset accrues through the one-cycle eastward hops inside the
// grid, so tokens need no separate column skew.
//
// All depths come from latency.Config; nothing here is tuned per instance.
type skewNetwork struct {
	left []*DelayLine[int32]
	tok  []*DelayLine[Token]
	top  []*DelayLine[int32]
}

func newSkewNetwork(cfg latency.Config, df latency.Dataflow) *skewNetwork {
	s := &skewNetwork{
		left: make([]*DelayLine[int32], cfg.Rows),
		tok:  make([]*DelayLine[Token], cfg.Rows),
		top:  make([]*DelayLine[int32], cfg.Cols),
	}
	for i := 0; i < cfg.Rows; i++ {
		d := cfg.RowSkew(df, i)
		s.left[i] = NewDelayLine[int32](d)
		s.tok[i] = NewDelayLine[Token](d)
	}
	for j := 0; j < cfg.Cols; j++ {
		s.top[j] = NewDelayLine[int32](cfg.ColSkew(j))
	}
	return s
}

func (s *skewNetwork) reset() {
	for i := range s.left {
		s.left[i].Reset()
		s.tok[i].Reset()
	}
	for j := range s.top {
		s.top[j].Reset()
	}
}

// lane32 reads lane i of a packed input vector, treating missing lanes as
// zero so drain cycles need no operand vectors.
func lane32(v []int32, i int) int32 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// lane64 is lane32 for partial-sum vectors.
func lane64(v []int64, i int) int64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
