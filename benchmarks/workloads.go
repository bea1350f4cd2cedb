package benchmarks

import (
	"math/rand"

	"github.com/Arjun0170/Systolic-Tensors/emu"
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// IdentityWorkload multiplies a random operand by the identity, so the
// expected result is the operand itself. Cheap to eyeball when a run
// mismatches.
func IdentityWorkload(name string, flow latency.Dataflow, cfg latency.Config, seed int64) Workload {
	rng := rand.New(rand.NewSource(seed))
	a := emu.Random(cfg.Rows, cfg.Rows, cfg.IPWidth, rng)
	b := emu.New(cfg.Rows, cfg.Cols)
	for d := 0; d < cfg.Rows && d < cfg.Cols; d++ {
		b.Set(d, d, 1)
	}
	return Workload{Name: name, Flow: flow, A: a, B: b}
}

// StandardWorkloads returns the default validation suite for an array
// geometry: both dataflows on seeded random operands, an identity sanity
// case, and a weight-stationary run long enough to need multiple reduction
// tiles.
func StandardWorkloads(cfg latency.Config, k int, seed int64) []Workload {
	return []Workload{
		RandomWorkload("random-os", latency.OutputStationary, cfg, k, seed),
		RandomWorkload("random-ws", latency.WeightStationary, cfg, k, seed+1),
		IdentityWorkload("identity-os", latency.OutputStationary, cfg, seed+2),
		RandomWorkload("tiled-ws", latency.WeightStationary, cfg, 2*k+cfg.Rows/2+1, seed+3),
	}
}
