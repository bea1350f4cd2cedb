package array_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Arjun0170/Systolic-Tensors/emu"
	"github.com/Arjun0170/Systolic-Tensors/timing/array"
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// streamOS pushes a full product through an output-stationary array, one
// reduction index per cycle with a clear on the first token, then idles until
// the drain timer fires. It returns the accumulator snapshot and the cycle
// index of the done pulse.
func streamOS(a *array.OSArray, ma, mb emu.Matrix) (emu.Matrix, int) {
	cfg := a.Config()
	k := ma.Cols
	bound := 2*(k+cfg.TotalLatency(latency.OutputStationary)) + 16

	doneCycle := -1
	for cycle := 0; cycle < bound; cycle++ {
		var in array.StepInput
		if cycle < k {
			left := make([]int32, cfg.Rows)
			top := make([]int32, cfg.Cols)
			for i := 0; i < cfg.Rows; i++ {
				left[i] = int32(ma.At(i, cycle))
			}
			for j := 0; j < cfg.Cols; j++ {
				top[j] = int32(mb.At(cycle, j))
			}
			in = array.StepInput{Valid: true, Ctl: cycle == 0, Left: left, Top: top}
		}
		if out := a.Step(in); out.Done {
			doneCycle = cycle
			break
		}
	}
	Expect(doneCycle).To(BeNumerically(">=", 0), "array never drained")

	c := emu.New(cfg.Rows, cfg.Cols)
	a.Snapshot(c.Flat())
	return c, doneCycle
}

var _ = Describe("OSArray", func() {
	smallCfg := func() latency.Config {
		cfg := latency.DefaultConfig()
		cfg.Rows = 2
		cfg.Cols = 2
		return cfg
	}

	It("should reject invalid configurations", func() {
		cfg := smallCfg()
		cfg.PipeLatency = 1
		_, err := array.NewOS(cfg)
		Expect(err).To(HaveOccurred())
	})

	It("should compute the 2x2 sample product", func() {
		a, err := array.NewOS(smallCfg())
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		mb := emu.FromRows([][]int64{{5, 6}, {7, 8}})
		c, doneCycle := streamOS(a, ma, mb)

		Expect(c.Flat()).To(Equal([]int64{19, 22, 43, 50}))
		// Last token enters on cycle 1; total latency is (2-1)+(2-1)+3 = 5.
		Expect(doneCycle).To(Equal(6))
	})

	It("should collapse to the pipe latency on a 1x1 array", func() {
		cfg := smallCfg()
		cfg.Rows = 1
		cfg.Cols = 1
		a, err := array.NewOS(cfg)
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{3}})
		mb := emu.FromRows([][]int64{{4}})
		c, doneCycle := streamOS(a, ma, mb)

		Expect(c.At(0, 0)).To(Equal(int64(12)))
		Expect(doneCycle).To(Equal(cfg.PipeLatency))
	})

	It("should match the reference model on random operands", func() {
		cfg := smallCfg()
		cfg.Rows = 4
		cfg.Cols = 4
		a, err := array.NewOS(cfg)
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(42))
		ma := emu.Random(4, 8, cfg.IPWidth, rng)
		mb := emu.Random(8, 4, cfg.IPWidth, rng)
		c, _ := streamOS(a, ma, mb)

		want, err := emu.MatMul(ma, mb)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Equal(want)).To(BeTrue())
	})

	It("should honor the extra drain allowance", func() {
		cfg := smallCfg()
		cfg.ExtraDrainCycles = 2
		a, err := array.NewOS(cfg)
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		mb := emu.FromRows([][]int64{{5, 6}, {7, 8}})
		c, doneCycle := streamOS(a, ma, mb)

		Expect(c.Flat()).To(Equal([]int64{19, 22, 43, 50}))
		Expect(doneCycle).To(Equal(8))
	})

	It("should start a fresh accumulation on a clear token without reset", func() {
		a, err := array.NewOS(smallCfg())
		Expect(err).NotTo(HaveOccurred())

		first := emu.FromRows([][]int64{{9, 9}, {9, 9}})
		second := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		weights := emu.FromRows([][]int64{{5, 6}, {7, 8}})

		streamOS(a, first, weights)
		c, _ := streamOS(a, second, weights)

		Expect(c.Flat()).To(Equal([]int64{19, 22, 43, 50}))
	})

	It("should discard the clear token's product when ClrLoadFirst is off", func() {
		cfg := smallCfg()
		cfg.ClrLoadFirst = false
		a, err := array.NewOS(cfg)
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		mb := emu.FromRows([][]int64{{5, 6}, {7, 8}})
		c, _ := streamOS(a, ma, mb)

		// Only the k=1 contribution survives the zeroing clear.
		Expect(c.Flat()).To(Equal([]int64{14, 16, 28, 32}))
	})

	It("should be deterministic across a mid-drain reset", func() {
		a, err := array.NewOS(smallCfg())
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		mb := emu.FromRows([][]int64{{5, 6}, {7, 8}})

		ref, refDone := streamOS(a, ma, mb)

		// Abandon a second run partway into the drain, reset, and replay.
		for cycle := 0; cycle < 4; cycle++ {
			var in array.StepInput
			if cycle < 2 {
				in = array.StepInput{
					Valid: true,
					Ctl:   cycle == 0,
					Left:  []int32{int32(ma.At(0, cycle)), int32(ma.At(1, cycle))},
					Top:   []int32{int32(mb.At(cycle, 0)), int32(mb.At(cycle, 1))},
				}
			}
			a.Step(in)
		}
		a.Reset()
		Expect(a.At(0, 0)).To(Equal(int64(0)))

		c, doneCycle := streamOS(a, ma, mb)
		Expect(c.Equal(ref)).To(BeTrue())
		Expect(doneCycle).To(Equal(refDone))
	})

	It("should reuse a caller-provided snapshot buffer", func() {
		a, err := array.NewOS(smallCfg())
		Expect(err).NotTo(HaveOccurred())

		ma := emu.FromRows([][]int64{{1, 2}, {3, 4}})
		mb := emu.FromRows([][]int64{{5, 6}, {7, 8}})
		streamOS(a, ma, mb)

		buf := make([]int64, 4)
		got := a.Snapshot(buf)
		Expect(&got[0]).To(BeIdenticalTo(&buf[0]))
		Expect(got).To(Equal([]int64{19, 22, 43, 50}))
		Expect(a.At(1, 0)).To(Equal(int64(43)))
	})
})
