// Package benchmarks provides the validation harness that runs matrix
// products through the cycle-accurate arrays and checks them against the
// functional reference model.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/Arjun0170/Systolic-Tensors/emu"
	"github.com/Arjun0170/Systolic-Tensors/timing/array"
	"github.com/Arjun0170/Systolic-Tensors/timing/device"
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

// RunStats holds the cycle accounting of a single array run.
type RunStats struct {
	// SimulatedCycles is the total number of committed cycles, including
	// weight-load and drain cycles.
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// DoneCycle is the cycle index on which the final drain timer fired,
	// counted from the first cycle of the final tile's schedule.
	DoneCycle int `json:"done_cycle"`

	// Tiles is the number of reduction tiles the run was split into. Always 1
	// for output-stationary runs.
	Tiles int `json:"tiles"`
}

// RunOS streams a full matrix product through an output-stationary array and
// returns the accumulator snapshot at full precision. The array geometry must
// match the output shape: a is Rows x K, b is K x Cols.
func RunOS(cfg latency.Config, a, b emu.Matrix) (emu.Matrix, RunStats, error) {
	var stats RunStats

	if a.Cols != b.Rows {
		return emu.Matrix{}, stats, fmt.Errorf(
			"shape mismatch: %dx%d @ %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if a.Rows != cfg.Rows || b.Cols != cfg.Cols {
		return emu.Matrix{}, stats, fmt.Errorf(
			"output shape %dx%d does not match array geometry %dx%d",
			a.Rows, b.Cols, cfg.Rows, cfg.Cols)
	}
	k := a.Cols
	if err := cfg.ValidateForK(k); err != nil {
		return emu.Matrix{}, stats, err
	}

	arr, err := array.NewOS(cfg)
	if err != nil {
		return emu.Matrix{}, stats, err
	}

	engine := sim.NewSerialEngine()
	watchdog := 2*(k+cfg.TotalLatency(latency.OutputStationary)) + 16
	dev := device.NewBuilder().
		WithEngine(engine).
		WithMaxCycles(watchdog).
		Build("OSDevice", arr)

	for kk := 0; kk < k; kk++ {
		left := make([]int32, cfg.Rows)
		top := make([]int32, cfg.Cols)
		for i := 0; i < cfg.Rows; i++ {
			left[i] = int32(a.At(i, kk))
		}
		for j := 0; j < cfg.Cols; j++ {
			top[j] = int32(b.At(kk, j))
		}
		dev.Enqueue(array.StepInput{
			Valid: true,
			Ctl:   kk == 0,
			Left:  left,
			Top:   top,
		})
	}

	if err := dev.Run(); err != nil {
		return emu.Matrix{}, stats, fmt.Errorf("engine run failed: %w", err)
	}
	if !dev.Done() {
		return emu.Matrix{}, stats, fmt.Errorf(
			"array did not drain within %d cycles", watchdog)
	}

	c := emu.New(cfg.Rows, cfg.Cols)
	arr.Snapshot(c.Flat())

	stats.SimulatedCycles = uint64(dev.Cycle())
	stats.DoneCycle = dev.DoneCycle()
	stats.Tiles = 1
	return c, stats, nil
}

// RunWS streams a matrix product through a weight-stationary array, tiling
// the reduction dimension by Rows. Each tile loads one weight block, streams
// every output row once, and drains completely; drained partial sums are
// captured off the bottom edge and re-injected as the next tile's partial-sum
// inputs. a is M x K, b is K x Cols; the result is M x Cols.
func RunWS(cfg latency.Config, a, b emu.Matrix) (emu.Matrix, RunStats, error) {
	var stats RunStats

	if a.Cols != b.Rows {
		return emu.Matrix{}, stats, fmt.Errorf(
			"shape mismatch: %dx%d @ %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if b.Cols != cfg.Cols {
		return emu.Matrix{}, stats, fmt.Errorf(
			"operand width %d does not match array geometry %dx%d",
			b.Cols, cfg.Rows, cfg.Cols)
	}
	k := a.Cols
	if err := cfg.ValidateForK(k); err != nil {
		return emu.Matrix{}, stats, err
	}

	arr, err := array.NewWS(cfg)
	if err != nil {
		return emu.Matrix{}, stats, err
	}

	engine := sim.NewSerialEngine()
	m := a.Rows
	tiles := cfg.Tiles(k)
	captureBase := cfg.CaptureBase()
	carry := emu.New(m, cfg.Cols)

	for t := 0; t < tiles; t++ {
		base := t * cfg.Rows
		perTile := cfg.Rows + m + cfg.TotalLatency(latency.WeightStationary)
		dev := device.NewBuilder().
			WithEngine(engine).
			WithMaxCycles(2*perTile + 16).
			Build(fmt.Sprintf("WSDevice.Tile%02d", t), arr)

		// Weight load: Rows cycles, bottom tile row first so it settles in
		// the bottom PE row. Tail-tile rows beyond K are zero.
		for r := cfg.Rows - 1; r >= 0; r-- {
			top := make([]int32, cfg.Cols)
			if kk := base + r; kk < k {
				for j := 0; j < cfg.Cols; j++ {
					top[j] = int32(b.At(kk, j))
				}
			}
			dev.Enqueue(array.StepInput{Ctl: true, Top: top})
		}

		// Compute: one token per output row, carrying the previous tile's
		// partial sums as the injection stream.
		for mm := 0; mm < m; mm++ {
			left := make([]int32, cfg.Rows)
			for i := 0; i < cfg.Rows; i++ {
				if kk := base + i; kk < k {
					left[i] = int32(a.At(mm, kk))
				}
			}
			psums := make([]int64, cfg.Cols)
			for j := 0; j < cfg.Cols; j++ {
				psums[j] = carry.At(mm, j)
			}
			dev.Enqueue(array.StepInput{Valid: true, Left: left, Psums: psums})
		}

		// Log the bottom edge every cycle; the capture offsets below index
		// into this log.
		log := make([][]int64, 0, perTile)
		dev.SetObserver(func(cycle int, out array.StepOutput) {
			log = append(log, arr.BottomPsums(nil))
		})

		if err := dev.Run(); err != nil {
			return emu.Matrix{}, stats, fmt.Errorf("engine run failed: %w", err)
		}
		if !dev.Done() {
			return emu.Matrix{}, stats, fmt.Errorf(
				"tile %d did not drain within %d cycles", t, 2*perTile+16)
		}

		// Output row mm, column j drains captureBase+mm+j cycles after the
		// tile's first compute token, which follows Rows load cycles.
		for mm := 0; mm < m; mm++ {
			for j := 0; j < cfg.Cols; j++ {
				carry.Set(mm, j, log[cfg.Rows+captureBase+mm+j][j])
			}
		}

		stats.SimulatedCycles += uint64(dev.Cycle())
		stats.DoneCycle = dev.DoneCycle()
	}

	stats.Tiles = tiles
	return carry, stats, nil
}

// Run dispatches to RunOS or RunWS by dataflow.
func Run(df latency.Dataflow, cfg latency.Config, a, b emu.Matrix) (emu.Matrix, RunStats, error) {
	if df == latency.WeightStationary {
		return RunWS(cfg, a, b)
	}
	return RunOS(cfg, a, b)
}

// Workload is a single matrix product to push through an array.
type Workload struct {
	// Name identifies the workload
	Name string

	// Flow selects the dataflow discipline
	Flow latency.Dataflow

	// A is the left operand (M x K)
	A emu.Matrix

	// B is the right operand (K x Cols)
	B emu.Matrix
}

// RandomWorkload builds a seeded random workload shaped for the given array
// geometry and reduction length. The same seed always yields the same
// operands.
func RandomWorkload(name string, flow latency.Dataflow, cfg latency.Config, k int, seed int64) Workload {
	rng := rand.New(rand.NewSource(seed))
	return Workload{
		Name: name,
		Flow: flow,
		A:    emu.Random(cfg.Rows, k, cfg.IPWidth, rng),
		B:    emu.Random(k, cfg.Cols, cfg.IPWidth, rng),
	}
}

// RunResult holds the validation outcome for a single workload run.
type RunResult struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Flow is the dataflow discipline ("os" or "ws")
	Flow string `json:"flow"`

	// Rows, Cols, K describe the product shape
	Rows int `json:"rows"`
	Cols int `json:"cols"`
	K    int `json:"k"`

	// Tiles is the number of reduction tiles
	Tiles int `json:"tiles"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// Match reports whether the array result equals the reference product
	// bit-exactly after truncation to the accumulator width
	Match bool `json:"match"`

	// Mismatches is the number of differing elements when Match is false
	Mismatches int `json:"mismatches,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the validation harness.
type HarnessConfig struct {
	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables per-element mismatch output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs validation workloads and reports results.
type Harness struct {
	config    HarnessConfig
	array     latency.Config
	workloads []Workload
}

// NewHarness creates a new validation harness for the given array geometry.
func NewHarness(config HarnessConfig, arrayConfig latency.Config) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config: config,
		array:  arrayConfig,
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes all workloads and returns results.
func (h *Harness) RunAll() ([]RunResult, error) {
	results := make([]RunResult, 0, len(h.workloads))

	for _, w := range h.workloads {
		result, err := h.runWorkload(w)
		if err != nil {
			return results, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// runWorkload executes a single workload and compares it against the
// reference product.
func (h *Harness) runWorkload(w Workload) (RunResult, error) {
	start := time.Now()
	got, stats, err := Run(w.Flow, h.array, w.A, w.B)
	wallTime := time.Since(start)
	if err != nil {
		return RunResult{}, err
	}

	want, err := emu.MatMul(w.A, w.B)
	if err != nil {
		return RunResult{}, err
	}

	gotT := got.TruncateAll(h.array.OPWidth)
	wantT := want.TruncateAll(h.array.OPWidth)

	mismatches := 0
	for i := 0; i < gotT.Rows; i++ {
		for j := 0; j < gotT.Cols; j++ {
			if gotT.At(i, j) == wantT.At(i, j) {
				continue
			}
			mismatches++
			if h.config.Verbose && mismatches <= 8 {
				_, _ = fmt.Fprintf(h.config.Output,
					"  mismatch (%d, %d): got %d, want %d\n",
					i, j, gotT.At(i, j), wantT.At(i, j))
			}
		}
	}

	return RunResult{
		Name:            w.Name,
		Flow:            w.Flow.String(),
		Rows:            w.A.Rows,
		Cols:            w.B.Cols,
		K:               w.A.Cols,
		Tiles:           stats.Tiles,
		SimulatedCycles: stats.SimulatedCycles,
		Match:           mismatches == 0,
		Mismatches:      mismatches,
		WallTime:        wallTime,
	}, nil
}

// PrintResults outputs workload results in a human-readable format.
func (h *Harness) PrintResults(results []RunResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Systolic Validation Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Flow:             %s\n", r.Flow)
		_, _ = fmt.Fprintf(h.config.Output, "  Shape:            %dx%d @ k=%d\n", r.Rows, r.Cols, r.K)
		_, _ = fmt.Fprintf(h.config.Output, "  Tiles:            %d\n", r.Tiles)
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles: %d\n", r.SimulatedCycles)
		if r.Match {
			_, _ = fmt.Fprintln(h.config.Output, "  Result:           MATCH")
		} else {
			_, _ = fmt.Fprintf(h.config.Output, "  Result:           MISMATCH (%d elements)\n", r.Mismatches)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// ValidationReport is the complete output format for validation results.
type ValidationReport struct {
	// Metadata about the validation run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual workload results
	Results []RunResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the validation run.
type ReportMetadata struct {
	// Timestamp when the validation was run
	Timestamp string `json:"timestamp"`

	// Array is the array geometry used
	Array latency.Config `json:"array"`
}

// ReportSummary contains aggregate statistics across all workloads.
type ReportSummary struct {
	// TotalWorkloads is the number of workloads run
	TotalWorkloads int `json:"total_workloads"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// AllMatch reports whether every workload matched the reference
	AllMatch bool `json:"all_match"`

	// TotalWallTime is the total wall clock time for all workloads
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs validation results in JSON format for automated
// comparison.
func (h *Harness) PrintJSON(results []RunResult) error {
	var totalCycles uint64
	var totalWallTime time.Duration
	allMatch := true
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalWallTime += r.WallTime
		allMatch = allMatch && r.Match
	}

	report := ValidationReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Array:     h.array,
		},
		Results: results,
		Summary: ReportSummary{
			TotalWorkloads: len(results),
			TotalCycles:    totalCycles,
			AllMatch:       allMatch,
			TotalWallTime:  totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
