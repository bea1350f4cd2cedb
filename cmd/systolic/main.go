// Package main provides the systolic command line interface: stimulus
// generation, array validation runs, and golden-file verification.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Arjun0170/Systolic-Tensors/benchmarks"
	"github.com/Arjun0170/Systolic-Tensors/emu"
	"github.com/Arjun0170/Systolic-Tensors/loader"
	"github.com/Arjun0170/Systolic-Tensors/timing/latency"
)

var (
	configPath = flag.String("config", "", "Path to array configuration JSON file")
	kDim       = flag.Int("k", 128, "Reduction dimension length")
	seed       = flag.Int64("seed", 1, "Stimulus generation seed")
	flow       = flag.String("flow", "both", "Dataflow to run: os, ws, or both")
	dir        = flag.String("dir", "stimulus", "Stimulus file directory")
	jsonOut    = flag.Bool("json", false, "Emit results as JSON")
	verbose    = flag.Bool("v", false, "Verbose output")
)

const (
	inputsOSFile = "inputs_os.hex"
	inputsWSFile = "inputs_ws.hex"
	weightsFile  = "weights.hex"
	goldenFile   = "golden.hex"
	arrayFile    = "array.json"
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := arrayConfig()
	if err != nil {
		fatal("Error loading array config: %v", err)
	}

	flows, err := selectedFlows()
	if err != nil {
		fatal("%v", err)
	}

	switch flag.Arg(0) {
	case "gen":
		err = runGen(cfg)
	case "run":
		err = runValidate(cfg, flows)
	case "verify":
		err = runVerify(cfg, flows)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: systolic [options] <gen|run|verify>\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  gen     Generate stimulus and golden files\n")
	fmt.Fprintf(os.Stderr, "  run     Run seeded workloads through the arrays and validate\n")
	fmt.Fprintf(os.Stderr, "  verify  Replay stimulus files and compare against the golden file\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func arrayConfig() (latency.Config, error) {
	if *configPath != "" {
		return latency.LoadConfig(*configPath)
	}
	return latency.DefaultConfig(), nil
}

func selectedFlows() ([]latency.Dataflow, error) {
	if *flow == "both" {
		return []latency.Dataflow{
			latency.OutputStationary,
			latency.WeightStationary,
		}, nil
	}
	df, err := latency.ParseDataflow(*flow)
	if err != nil {
		return nil, err
	}
	return []latency.Dataflow{df}, nil
}

// runGen writes the stimulus set: per-dataflow input streams, the shared
// weight stream, the golden result, and the array config that produced them.
func runGen(cfg latency.Config) error {
	if err := cfg.ValidateForK(*kDim); err != nil {
		return err
	}

	w := benchmarks.RandomWorkload("gen", latency.OutputStationary, cfg, *kDim, *seed)
	golden, err := emu.MatMul(w.A, w.B)
	if err != nil {
		return err
	}
	golden = golden.TruncateAll(cfg.OPWidth)

	if err := os.MkdirAll(*dir, 0755); err != nil {
		return fmt.Errorf("failed to create stimulus directory: %w", err)
	}

	files := []struct {
		name  string
		write func(f *os.File) error
	}{
		{inputsOSFile, func(f *os.File) error {
			return loader.WriteInputsOS(f, w.A, cfg.IPWidth)
		}},
		{inputsWSFile, func(f *os.File) error {
			return loader.WriteInputsWS(f, w.A, cfg.Rows, cfg.IPWidth)
		}},
		{weightsFile, func(f *os.File) error {
			return loader.WriteWeights(f, w.B, cfg.IPWidth)
		}},
		{goldenFile, func(f *os.File) error {
			return loader.WriteGolden(f, golden, cfg.OPWidth)
		}},
	}
	for _, out := range files {
		if err := writeFile(filepath.Join(*dir, out.name), out.write); err != nil {
			return err
		}
	}
	if err := cfg.SaveConfig(filepath.Join(*dir, arrayFile)); err != nil {
		return err
	}

	if *verbose {
		fmt.Printf("Generated %dx%d @ k=%d stimulus (seed %d) in %s\n",
			cfg.Rows, cfg.Cols, *kDim, *seed, *dir)
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// runValidate pushes seeded workloads through the selected dataflows and
// reports cycle counts plus bit-exact comparison against the reference model.
func runValidate(cfg latency.Config, flows []latency.Dataflow) error {
	hc := benchmarks.DefaultConfig()
	hc.Verbose = *verbose
	h := benchmarks.NewHarness(hc, cfg)

	for _, df := range flows {
		h.AddWorkload(benchmarks.RandomWorkload(
			"random-"+df.String(), df, cfg, *kDim, *seed))
	}
	if len(flows) == 2 {
		h.AddWorkloads([]benchmarks.Workload{
			benchmarks.IdentityWorkload(
				"identity-os", latency.OutputStationary, cfg, *seed+2),
			benchmarks.RandomWorkload(
				"tiled-ws", latency.WeightStationary, cfg, 2*(*kDim)+1, *seed+3),
		})
	}

	results, err := h.RunAll()
	if err != nil {
		return err
	}

	if *jsonOut {
		if err := h.PrintJSON(results); err != nil {
			return err
		}
	} else {
		h.PrintResults(results)
	}

	for _, r := range results {
		if !r.Match {
			return fmt.Errorf("workload %s mismatched the reference model", r.Name)
		}
	}
	return nil
}

// runVerify replays a generated stimulus set through the selected dataflows
// and checks the drained results against the golden file bit-exactly.
func runVerify(cfg latency.Config, flows []latency.Dataflow) error {
	if *configPath == "" {
		loaded, err := latency.LoadConfig(filepath.Join(*dir, arrayFile))
		if err == nil {
			cfg = loaded
		}
	}

	a, b, golden, err := readStimulus(cfg)
	if err != nil {
		return err
	}

	for _, df := range flows {
		got, stats, err := benchmarks.Run(df, cfg, a, b)
		if err != nil {
			return err
		}
		if !got.TruncateAll(cfg.OPWidth).Equal(golden) {
			return fmt.Errorf("%s result does not match golden file", df)
		}
		fmt.Printf("%s: PASS (%d cycles, %d tiles)\n",
			df, stats.SimulatedCycles, stats.Tiles)
	}
	return nil
}

// readStimulus reconstructs the operand matrices from the OS input stream and
// the weight stream; both dataflows replay the same product.
func readStimulus(cfg latency.Config) (a, b, golden emu.Matrix, err error) {
	inputs, err := readHex(filepath.Join(*dir, inputsOSFile), cfg.Rows, cfg.IPWidth)
	if err != nil {
		return
	}
	weights, err := readHex(filepath.Join(*dir, weightsFile), cfg.Cols, cfg.IPWidth)
	if err != nil {
		return
	}
	k := len(inputs)
	if k == 0 || len(weights) != k {
		err = fmt.Errorf(
			"stimulus length mismatch: %d input lines, %d weight lines",
			k, len(weights))
		return
	}

	a = emu.New(cfg.Rows, k)
	for kk, lanes := range inputs {
		for r := 0; r < cfg.Rows; r++ {
			a.Set(r, kk, lanes[r])
		}
	}
	b = emu.New(k, cfg.Cols)
	for kk, lanes := range weights {
		for c := 0; c < cfg.Cols; c++ {
			b.Set(kk, c, lanes[c])
		}
	}

	gf, err := os.Open(filepath.Join(*dir, goldenFile))
	if err != nil {
		err = fmt.Errorf("failed to open golden file: %w", err)
		return
	}
	defer gf.Close()
	golden, err = loader.ReadGolden(gf, cfg.Rows, cfg.Cols, cfg.OPWidth)
	return
}

func readHex(path string, lanes, width int) ([][]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stimulus file: %w", err)
	}
	defer f.Close()
	return loader.ReadStream(f, lanes, width)
}
