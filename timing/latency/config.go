package latency

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
)

// Dataflow selects the dataflow discipline of the array.
type Dataflow int

const (
	// OutputStationary keeps each PE's accumulator fixed in place while both
	// operand streams move through the grid.
	OutputStationary Dataflow = iota

	// WeightStationary keeps each PE's weight fixed in place while partial
	// sums move vertically through the grid.
	WeightStationary
)

// String returns the short name of the dataflow.
func (d Dataflow) String() string {
	switch d {
	case OutputStationary:
		return "os"
	case WeightStationary:
		return "ws"
	default:
		return "unknown"
	}
}

// ParseDataflow parses "os" or "ws".
func ParseDataflow(s string) (Dataflow, error) {
	switch s {
	case "os":
		return OutputStationary, nil
	case "ws":
		return WeightStationary, nil
	default:
		return 0, fmt.Errorf("unknown dataflow %q (want \"os\" or \"ws\")", s)
	}
}

// Config holds the geometry and timing parameters of a systolic array.
// All latency constants are derived from these values; none are hand-tuned
// per instance.
type Config struct {
	// Rows is the number of PE rows in the grid.
	Rows int `json:"rows"`

	// Cols is the number of PE columns in the grid.
	Cols int `json:"cols"`

	// IPWidth is the operand width in bits (signed two's complement).
	IPWidth int `json:"ip_width"`

	// OPWidth is the accumulator width in bits (signed two's complement).
	OPWidth int `json:"op_width"`

	// PipeLatency is the number of cycles between an operand pair entering a
	// PE and the accumulator update it causes. The multiply and accumulate
	// stages are fixed, so PipeLatency must be at least 2; the align chain
	// between them has PipeLatency-2 registers. Default: 3 (4-stage PE).
	PipeLatency int `json:"pipe_latency"`

	// ClrLoadFirst selects the clear policy of the accumulate stage. When
	// true, a clear-tagged token seeds the accumulator with its own product;
	// when false, clear resets the accumulator to zero and the product of the
	// clear-tagged token is discarded.
	ClrLoadFirst bool `json:"clr_load_first"`

	// AllowTruncation permits OPWidth values too narrow to hold the
	// full-precision product sum. Results are then truncated to OPWidth on
	// interchange, matching the hardware wrap-around.
	AllowTruncation bool `json:"allow_truncation"`

	// ExtraDrainCycles is added to the output-stationary total latency. Some
	// OS variants key their drain timer off the last row's injection point
	// instead of the array's last accumulator write, which shows up as extra
	// Rows cycles. Default: 0.
	ExtraDrainCycles int `json:"extra_drain_cycles"`
}

// DefaultConfig returns a Config matching the 16x16, 8-bit operand, 32-bit
// accumulator reference geometry.
func DefaultConfig() Config {
	return Config{
		Rows:         16,
		Cols:         16,
		IPWidth:      8,
		OPWidth:      32,
		PipeLatency:  3,
		ClrLoadFirst: true,
	}
}

// LoadConfig loads a Config from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read array config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse array config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize array config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write array config file: %w", err)
	}

	return nil
}

// Validate checks the construction-time constraints. Width misconfigurations
// are rejected here rather than silently truncated at run time.
func (c Config) Validate() error {
	if c.Rows < 1 {
		return fmt.Errorf("rows must be >= 1, got %d", c.Rows)
	}
	if c.Cols < 1 {
		return fmt.Errorf("cols must be >= 1, got %d", c.Cols)
	}
	if c.IPWidth < 2 || c.IPWidth > 32 {
		return fmt.Errorf("ip_width must be in [2, 32], got %d", c.IPWidth)
	}
	if c.OPWidth < 1 || c.OPWidth > 64 {
		return fmt.Errorf("op_width must be in [1, 64], got %d", c.OPWidth)
	}
	if c.PipeLatency < 2 {
		return fmt.Errorf("pipe_latency must be >= 2, got %d", c.PipeLatency)
	}
	if c.ExtraDrainCycles < 0 {
		return fmt.Errorf("extra_drain_cycles must be >= 0, got %d", c.ExtraDrainCycles)
	}
	if !c.AllowTruncation && c.OPWidth < 2*c.IPWidth {
		return fmt.Errorf(
			"op_width %d cannot hold a single %d-bit product without truncation",
			c.OPWidth, c.IPWidth)
	}
	return nil
}

// ValidateForK checks that the accumulator is wide enough to hold the
// full-precision sum of k products without overflow. AllowTruncation skips
// the check.
func (c Config) ValidateForK(k int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if k < 1 {
		return fmt.Errorf("k must be >= 1, got %d", k)
	}
	if c.AllowTruncation {
		return nil
	}
	if min := MinOPWidth(c.IPWidth, k); c.OPWidth < min {
		return fmt.Errorf(
			"op_width %d too narrow for k=%d with ip_width %d (need >= %d)",
			c.OPWidth, k, c.IPWidth, min)
	}
	return nil
}

// MinOPWidth returns the narrowest accumulator width that holds the sum of k
// signed ipWidth x ipWidth products at full precision.
func MinOPWidth(ipWidth, k int) int {
	// A signed w x w product fits in 2w-1 bits; summing k of them adds
	// ceil(log2(k)) bits of headroom.
	headroom := bits.Len(uint(k - 1))
	return 2*ipWidth - 1 + headroom
}

// Clone returns a copy of the Config.
func (c Config) Clone() Config {
	return c
}
