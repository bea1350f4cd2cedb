package device

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Builder can create devices.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxCycles int
}

// NewBuilder returns a builder with a 1 GHz clock and a disabled watchdog.
func NewBuilder() Builder {
	return Builder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMaxCycles arms the watchdog: the device stops after this many cycles
// even if the grid never drains. Zero disables the watchdog.
func (b Builder) WithMaxCycles(n int) Builder {
	b.maxCycles = n
	return b
}

// Build creates a device driving the given grid.
func (b Builder) Build(name string, grid Grid) *Device {
	d := &Device{
		grid:      grid,
		maxCycles: b.maxCycles,
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)
	return d
}
