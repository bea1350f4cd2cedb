// Package device mounts a systolic grid on the Akita event-driven engine.
// The grid itself is a plain synchronous state machine; Device turns it into
// a ticking component that consumes one queued stimulus vector per cycle,
// lets an observer watch every cycle, and stops the engine when the grid's
// drain timer fires or a watchdog budget runs out.
package device

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/Arjun0170/Systolic-Tensors/timing/array"
)

// Grid is the cycle-level surface shared by the output-stationary and
// weight-stationary arrays.
type Grid interface {
	Step(array.StepInput) array.StepOutput
	Reset()
}

// Observer is called after every committed cycle with the grid's output for
// that cycle. cycle counts committed Ticks, starting at 0.
type Observer func(cycle int, out array.StepOutput)

// Device drives a Grid, one Tick per cycle.
type Device struct {
	*sim.TickingComponent

	grid      Grid
	observer  Observer
	maxCycles int

	queue  []array.StepInput
	cursor int

	cycle     int
	lastCount uint32
	done      bool
	doneCycle int
	timedOut  bool
}

// Enqueue appends one per-cycle stimulus vector. Queued vectors are consumed
// in order, one per Tick; once the queue runs dry the device feeds idle
// cycles until the grid drains.
func (d *Device) Enqueue(in array.StepInput) {
	d.queue = append(d.queue, in)
}

// EnqueueAll appends a whole stimulus schedule.
func (d *Device) EnqueueAll(ins []array.StepInput) {
	d.queue = append(d.queue, ins...)
}

// SetObserver installs the per-cycle observer. Pass nil to remove it.
func (d *Device) SetObserver(o Observer) {
	d.observer = o
}

// Tick advances the grid by one cycle.
func (d *Device) Tick() (madeProgress bool) {
	if d.done || d.timedOut {
		return false
	}

	var in array.StepInput
	fed := false
	if d.cursor < len(d.queue) {
		in = d.queue[d.cursor]
		d.cursor++
		fed = true
	}

	out := d.grid.Step(in)
	cycle := d.cycle
	d.cycle++

	if d.observer != nil {
		d.observer(cycle, out)
	}

	if out.Done {
		d.done = true
		d.doneCycle = cycle
		return true
	}

	if d.maxCycles > 0 && d.cycle >= d.maxCycles {
		d.timedOut = true
		return true
	}

	// Keep ticking while stimulus remains or the drain timer is counting.
	// The grid's cycle counter freezes when the tracker is idle.
	if !fed && out.CycleCount == d.lastCount {
		d.lastCount = out.CycleCount
		return false
	}
	d.lastCount = out.CycleCount

	return true
}

// Run schedules the first tick and runs the engine until the grid drains,
// times out, or goes idle.
func (d *Device) Run() error {
	d.TickNow()
	return d.Engine.Run()
}

// Done reports whether the grid's drain timer has fired.
func (d *Device) Done() bool {
	return d.done
}

// DoneCycle returns the cycle index on which the drain timer fired. Only
// meaningful when Done is true.
func (d *Device) DoneCycle() int {
	return d.doneCycle
}

// TimedOut reports whether the watchdog budget elapsed before the grid
// drained.
func (d *Device) TimedOut() bool {
	return d.timedOut
}

// Cycle returns the number of committed cycles.
func (d *Device) Cycle() int {
	return d.cycle
}

// Restart clears the device's queue and progress state so the same grid can
// run another schedule. The grid itself is not reset; weight-stationary tile
// sequences rely on carrying grid state across runs.
func (d *Device) Restart() {
	d.queue = d.queue[:0]
	d.cursor = 0
	d.cycle = 0
	d.lastCount = 0
	d.done = false
	d.doneCycle = 0
	d.timedOut = false
}
