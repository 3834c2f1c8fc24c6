// Package motion implements the PIO-backed axis drivers, the multi-axis
// batch coordinator, and the motion planner that turns parsed G-code
// commands into per-axis step/speed pairs.
package motion

import "math"

// Program selects which PIO program is loaded on a state machine.
type Program int

const (
	// ProgramSteps pops (steps, sleeps) and emits that many pulses.
	ProgramSteps Program = iota
	// ProgramHome pops sleeps and emits pulses continuously until the
	// zero-limit input is asserted.
	ProgramHome
)

// StepsPerSecond is a requested step rate. Zero means "axis stationary".
type StepsPerSecond uint32

// pioCycleHz is one PIO cycle per spec.md §4.1: the clock divider is set so
// one cycle is 2µs, i.e. 500kHz.
const pioCycleHz = 500_000

// loopOverheadCycles is the fixed number of PIO cycles the Steps program
// spends on loop bookkeeping per step, subtracted from the requested sleep.
const loopOverheadCycles = 4

// safeLargeSleep is substituted for a zero step rate so an idle axis divides
// by nothing and is, for all practical purposes, stationary: at this sleep
// count a single step takes minutes.
const safeLargeSleep = math.MaxUint32 / 2

// SleepCyclesPerStep converts a requested step rate into the PIO "sleeps"
// word, per spec.md §4.1: "StepsPerSecond(n) is translated to
// sleep-cycles-per-step as 500_000/n, then saturating-subtracted by the
// fixed loop overhead". n == 0 maps to a large safe value.
func SleepCyclesPerStep(n StepsPerSecond) uint32 {
	if n == 0 {
		return safeLargeSleep
	}
	raw := pioCycleHz / uint32(n)
	if raw <= loopOverheadCycles {
		return 0
	}
	return raw - loopOverheadCycles
}

// AxisBackend is the per-axis hardware abstraction an AxisDriver drives. A
// real implementation owns one PIO state machine, a direction pin, a step
// pin, and optionally a zero-limit input (targets/pio/axis_pio.go); a
// software implementation (software_backend.go) counts steps for tests.
type AxisBackend interface {
	// ConfigureProgram reconfigures this axis's state machine for the
	// given program. Idempotent when already configured for it.
	ConfigureProgram(p Program)

	// SetDirection writes the direction GPIO level. true means increasing
	// position (per the axis's wiring convention).
	SetDirection(positive bool)

	// PushMove pushes (steps, sleepsPerStep) into the state machine's TX
	// FIFO. May block briefly if the FIFO is full.
	PushMove(steps uint32, sleepsPerStep uint32)

	// HasZeroLimit reports whether this axis has a zero-limit input wired
	// (false for the rotary C axis, per spec.md §4.2's homing note).
	HasZeroLimit() bool

	// ClearFIFOs empties the state machine's TX/RX FIFOs. Used by the
	// cancellation guard to leave no orphan pulses queued.
	ClearFIFOs()

	// RewindToStart forces the state machine's program counter back to the
	// first instruction of its currently configured program.
	RewindToStart()
}

// AxisDriver wraps one AxisBackend with the speed-encoding and
// cancellation-safe semantics of spec.md §4.1. Enable/disable/IRQ-wait for a
// single axis are not exposed here: those are the province of
// MultiAxisDriver's atomic batch operator (spec.md §4.2's start-together
// guarantee), which needs to act on all three axes with one register write,
// not via a sequence of per-axis calls.
type AxisDriver struct {
	backend        AxisBackend
	currentProgram Program
	configured     bool
}

// NewAxisDriver constructs an AxisDriver around a backend.
func NewAxisDriver(backend AxisBackend) *AxisDriver {
	return &AxisDriver{backend: backend}
}

// Configure reconfigures the underlying state machine for program p. A
// no-op if already configured for p, matching the idempotency spec.md §4.1
// requires of AxisDriver.configure.
func (a *AxisDriver) Configure(p Program) {
	if a.configured && a.currentProgram == p {
		return
	}
	a.backend.ConfigureProgram(p)
	a.currentProgram = p
	a.configured = true
}

// SetDirection sets the direction GPIO from a signed step count's sign.
func (a *AxisDriver) SetDirection(steps int32) {
	a.backend.SetDirection(steps >= 0)
}

// PushMove pushes an absolute step count and a requested step rate; the
// rate is converted to PIO sleep cycles via SleepCyclesPerStep.
func (a *AxisDriver) PushMove(stepsAbs uint32, speed StepsPerSecond) {
	a.backend.PushMove(stepsAbs, SleepCyclesPerStep(speed))
}

// HasZeroLimit reports whether this axis can be homed.
func (a *AxisDriver) HasZeroLimit() bool {
	return a.backend.HasZeroLimit()
}

// Cancel clears FIFOs and rewinds the program counter, the cleanup spec.md
// §4.1 requires on cancellation of an in-flight wait. Idempotent.
func (a *AxisDriver) Cancel() {
	a.backend.ClearFIFOs()
	a.backend.RewindToStart()
}
