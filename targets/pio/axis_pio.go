//go:build rp2040

// Package pio implements the real PIO-backed motion.AxisBackend and
// motion.MultiAxisBackend: two PIO programs (Steps, Home) shared by every
// axis on one PIO block, and the raw-register batch enable/quiesce that
// gives the three axes their start-together guarantee.
package pio

import (
	"device/rp"
	"machine"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"latherpc/core"
	"latherpc/motion"
)

// autoOrigin asks AddProgram to place a program wherever it fits in the
// PIO block's shared 32-word instruction memory, rather than pinning it to
// a fixed offset the way the packed single-word program this replaces did.
const autoOrigin = -1

// pioClkDivInt divides the 125MHz system clock down to one PIO cycle per
// 2µs (500kHz), matching motion.pioCycleHz.
const pioClkDivInt = 250

// fifoPollInterval is how often WaitIRQ and PushMove re-check hardware
// state while blocked. Short enough not to add meaningful latency at the
// step rates this firmware targets, long enough not to pin a core.
const fifoPollInterval = 50 * time.Microsecond

// buildStepsProgram encodes the Steps program of spec.md §4.1: pop steps,
// then sleeps, as two separate FIFO words (not packed into one command
// word), and emit that many pulses with that many idle PIO cycles between
// them. Completion is signalled by a push into the RX FIFO rather than a
// hardware IRQ: routing a genuine PIO IRQ to a CPU wakeup needs an
// interrupt vector this package's dependencies do not expose, while a push
// gives the same "axis finished" wakeup using only the FIFO primitives
// already in use elsewhere in this file.
func buildStepsProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                        // 0: pull block        -> OSR = steps
		asm.Out(rp2pio.OutDestX, 32).Encode(),                 // 1: out x, 32
		asm.Pull(false, true).Encode(),                        // 2: pull block        -> OSR = sleeps
		asm.Mov(rp2pio.MovDestISR, rp2pio.MovSrcOSR).Encode(), // 3: mov isr, osr      (save reload value)
		asm.Jmp(6, rp2pio.JmpXNZeroDec).Encode(),              // 4: jmp x--, 6        (steps > 0: count one, enter step_loop)
		asm.Jmp(11, rp2pio.JmpAlways).Encode(),                // 5: jmp 11            (steps == 0: no pulses)
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Encode(),               // 6: set pins, 1       (step high)
		asm.Set(rp2pio.SetDestPins, 0).Encode(),                // 7: set pins, 0      (step low)
		asm.Mov(rp2pio.MovDestY, rp2pio.MovSrcISR).Encode(),    // 8: mov y, isr        (reload delay)
		// delay_loop:
		asm.Jmp(9, rp2pio.JmpYNZeroDec).Encode(), // 9: jmp y--, 9
		asm.Jmp(6, rp2pio.JmpXNZeroDec).Encode(), // 10: jmp x--, 6 (step_loop)
		asm.Push(false, true).Encode(),           // 11: push block       (signal completion)
		// .wrap
	}
}

// buildHomeProgram encodes the Home program of spec.md §4.1: pop and
// discard the leading steps word (Axis.PushMove always pushes a (steps,
// sleeps) pair, matching the Steps program's protocol, but Home only cares
// about the sleeps rate), then pop the real sleeps word and step forever at
// that rate. The zero-limit condition is checked in Go (Backend.WaitIRQ),
// not in the program itself, since testing an arbitrary GPIO from PIO
// assembly needs a pin-conditioned jump this assembler does not expose a
// builder for.
func buildHomeProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),                        // 0: pull block   -> OSR = steps (discarded)
		asm.Pull(false, true).Encode(),                        // 1: pull block   -> OSR = sleeps
		asm.Mov(rp2pio.MovDestISR, rp2pio.MovSrcOSR).Encode(), // 2: mov isr, osr
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Encode(),             // 3: set pins, 1
		asm.Set(rp2pio.SetDestPins, 0).Encode(),              // 4: set pins, 0
		asm.Mov(rp2pio.MovDestY, rp2pio.MovSrcISR).Encode(), // 5: mov y, isr
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),            // 6: jmp y--, 6
		asm.Jmp(3, rp2pio.JmpAlways).Encode(),               // 7: jmp step_loop
	}
}

// Backend is the shared hardware surface for every axis on one PIO block:
// both programs loaded once, plus the raw CTRL-register batch operations
// (device/rp, not rp2pio — the wrapper package has no multi-SM atomic
// write, so this follows the raw-register technique the earlier all-in-one
// packed-word backend used for the same purpose) that give DoMove and Home
// their start-together guarantee.
type Backend struct {
	pio          *rp2pio.PIO
	hw           *rp.PIO0_Type
	stepsOffset  uint8
	homeOffset   uint8
	axes         [motion.NumAxes]*Axis
	sleepPin     machine.Pin
}

// NewBackend claims pio0 and loads both programs. sleepPin drives the
// shared (active-low) stepper-driver sleep line.
func NewBackend(sleepPin machine.Pin) (*Backend, error) {
	rp.RESETS.RESET.ClearBits(rp.RESETS_RESET_PIO0)
	for !rp.RESETS.RESET_DONE.HasBits(rp.RESETS_RESET_DONE_PIO0) {
	}

	b := &Backend{pio: rp2pio.PIO0, hw: rp.PIO0, sleepPin: sleepPin}

	stepsOffset, err := b.pio.AddProgram(buildStepsProgram(), autoOrigin)
	if err != nil {
		return nil, err
	}
	homeOffset, err := b.pio.AddProgram(buildHomeProgram(), autoOrigin)
	if err != nil {
		return nil, err
	}
	b.stepsOffset, b.homeOffset = stepsOffset, homeOffset

	sleepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.SetSleep(true) // drivers start asleep until EnableAllSteppers.

	return b, nil
}

// NewAxis claims a state machine on this backend's PIO block and wires it
// to a step/direction pin pair, and optionally a zero-limit input.
func (b *Backend) NewAxis(smNum uint8, stepPin, dirPin machine.Pin, limitPin machine.Pin, hasLimit bool) *Axis {
	sm := b.pio.StateMachine(smNum)
	sm.TryClaim()

	stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	if hasLimit {
		// Configured through core.GPIODriver, not machine.Pin directly, so
		// WaitIRQ's core.MustGPIO().ReadPin call below reads the same
		// driver-tracked pin state it configured here.
		core.MustGPIO().ConfigureInputPullUp(core.GPIOPin(limitPin))
	}

	a := &Axis{
		backend:  b,
		sm:       sm,
		smNum:    smNum,
		stepPin:  stepPin,
		dirPin:   dirPin,
		limitPin: limitPin,
		hasLimit: hasLimit,
	}
	b.axes[smNum] = a
	a.ConfigureProgram(motion.ProgramSteps)
	return a
}

// BatchEnable atomically sets SM_RESTART and SM_ENABLE for every axis whose
// mask entry is true, in a single CTRL register write (spec.md §4.2's
// start-together guarantee).
func (b *Backend) BatchEnable(mask [motion.NumAxes]bool) {
	var bits uint32
	for i, on := range mask {
		if !on || b.axes[i] == nil {
			continue
		}
		bits |= 1 << (b.axes[i].smNum + rp.PIO0_CTRL_SM_ENABLE_Pos)
		bits |= 1 << (b.axes[i].smNum + rp.PIO0_CTRL_SM_RESTART_Pos)
	}
	b.hw.CTRL.SetBits(bits)
}

// BatchQuiesce clears SM_ENABLE and sets SM_RESTART for every axis whose
// mask entry is true, returning those state machines to rest.
func (b *Backend) BatchQuiesce(mask [motion.NumAxes]bool) {
	var enableBits, restartBits uint32
	for i, on := range mask {
		if !on || b.axes[i] == nil {
			continue
		}
		enableBits |= 1 << (b.axes[i].smNum + rp.PIO0_CTRL_SM_ENABLE_Pos)
		restartBits |= 1 << (b.axes[i].smNum + rp.PIO0_CTRL_SM_RESTART_Pos)
	}
	b.hw.CTRL.ClearBits(enableBits)
	b.hw.CTRL.SetBits(restartBits)
}

// WaitIRQ blocks until axis finishes its current command: a Steps move
// signals completion via the RX-FIFO push at the end of its program (see
// buildStepsProgram); a Home move signals completion when its zero-limit
// input asserts, checked here rather than inside the PIO program.
func (b *Backend) WaitIRQ(axis int) {
	a := b.axes[axis]
	if a == nil {
		return
	}

	if a.currentProgram == motion.ProgramHome {
		if !a.hasLimit {
			return
		}
		for !core.MustGPIO().ReadPin(core.GPIOPin(a.limitPin)) {
			time.Sleep(fifoPollInterval)
		}
		return
	}

	for a.sm.IsRxFIFOEmpty() {
		time.Sleep(fifoPollInterval)
	}
	a.sm.RxGet()
}

// SetSleep drives the shared active-low sleep-mode GPIO.
func (b *Backend) SetSleep(asleep bool) {
	b.sleepPin.Set(!asleep)
}

// Axis is the real per-axis motion.AxisBackend: one state machine on a
// shared Backend, a step pin, a direction pin, and an optional zero-limit
// input.
type Axis struct {
	backend  *Backend
	sm       rp2pio.StateMachine
	smNum    uint8
	stepPin  machine.Pin
	dirPin   machine.Pin
	limitPin machine.Pin
	hasLimit bool

	currentProgram motion.Program
	currentOffset  uint8
	cfg            rp2pio.StateMachineConfig
}

// ConfigureProgram reconfigures this axis's state machine to run p, using
// whichever of the backend's two shared program copies p names. The state
// machine is left disabled; MultiAxisDriver enables it via Backend's batch
// operations, never directly.
func (a *Axis) ConfigureProgram(p motion.Program) {
	offset := a.backend.stepsOffset
	length := len(buildStepsProgram())
	if p == motion.ProgramHome {
		offset = a.backend.homeOffset
		length = len(buildHomeProgram())
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(a.stepPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(length)-1, offset)
	cfg.SetClkDivIntFrac(pioClkDivInt, 0)

	a.sm.Init(offset, cfg)
	a.sm.SetPindirsConsecutive(a.stepPin, 1, true)
	a.sm.SetPinsConsecutive(a.stepPin, 1, false)
	a.sm.SetEnabled(false)

	a.currentProgram = p
	a.currentOffset = offset
	a.cfg = cfg
}

// SetDirection drives the direction GPIO directly: spec.md §4.1 requires
// direction to be a separate pin write, not a bit packed into the PIO word.
func (a *Axis) SetDirection(positive bool) {
	a.dirPin.Set(positive)
}

// PushMove pushes the (steps, sleepsPerStep) word pair the Steps/Home
// programs expect, blocking briefly if the FIFO has no room yet.
func (a *Axis) PushMove(steps uint32, sleepsPerStep uint32) {
	a.txPut(steps)
	a.txPut(sleepsPerStep)
}

func (a *Axis) txPut(word uint32) {
	for a.sm.IsTxFIFOFull() {
		time.Sleep(fifoPollInterval)
	}
	a.sm.TxPut(word)
}

// HasZeroLimit reports whether this axis has a zero-limit input wired.
func (a *Axis) HasZeroLimit() bool {
	return a.hasLimit
}

// ClearFIFOs empties this axis's TX/RX FIFOs.
func (a *Axis) ClearFIFOs() {
	a.sm.ClearFIFOs()
}

// RewindToStart forces the state machine's program counter back to the
// first instruction of its currently configured program by re-running the
// same Init the last ConfigureProgram call used.
func (a *Axis) RewindToStart() {
	a.sm.Init(a.currentOffset, a.cfg)
}
