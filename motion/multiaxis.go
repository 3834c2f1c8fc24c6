package motion

import "latherpc/core"

// NumAxes is the fixed axis count this firmware drives: X, Z, C.
const NumAxes = 3

const (
	AxisX = 0
	AxisZ = 1
	AxisC = 2
)

// MultiAxisBackend is the hardware surface MultiAxisDriver needs beyond what
// a single AxisDriver exposes: the atomic multi-state-machine batch
// operations that give the "all axes start together" guarantee spec.md
// §4.2 requires, plus the shared sleep-mode GPIO. A real implementation
// performs the batch operations as a single write to the PIO CTRL register
// (targets/pio/axis_pio.go); software_backend.go fakes it for tests.
type MultiAxisBackend interface {
	// BatchEnable atomically sets RESTART+ENABLE for every axis whose mask
	// entry is true, in a single hardware write.
	BatchEnable(mask [NumAxes]bool)

	// BatchQuiesce atomically clears ENABLE and sets RESTART for every axis
	// whose mask entry is true, returning those state machines to rest.
	BatchQuiesce(mask [NumAxes]bool)

	// WaitIRQ blocks until the given axis's state machine raises its IRQ.
	WaitIRQ(axis int)

	// SetSleep drives the shared (active-low) sleep-mode GPIO.
	SetSleep(asleep bool)
}

// MultiAxisDriver aggregates three AxisDriver instances, the shared sleep
// pin, and tracks which PIO program is currently active on all three state
// machines (spec.md §4.2).
type MultiAxisDriver struct {
	backend        MultiAxisBackend
	axes           [NumAxes]*AxisDriver
	currentProgram Program
	configured     bool
}

// NewMultiAxisDriver constructs a MultiAxisDriver over three per-axis
// backends and the shared batch/sleep backend.
func NewMultiAxisDriver(backend MultiAxisBackend, axisBackends [NumAxes]AxisBackend) *MultiAxisDriver {
	m := &MultiAxisDriver{backend: backend}
	for i, ab := range axisBackends {
		m.axes[i] = NewAxisDriver(ab)
	}
	return m
}

// configurePIO selects Home or Steps on all three axes; a no-op if already
// in that state, per spec.md §4.2.
func (m *MultiAxisDriver) configurePIO(p Program) {
	if m.configured && m.currentProgram == p {
		return
	}
	for _, a := range m.axes {
		a.Configure(p)
	}
	m.currentProgram = p
	m.configured = true
}

// DoMove executes a simultaneous multi-axis move: direction + FIFO push per
// axis, then a single batch restart+enable across all three, a join on all
// three IRQs, then a single batch disable+restart to quiescence. A
// cancellation guard on the await path guarantees no axis is left enabled
// with an orphan pulse in flight (spec.md §4.2).
func (m *MultiAxisDriver) DoMove(steps [NumAxes]int32, speed [NumAxes]StepsPerSecond) {
	m.configurePIO(ProgramSteps)

	mask := [NumAxes]bool{}
	for i := 0; i < NumAxes; i++ {
		m.axes[i].SetDirection(steps[i])
		abs := steps[i]
		if abs < 0 {
			abs = -abs
		}
		m.axes[i].PushMove(uint32(abs), speed[i])
		core.RecordTiming(core.EvtPushMove, uint8(i), 0, uint32(abs), uint32(speed[i]))
		mask[i] = true
	}

	guard := core.NewOnDrop(func() {
		m.backend.BatchQuiesce(mask)
		for i, on := range mask {
			if on {
				m.axes[i].Cancel()
			}
		}
	})
	defer guard.Run()

	m.backend.BatchEnable(mask)
	core.RecordTiming(core.EvtMoveStart, 0xFF, 0, 0, 0)
	for i, on := range mask {
		if on {
			m.backend.WaitIRQ(i)
		}
	}

	m.backend.BatchQuiesce(mask)
	core.RecordTiming(core.EvtMoveDone, 0xFF, 0, 0, 0)
	guard.Defuse()
}

// Home selects the Home program and drives every axis with a zero-limit
// input toward it at the given per-axis speed (a zero speed for an axis
// without a limit, i.e. the rotary C axis, leaves it stationary — spec.md
// §4.2/§9 "Homing of rotary axes").
func (m *MultiAxisDriver) Home(speeds [NumAxes]StepsPerSecond) {
	m.configurePIO(ProgramHome)

	mask := [NumAxes]bool{}
	for i := 0; i < NumAxes; i++ {
		if !m.axes[i].HasZeroLimit() {
			continue
		}
		m.axes[i].SetDirection(-1)
		m.axes[i].PushMove(0, speeds[i])
		mask[i] = true
	}

	guard := core.NewOnDrop(func() {
		m.backend.BatchQuiesce(mask)
		for i, on := range mask {
			if on {
				m.axes[i].Cancel()
			}
		}
	})
	defer guard.Run()

	m.backend.BatchEnable(mask)
	core.RecordTiming(core.EvtHomeStart, 0xFF, 0, 0, 0)
	for i, on := range mask {
		if on {
			m.backend.WaitIRQ(i)
		}
	}

	m.backend.BatchQuiesce(mask)
	core.RecordTiming(core.EvtHomeDone, 0xFF, 0, 0, 0)
	guard.Defuse()
}

// SetSleep drives the shared sleep-mode GPIO (active-low: asleep=true cuts
// drive current to all three motors).
func (m *MultiAxisDriver) SetSleep(asleep bool) {
	m.backend.SetSleep(asleep)
}
