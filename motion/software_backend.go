package motion

import "sync"

// SoftwareAxis is a software AxisBackend: it records pushed moves instead of
// driving real hardware. Used to unit-test AxisDriver/MultiAxisDriver/the
// planner on a host without TinyGo or a physical RP2040 (SPEC_FULL.md §6's
// simulation harness).
type SoftwareAxis struct {
	mu sync.Mutex

	Program       Program
	Direction     bool
	PushedSteps   uint32
	PushedSleeps  uint32
	PushCount     int
	ZeroLimit     bool
	ClearedFIFOs  int
	Rewound       int
}

// NewSoftwareAxis constructs a SoftwareAxis; hasZeroLimit mirrors whether a
// physical zero-limit input is wired (false for a rotary axis).
func NewSoftwareAxis(hasZeroLimit bool) *SoftwareAxis {
	return &SoftwareAxis{ZeroLimit: hasZeroLimit}
}

func (s *SoftwareAxis) ConfigureProgram(p Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Program = p
}

func (s *SoftwareAxis) SetDirection(positive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Direction = positive
}

func (s *SoftwareAxis) PushMove(steps uint32, sleepsPerStep uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PushedSteps = steps
	s.PushedSleeps = sleepsPerStep
	s.PushCount++
}

func (s *SoftwareAxis) HasZeroLimit() bool {
	return s.ZeroLimit
}

func (s *SoftwareAxis) ClearFIFOs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClearedFIFOs++
}

func (s *SoftwareAxis) RewindToStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rewound++
}

// SoftwareMultiAxis is a software MultiAxisBackend counterpart: batch
// operations and IRQ waits are no-ops (there is no real concurrency to
// simulate), but every call is recorded for assertions.
type SoftwareMultiAxis struct {
	mu sync.Mutex

	EnableCalls  [][NumAxes]bool
	QuiesceCalls [][NumAxes]bool
	WaitedAxes   []int
	Asleep       bool
}

func NewSoftwareMultiAxis() *SoftwareMultiAxis {
	return &SoftwareMultiAxis{}
}

func (s *SoftwareMultiAxis) BatchEnable(mask [NumAxes]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnableCalls = append(s.EnableCalls, mask)
}

func (s *SoftwareMultiAxis) BatchQuiesce(mask [NumAxes]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QuiesceCalls = append(s.QuiesceCalls, mask)
}

func (s *SoftwareMultiAxis) WaitIRQ(axis int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WaitedAxes = append(s.WaitedAxes, axis)
}

func (s *SoftwareMultiAxis) SetSleep(asleep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asleep = asleep
}
