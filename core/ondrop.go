package core

// OnDrop is a scoped cleanup guard: construct it with the cleanup action,
// defer its Run, and call Defuse on the success path to skip cleanup. This
// stands in for Rust's Drop/RAII, which Go has no equivalent of — every call
// site that needs guaranteed cleanup on an early return or panic must
// explicitly `defer guard.Run()`.
//
//	guard := core.NewOnDrop(func() { sm.ClearFIFOs(); sm.Restart() })
//	defer guard.Run()
//	... await IRQ, may return early or panic ...
//	guard.Defuse()
type OnDrop struct {
	cleanup func()
	armed   bool
}

// NewOnDrop constructs an armed guard around cleanup.
func NewOnDrop(cleanup func()) *OnDrop {
	return &OnDrop{cleanup: cleanup, armed: true}
}

// Defuse disarms the guard: the next Run is a no-op. Call this once the
// scope has completed its happy path and cleanup is no longer wanted.
func (g *OnDrop) Defuse() {
	g.armed = false
}

// Run executes the cleanup action if still armed. Safe to call multiple
// times; only the first armed call has effect. Intended to be deferred.
func (g *OnDrop) Run() {
	if g.armed && g.cleanup != nil {
		g.armed = false
		g.cleanup()
	}
}
