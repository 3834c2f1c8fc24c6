package motion

import (
	"testing"

	"latherpc/core"
	"latherpc/gcode"
)

func newTestPlanner() (*Planner, *SoftwareMultiAxis, [NumAxes]*SoftwareAxis) {
	multi := NewSoftwareMultiAxis()
	axes := [NumAxes]*SoftwareAxis{
		NewSoftwareAxis(true),
		NewSoftwareAxis(true),
		NewSoftwareAxis(false),
	}
	backends := [NumAxes]AxisBackend{axes[0], axes[1], axes[2]}
	driver := NewMultiAxisDriver(multi, backends)
	p := NewPlanner(driver, DefaultAxisConfigs())
	return p, multi, axes
}

func mm(v float64) core.UCoord {
	return core.UCoordFromInt64(int64(v*core.One + 0.5))
}

// Scenario 1 (spec.md §8): G0 X10 -> position [10,0,0], X steps = 833.
func TestMoveSingleAxisRapid(t *testing.T) {
	p, _, axes := newTestPlanner()

	pos := gcode.Position{}
	pos[gcode.AxisX] = gcode.Present(mm(10))
	p.Handle(gcode.Command{Kind: gcode.RapidMove, Pos: pos})

	if got := p.State.Position[AxisX].Float64(); got != 10 {
		t.Fatalf("X position = %v, want 10", got)
	}
	if axes[AxisX].PushedSteps != 833 {
		t.Fatalf("X steps = %d, want 833", axes[AxisX].PushedSteps)
	}
	if axes[AxisZ].PushCount != 1 || axes[AxisZ].PushedSteps != 0 {
		t.Fatalf("Z axis should still be pushed with zero steps, got %+v", axes[AxisZ])
	}
}

// Scenario 2: G28 homes X/Z only (C has no zero limit) and zeroes position.
func TestHomeSetsIsHomedAndZeroesPosition(t *testing.T) {
	p, multi, axes := newTestPlanner()
	p.State.Position[AxisX] = mm(5)

	p.Handle(gcode.Command{Kind: gcode.Home})

	if !p.State.IsHomed {
		t.Fatal("expected IsHomed = true after G28")
	}
	for i, c := range p.State.Position {
		if c != 0 {
			t.Fatalf("position[%d] = %v, want 0", i, c)
		}
	}
	if len(multi.EnableCalls) != 1 || multi.EnableCalls[0] != [NumAxes]bool{true, true, false} {
		t.Fatalf("expected enable mask [true true false], got %v", multi.EnableCalls)
	}
	_ = axes
}

// Scenario 3: G0 X3 Z4 F5 -> steps X=250 Z=667, per-axis speed 3 mm/s / 4 mm/s.
func TestMoveDiagonalFeedrateDecomposition(t *testing.T) {
	p, _, axes := newTestPlanner()

	pos := gcode.Position{}
	pos[gcode.AxisX] = gcode.Present(mm(3))
	pos[gcode.AxisZ] = gcode.Present(mm(4))
	pos[gcode.FieldF] = gcode.Present(mm(5))
	p.Handle(gcode.Command{Kind: gcode.RapidMove, Pos: pos})

	if p.State.Feedrate != 5 {
		t.Fatalf("feedrate = %v, want 5", p.State.Feedrate)
	}
	if axes[AxisX].PushedSteps != 250 {
		t.Fatalf("X steps = %d, want 250", axes[AxisX].PushedSteps)
	}
	if axes[AxisZ].PushedSteps != 667 {
		t.Fatalf("Z steps = %d, want 667", axes[AxisZ].PushedSteps)
	}

	// 3 mm/s at 12 microns/step = 250 steps/s; 4 mm/s at 6 microns/step ~ 667 steps/s.
	if got, want := axes[AxisX].PushedSleeps, SleepCyclesPerStep(250); got != want {
		t.Fatalf("X sleeps = %d, want %d (250 steps/s)", got, want)
	}
	if got, want := axes[AxisZ].PushedSleeps, SleepCyclesPerStep(667); got != want {
		t.Fatalf("Z sleeps = %d, want %d (667 steps/s)", got, want)
	}
}

// spec.md §4.4 step 5's "Else (C is moving)" branch: whenever C moves, its
// duration (not the X/Z planar distance) sets the pace, and X/Z speeds are
// scaled to match it.
func TestMoveCAxisPriorityFeedrateDecomposition(t *testing.T) {
	p, _, axes := newTestPlanner()

	pos := gcode.Position{}
	pos[gcode.AxisX] = gcode.Present(mm(3))
	pos[gcode.AxisC] = gcode.Present(mm(1)) // one full rotation
	pos[gcode.FieldF] = gcode.Present(mm(800))
	p.Handle(gcode.Command{Kind: gcode.RapidMove, Pos: pos})

	if axes[AxisC].PushedSteps != 3200 {
		t.Fatalf("C steps = %d, want 3200", axes[AxisC].PushedSteps)
	}

	wantCSpeed := StepsPerSecond(800)
	if got := axes[AxisC].PushedSleeps; got != SleepCyclesPerStep(wantCSpeed) {
		t.Fatalf("C sleeps = %d, want %d (speed %d steps/s)", got, SleepCyclesPerStep(wantCSpeed), wantCSpeed)
	}

	// duration = steps[2] / speed[2] = 3200 / 800 = 4s; X must be scaled to
	// that duration, not to the (unrelated) planar X distance.
	duration := 3200.0 / 800.0
	wantXSpeed := mmPerSecToStepsPerSec(3/duration, p.State.Axes[AxisX])
	if got := axes[AxisX].PushedSleeps; got != SleepCyclesPerStep(wantXSpeed) {
		t.Fatalf("X sleeps = %d, want %d (speed %d steps/s)", got, SleepCyclesPerStep(wantXSpeed), wantXSpeed)
	}
}

// The planner must never push a nonzero step count for an axis whose target
// equals its current position (spec.md §8).
func TestMoveToSamePositionPushesZeroSteps(t *testing.T) {
	p, _, axes := newTestPlanner()
	p.State.Position[AxisX] = mm(7)

	pos := gcode.Position{}
	pos[gcode.AxisX] = gcode.Present(mm(7))
	p.Handle(gcode.Command{Kind: gcode.RapidMove, Pos: pos})

	if axes[AxisX].PushedSteps != 0 {
		t.Fatalf("expected zero steps for a no-op move, got %d", axes[AxisX].PushedSteps)
	}
}

// Scenario: DisableAllSteppers resets IsHomed and zeroes position.
func TestDisableAllSteppersResetsState(t *testing.T) {
	p, multi, _ := newTestPlanner()
	p.State.IsHomed = true
	p.State.Position[AxisX] = mm(42)

	p.Handle(gcode.Command{Kind: gcode.DisableAllSteppers})

	if p.State.IsHomed {
		t.Fatal("expected IsHomed = false after M18")
	}
	for i, c := range p.State.Position {
		if c != 0 {
			t.Fatalf("position[%d] = %v, want 0 after M18", i, c)
		}
	}
	if !multi.Asleep {
		t.Fatal("expected SetSleep(true) after M18")
	}
}

func TestEnableAllSteppersWakesDrivers(t *testing.T) {
	p, multi, _ := newTestPlanner()
	multi.Asleep = true

	p.Handle(gcode.Command{Kind: gcode.EnableAllSteppers})

	if multi.Asleep {
		t.Fatal("expected SetSleep(false) after M17")
	}
}

func TestGetCurrentPositionInvokesCallback(t *testing.T) {
	p, _, _ := newTestPlanner()
	p.State.Position[AxisX] = mm(1)
	p.State.Feedrate = 9

	var got PositionSnapshot
	called := false
	p.OnPosition = func(s PositionSnapshot) {
		called = true
		got = s
	}
	p.Handle(gcode.Command{Kind: gcode.GetCurrentPosition})

	if !called {
		t.Fatal("expected OnPosition to be called")
	}
	if got.X.Float64() != 1 || got.F != 9 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestParkIsNoOp(t *testing.T) {
	p, multi, axes := newTestPlanner()
	p.Handle(gcode.Command{Kind: gcode.Park})

	if len(multi.EnableCalls) != 0 {
		t.Fatal("Park must not trigger any motion")
	}
	for _, a := range axes {
		if a.PushCount != 0 {
			t.Fatal("Park must not push any axis move")
		}
	}
}
