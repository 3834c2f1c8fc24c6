package motion

import (
	"math"
	"time"

	"latherpc/core"
	"latherpc/gcode"
)

// CommandId is a monotonically increasing identifier assigned by the
// network side; 0 is reserved ("no-ID", spec.md §3).
type CommandId uint32

// Envelope pairs a command with the ID the network side assigned it. Stop
// never travels as an Envelope: it is fully handled at the network layer
// (spec.md §4.5) and is never pushed onto the command channel.
type Envelope struct {
	ID  CommandId
	Cmd gcode.Command
}

// Finished announces that the command with ID has completed its physical
// effect; published on the cross-core status channel.
type Finished struct {
	ID CommandId
}

// PositionSnapshot is emitted by GetCurrentPosition for diagnostic output.
type PositionSnapshot struct {
	X, Z, C core.UCoord
	F       float64
}

// Planner owns the MotionState and MultiAxisDriver and implements the
// per-command semantics of spec.md §4.4. Stop is handled entirely at the
// network layer (spec.md §4.5) and is never passed to Handle.
type Planner struct {
	State  *MotionState
	Driver *MultiAxisDriver

	// OnPosition, if set, is called synchronously by GetCurrentPosition.
	OnPosition func(PositionSnapshot)
}

// NewPlanner constructs a Planner over the given driver and a fresh
// MotionState built from axes.
func NewPlanner(driver *MultiAxisDriver, axes [NumAxes]AxisConfig) *Planner {
	return &Planner{State: NewMotionState(axes), Driver: driver}
}

// Handle executes cmd's physical effect and returns once it has completed
// (spec.md §4.4's per-command semantics). Kind == gcode.Stop must not be
// passed here; the network layer intercepts it before the command reaches
// the planner's channel.
func (p *Planner) Handle(cmd gcode.Command) {
	switch cmd.Kind {
	case gcode.Dwell:
		time.Sleep(time.Duration(cmd.DwellMillis) * time.Millisecond)

	case gcode.EnableAllSteppers:
		p.Driver.SetSleep(false)

	case gcode.DisableAllSteppers:
		p.Driver.SetSleep(true)
		p.State.IsHomed = false
		p.State.Position = [NumAxes]core.UCoord{}

	case gcode.Home:
		p.home()

	case gcode.GetCurrentPosition:
		if p.OnPosition != nil {
			p.OnPosition(PositionSnapshot{
				X: p.State.Position[AxisX],
				Z: p.State.Position[AxisZ],
				C: p.State.Position[AxisC],
				F: p.State.Feedrate,
			})
		}

	case gcode.Park:
		// Reserved; no-op in this revision (spec.md §4.4).

	case gcode.RapidMove, gcode.LinearMove:
		p.move(cmd.Pos)

	default:
		// Unreachable for any command the parser can produce.
	}
}

// Run is the motion core's main loop (spec.md §5: "Core 1 runs the motion
// planner"): pop an Envelope, execute its physical effect, publish
// Finished. Blocks forever; intended to be the body of the Core 1 task.
func (p *Planner) Run(in *core.Queue[Envelope], out *core.Queue[Finished]) {
	for {
		env := in.Pop()
		p.Handle(env.Cmd)
		out.Push(Finished{ID: env.ID})
	}
}

// home drives every homing-capable axis to its zero limit at HomeSpeedMMs,
// then marks the device homed with position zeroed (spec.md §4.4).
func (p *Planner) home() {
	var speeds [NumAxes]StepsPerSecond
	for i, axis := range p.State.Axes {
		if axis.Unit == Rotations {
			speeds[i] = 0 // rotary axes cannot be homed, spec.md §9
			continue
		}
		speeds[i] = mmPerSecToStepsPerSec(HomeSpeedMMs, axis)
	}

	p.Driver.Home(speeds)

	p.State.IsHomed = true
	p.State.Position = [NumAxes]core.UCoord{}
}

// move implements spec.md §4.4 steps 1-7 for RapidMove/LinearMove.
func (p *Planner) move(target gcode.Position) {
	if target[gcode.FieldF].Present {
		p.State.Feedrate = target[gcode.FieldF].Value.Float64()
	}

	var distMM [NumAxes]float64 // signed distance, C uses the negated convention
	var steps [NumAxes]int32

	for i := 0; i < NumAxes; i++ {
		var newPos core.UCoord
		if target[i].Present {
			newPos = target[i].Value
		} else {
			newPos = p.State.Position[i]
		}

		delta := newPos.Delta(p.State.Position[i])
		dist := delta.Float64()
		if i == AxisC {
			dist = -dist // physical wiring convention, spec.md §4.4 step 2
		}
		distMM[i] = dist

		// Commit position before the move completes, per the current
		// design spec.md §9 flags as an open question but does not
		// instruct changing (see DESIGN.md).
		p.State.Position[i] = newPos

		steps[i] = stepsForDistance(dist, p.State.Axes[i])
	}

	speed := decomposeFeedrate(p.State.Feedrate, distMM, steps, p.State.Axes)

	p.Driver.DoMove(steps, speed)
}

// stepsForDistance converts a signed distance (mm or rotations, matching
// axis.Unit) into a saturating step count per spec.md §4.4 step 4. This
// rounds to the nearest step (math.Round) rather than truncating, which is
// why it works from the float64 distance rather than core.MulDivSat: that
// helper's plain integer division truncates toward zero and would make a
// half-step-or-more remainder vanish instead of rounding up, at odds with
// spec.md §8's worked examples (e.g. a 4mm/6-micron-per-step move is 667
// steps, not 666).
func stepsForDistance(dist float64, axis AxisConfig) int32 {
	switch axis.Unit {
	case Millimeters:
		if axis.MicronsPerStep == 0 {
			return 0
		}
		microns := dist * 1000
		return saturatingRound(microns / float64(axis.MicronsPerStep))
	case Rotations:
		if axis.DegreesPerStepDen == 0 || axis.DegreesPerStepNum == 0 {
			return 0
		}
		degrees := dist * 360
		degreesPerStep := float64(axis.DegreesPerStepNum) / float64(axis.DegreesPerStepDen)
		return saturatingRound(degrees / degreesPerStep)
	default:
		return 0
	}
}

func saturatingRound(v float64) int32 {
	r := math.Round(v)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}

// decomposeFeedrate implements spec.md §4.4 step 5's feedrate decomposition.
// C takes priority whenever it moves at all ("Else (C is moving)"): C runs
// at the commanded feedrate directly (speed[2] = feedrate), and X/Z (if also
// moving) are scaled to match C's resulting duration
// (duration = steps[2] / speed[2]; speed[i] = steps[i] / duration). Only
// when C is not moving does the feedrate apply to the combined X/Z path.
func decomposeFeedrate(feedrate float64, distMM [NumAxes]float64, steps [NumAxes]int32, axes [NumAxes]AxisConfig) [NumAxes]StepsPerSecond {
	var speed [NumAxes]StepsPerSecond
	if feedrate <= 0 {
		return speed
	}

	dx, dz, dc := math.Abs(distMM[AxisX]), math.Abs(distMM[AxisZ]), math.Abs(distMM[AxisC])

	if dc > 0 {
		speed[AxisC] = StepsPerSecond(uint32(math.Round(feedrate)))
		if speed[AxisC] == 0 {
			return speed
		}
		duration := math.Abs(float64(steps[AxisC])) / float64(speed[AxisC])
		if duration > 0 {
			speed[AxisX] = mmPerSecToStepsPerSec(dx/duration, axes[AxisX])
			speed[AxisZ] = mmPerSecToStepsPerSec(dz/duration, axes[AxisZ])
		}
		return speed
	}

	if dx == 0 && dz == 0 {
		return speed
	}

	// Only X and/or Z moving: feedrate applies to their combined path.
	planar := math.Sqrt(dx*dx + dz*dz)
	duration := planar / feedrate
	speed[AxisX] = mmPerSecToStepsPerSec(dx/duration, axes[AxisX])
	speed[AxisZ] = mmPerSecToStepsPerSec(dz/duration, axes[AxisZ])
	return speed
}

// mmPerSecToStepsPerSec converts a linear speed (mm/s) into a step rate from
// the axis's microns_per_step. Used for homing and for the X/Z speeds in
// decomposeFeedrate; an axis with no microns_per_step (rotary) gets 0.
func mmPerSecToStepsPerSec(speedMMs float64, axis AxisConfig) StepsPerSecond {
	if axis.MicronsPerStep == 0 {
		return 0
	}
	stepsPerSec := speedMMs * 1000 / float64(axis.MicronsPerStep)
	if stepsPerSec < 0 {
		return 0
	}
	return StepsPerSecond(uint32(math.Round(stepsPerSec)))
}
