package motion

import "math"

// planPhase is the trapezoidal planner's internal state machine.
type planPhase int

const (
	phaseAccelerating planPhase = iota
	phaseCruising
	phaseDecelerating
	phaseComplete
)

// MotionSegment is one constant-average-speed leg of a trapezoidal move:
// a signed distance (mm) covered at the given average speed (mm/s).
type MotionSegment struct {
	DistMM   float64
	SpeedMMs float64
}

// calculateCruiseVelocity solves v = sqrt(v0^2 + 2*a*d), clamped at zero.
func calculateCruiseVelocity(v0, distance, maxAccel float64) float64 {
	vMaxSq := v0*v0 + 2*maxAccel*distance
	if vMaxSq <= 0 {
		return 0
	}
	return math.Sqrt(vMaxSq)
}

// solveQuadraticForTime finds t such that d = v0*t + 0.5*a*t^2, i.e. the
// positive root of the quadratic in t, clamped at zero.
func solveQuadraticForTime(v0, a, d float64) float64 {
	discriminant := v0*v0 + 2*a*d
	sqrtDiscriminant := math.Sqrt(math.Max(discriminant, 0))
	t := (sqrtDiscriminant - v0) / a
	if t > 0 {
		return t
	}
	return 0
}

// Plan is a one-shot trapezoidal velocity-profile generator for a single
// axis move (spec.md §4.4, "Trapezoidal planner (reserved module...)").
// Call Next repeatedly until it returns ok == false.
type Plan struct {
	currentPosition float64
	currentVelocity float64
	targetPosition  float64
	maxAccel        float64
	phase           planPhase
	cruiseVelocity  float64
}

// NewPlan builds a Plan for a move from currentPosition to targetPosition
// (both mm), starting at currentVelocity (mm/s) and bounded by maxAccel
// (mm/s^2).
func NewPlan(currentPosition, currentVelocity, targetPosition, maxAccel float64) *Plan {
	distance := math.Abs(targetPosition - currentPosition)
	cruise := calculateCruiseVelocity(currentVelocity, distance, maxAccel)

	phase := phaseCruising
	switch {
	case currentVelocity < cruise:
		phase = phaseAccelerating
	case currentVelocity > cruise:
		phase = phaseDecelerating
	}

	return &Plan{
		currentPosition: currentPosition,
		currentVelocity: currentVelocity,
		targetPosition:  targetPosition,
		maxAccel:        maxAccel,
		phase:           phase,
		cruiseVelocity:  cruise,
	}
}

func (p *Plan) direction() float64 {
	if p.targetPosition >= p.currentPosition {
		return 1
	}
	return -1
}

func (p *Plan) distanceRemaining() float64 {
	return math.Abs(p.targetPosition - p.currentPosition)
}

// Next produces the next MotionSegment, or ok == false once the move is
// complete.
func (p *Plan) Next() (MotionSegment, bool) {
	switch p.phase {
	case phaseComplete:
		return MotionSegment{}, false

	case phaseAccelerating:
		remaining := p.distanceRemaining()
		if remaining <= 0 {
			p.phase = phaseComplete
			return MotionSegment{}, false
		}

		v0, vTarget, accel := p.currentVelocity, p.cruiseVelocity, p.maxAccel
		timeToCruise := (vTarget - v0) / accel
		distanceToAccel := v0*timeToCruise + 0.5*accel*timeToCruise*timeToCruise

		dir := p.direction()
		if distanceToAccel >= remaining {
			timeToTarget := solveQuadraticForTime(v0, accel, remaining)
			finalVelocity := v0 + accel*timeToTarget

			p.currentPosition = p.targetPosition
			p.currentVelocity = finalVelocity
			p.phase = phaseComplete

			return MotionSegment{
				DistMM:   dir * remaining,
				SpeedMMs: (v0 + finalVelocity) / 2,
			}, true
		}

		p.currentPosition += dir * distanceToAccel
		p.currentVelocity = vTarget
		p.phase = phaseCruising

		return MotionSegment{
			DistMM:   dir * distanceToAccel,
			SpeedMMs: (v0 + vTarget) / 2,
		}, true

	case phaseCruising:
		remaining := p.distanceRemaining()
		if remaining <= 0 {
			p.phase = phaseComplete
			return MotionSegment{}, false
		}

		vCruise := p.cruiseVelocity
		decelDistance := vCruise * vCruise / (2 * p.maxAccel)

		if remaining <= decelDistance {
			p.phase = phaseDecelerating
			return p.Next()
		}

		cruiseDistance := remaining - decelDistance
		dir := p.direction()
		p.currentPosition += dir * cruiseDistance

		return MotionSegment{
			DistMM:   dir * cruiseDistance,
			SpeedMMs: vCruise,
		}, true

	case phaseDecelerating:
		remaining := p.distanceRemaining()
		if remaining <= 0 {
			p.phase = phaseComplete
			return MotionSegment{}, false
		}

		v0 := p.currentVelocity
		dir := p.direction()

		p.currentPosition = p.targetPosition
		p.currentVelocity = 0
		p.phase = phaseComplete

		return MotionSegment{
			DistMM:   dir * remaining,
			SpeedMMs: v0 / 2,
		}, true

	default:
		return MotionSegment{}, false
	}
}

// Collect drains every remaining segment. Intended for tests and for the
// one-shot (non-streaming) use of a Plan.
func (p *Plan) Collect() []MotionSegment {
	var segs []MotionSegment
	for {
		seg, ok := p.Next()
		if !ok {
			return segs
		}
		segs = append(segs, seg)
	}
}
