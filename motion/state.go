package motion

import "latherpc/core"

// Unit identifies whether an axis is measured in millimeters or rotations.
type Unit int

const (
	Millimeters Unit = iota
	Rotations
)

// AxisConfig is the immutable per-axis configuration (spec.md §3).
// MicronsPerStep and DegreesPerStepNum/Den are kept as plain rationals
// rather than core.UCoord: this is build-time configuration data, not a
// runtime position, and an exact integer ratio reproduces the spec's worked
// examples (§8) without float rounding drift.
type AxisConfig struct {
	MicronsPerStep    int64 // only meaningful when Unit == Millimeters
	DegreesPerStepNum int64 // degrees-per-step numerator, only for Rotations
	DegreesPerStepDen int64 // degrees-per-step denominator, only for Rotations
	Unit              Unit
	MaxAccelMMs2      float64 // reserved for the trapezoidal planner, §4.4
}

// DefaultAxisConfigs returns the three axis configurations from spec.md §8's
// worked examples: X,Z in millimeters (microns_per_step 12, 6), C in
// rotations (microns_per_step 12 listed in the data model table is a
// leftover of the worked-example header; the operative rotary ratio is
// degrees_per_step = 1.8/16).
func DefaultAxisConfigs() [NumAxes]AxisConfig {
	return [NumAxes]AxisConfig{
		AxisX: {MicronsPerStep: 12, Unit: Millimeters, MaxAccelMMs2: 500},
		AxisZ: {MicronsPerStep: 6, Unit: Millimeters, MaxAccelMMs2: 500},
		AxisC: {DegreesPerStepNum: 18, DegreesPerStepDen: 160, Unit: Rotations, MaxAccelMMs2: 200},
	}
}

// HomeSpeedMMs is the homing speed for distance axes, in mm/s (spec.md §4.4:
// "120 mm/s for distance axes"); Planner.home converts it to a per-axis step
// rate from each axis's microns_per_step.
const HomeSpeedMMs = 120.0

// DefaultFeedrateMMs is the feedrate MotionState starts with before any F is
// seen (spec.md §3).
const DefaultFeedrateMMs = 1.0

// MotionState is owned exclusively by the motion task (spec.md §3, §5: "not
// shared across cores").
type MotionState struct {
	IsHomed  bool
	Feedrate float64 // mm/s
	Position [NumAxes]core.UCoord
	Axes     [NumAxes]AxisConfig
}

// NewMotionState constructs a fresh, un-homed MotionState at the origin.
func NewMotionState(axes [NumAxes]AxisConfig) *MotionState {
	return &MotionState{Feedrate: DefaultFeedrateMMs, Axes: axes}
}
