// Package gcode parses the fixed G-code subset this firmware accepts into a
// structured Command and provides a streaming parser that can be driven
// incrementally from a TCP socket's read buffer.
package gcode

import "latherpc/core"

// AxisCount is the number of moving axes (X, Z, C). F is not an axis but is
// carried in the same position tuple at index AxisCount.
const AxisCount = 3

// Labels is the build-time fixed axis label vector, length AxisCount+1.
var Labels = [AxisCount + 1]byte{'X', 'Z', 'C', 'F'}

const (
	AxisX = 0
	AxisZ = 1
	AxisC = 2
	FieldF = 3
)

// Coord is an optional fixed-point coordinate: Present distinguishes "axis
// omitted" (leave unchanged) from an explicit value, including zero.
type Coord struct {
	Value   core.UCoord
	Present bool
}

// Present returns a Coord carrying v.
func Present(v core.UCoord) Coord { return Coord{Value: v, Present: true} }

// Position is an ordered tuple of (X, Z, C, F), each independently optional.
type Position [AxisCount + 1]Coord

// Any reports whether at least one field of the position is present.
func (p Position) Any() bool {
	for _, c := range p {
		if c.Present {
			return true
		}
	}
	return false
}

// Kind identifies which variant of the Command tagged union is populated.
type Kind int

const (
	RapidMove Kind = iota
	LinearMove
	Dwell
	Park
	Home
	Stop
	EnableAllSteppers
	DisableAllSteppers
	GetCurrentPosition
)

// Command is the tagged union the planner consumes. Only the field(s)
// relevant to Kind are meaningful.
type Command struct {
	Kind Kind

	// RapidMove, LinearMove, Park
	Pos Position

	// Dwell: duration in milliseconds.
	DwellMillis uint32
}
