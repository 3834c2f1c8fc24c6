package gcode

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"latherpc/core"
)

// ErrIncomplete is returned when the supplied prefix could still become a
// valid command given more bytes (no newline seen yet).
var ErrIncomplete = errors.New("gcode: incomplete")

// ErrParseFailed is returned when the supplied prefix can never become a
// valid command (malformed syntax, unknown command, or a move with no
// axes present where the grammar requires at least one).
var ErrParseFailed = errors.New("gcode: parse failed")

// ParseSingleCommand implements the streaming parser contract: given the
// fixed axis label vector and the currently buffered input, it either
// consumes exactly one line and returns the remaining unconsumed bytes plus
// the parsed Command, or reports that more bytes are needed (ErrIncomplete),
// or that the input can never parse (ErrParseFailed).
//
// The wire framing (spec.md §3) is newline-terminated G-code lines, so
// "could still become valid" reduces to "no newline observed yet" — this
// streaming parser waits for a full line before attempting to parse it,
// rather than re-implementing token-level incremental parsing of the
// combinator it is modeled on.
func ParseSingleCommand(labels [AxisCount + 1]byte, input []byte) (remaining []byte, cmd Command, err error) {
	nl := bytes.IndexByte(input, '\n')
	if nl < 0 {
		return nil, Command{}, ErrIncomplete
	}

	line := input[:nl]
	remaining = input[nl+1:]

	line = stripComment(line)
	line = bytes.TrimSpace(line)

	cmd, ok := parseLine(labels, string(line))
	if !ok {
		return remaining, Command{}, ErrParseFailed
	}
	return remaining, cmd, nil
}

// stripComment removes a parenthesized comment or a ';'-introduced trailing
// comment, matching "comments in parentheses or after ; (stripped by host)"
// from spec.md §3 — the firmware tolerates them too, in case a host forwards
// a line unstripped.
func stripComment(line []byte) []byte {
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	if i := bytes.IndexByte(line, '('); i >= 0 {
		if j := bytes.IndexByte(line[i:], ')'); j >= 0 {
			out := make([]byte, 0, len(line))
			out = append(out, line[:i]...)
			out = append(out, line[i+j+1:]...)
			return out
		}
		line = line[:i]
	}
	return line
}

func parseLine(labels [AxisCount + 1]byte, line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}

	code := fields[0]
	args := fields[1:]

	switch code {
	case "G0":
		pos, ok := parseNonEmptyPosition(labels, args)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: RapidMove, Pos: pos}, true

	case "G1":
		pos, ok := parseNonEmptyPosition(labels, args)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: LinearMove, Pos: pos}, true

	case "G4":
		millis, ok := parseDwellArgs(args)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: Dwell, DwellMillis: millis}, true

	case "G27":
		pos, ok := parsePosition(labels, args)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: Park, Pos: pos}, true

	case "G28":
		if len(args) != 0 {
			return Command{}, false
		}
		return Command{Kind: Home}, true

	case "M0":
		if len(args) != 0 {
			return Command{}, false
		}
		return Command{Kind: Stop}, true

	case "M17":
		if len(args) != 0 {
			return Command{}, false
		}
		return Command{Kind: EnableAllSteppers}, true

	case "M18":
		if len(args) != 0 {
			return Command{}, false
		}
		return Command{Kind: DisableAllSteppers}, true

	case "M114":
		if len(args) != 0 {
			return Command{}, false
		}
		return Command{Kind: GetCurrentPosition}, true

	default:
		return Command{}, false
	}
}

// parsePosition parses zero or more label-prefixed coordinates, in any
// order, each label appearing at most once. Unknown labels fail the parse.
func parsePosition(labels [AxisCount + 1]byte, args []string) (Position, bool) {
	var pos Position
	seen := map[byte]bool{}

	for _, a := range args {
		if len(a) < 1 {
			return Position{}, false
		}
		label := a[0]
		idx := labelIndex(labels, label)
		if idx < 0 || seen[label] {
			return Position{}, false
		}
		seen[label] = true

		v, ok := parseUCoord(a[1:])
		if !ok {
			return Position{}, false
		}
		pos[idx] = Present(v)
	}
	return pos, true
}

// parseNonEmptyPosition additionally requires at least one axis present,
// per spec.md §4.3 ("at least one axis must be present") for G0/G1.
func parseNonEmptyPosition(labels [AxisCount + 1]byte, args []string) (Position, bool) {
	pos, ok := parsePosition(labels, args)
	if !ok {
		return Position{}, false
	}
	if !pos.Any() {
		return Position{}, false
	}
	return pos, true
}

// parseDwellArgs handles "G4 S<secs>" or "G4 P<millis>", per spec.md §4.3.
func parseDwellArgs(args []string) (uint32, bool) {
	if len(args) != 1 || len(args[0]) < 2 {
		return 0, false
	}
	label := args[0][0]
	numStr := args[0][1:]

	switch label {
	case 'S':
		secs, err := strconv.ParseFloat(numStr, 64)
		if err != nil || secs < 0 {
			return 0, false
		}
		return uint32(secs * 1000), true
	case 'P':
		millis, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(millis), true
	default:
		return 0, false
	}
}

func labelIndex(labels [AxisCount + 1]byte, label byte) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

// parseUCoord parses an unsigned decimal, with an optional fractional part,
// into a UCoord fixed-point value (10 fractional bits).
func parseUCoord(s string) (core.UCoord, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false
		}
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, false
		}
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, err := strconv.ParseUint(intPart, 10, 32)
	if err != nil {
		return 0, false
	}

	value := int64(whole) << core.FractionalBits
	if fracPart != "" {
		num, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, false
		}
		den := uint64(1)
		for i := 0; i < len(fracPart); i++ {
			den *= 10
		}
		frac := (int64(num)*core.One + int64(den)/2) / int64(den)
		value += frac
	}

	return core.UCoordFromInt64(value), true
}
