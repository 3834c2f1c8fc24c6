package core

import "math"

// FractionalBits is the number of fractional bits in a UCoord/ICoord value.
const FractionalBits = 10

// One is the fixed-point representation of the integer value 1.
const One = 1 << FractionalBits

// UCoord is an unsigned fixed-point rational: 32 bits total, the low
// FractionalBits bits are the fractional part. Used for machine positions,
// which are never negative (the origin is the home position).
type UCoord uint32

// ICoord is the signed counterpart, used for deltas and velocity math.
type ICoord int32

// NewUCoordMicrons builds a UCoord from a whole-number count of micrometers.
func NewUCoordMicrons(microns int64) UCoord {
	return UCoordFromInt64((microns*One + 500) / 1000)
}

// UCoordFromInt64 saturates a raw fixed-point value into range.
func UCoordFromInt64(v int64) UCoord {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return UCoord(math.MaxUint32)
	}
	return UCoord(v)
}

// Add returns a saturating sum; overflow clamps to the maximum representable value.
func (u UCoord) Add(o UCoord) UCoord {
	sum := uint64(u) + uint64(o)
	if sum > math.MaxUint32 {
		return UCoord(math.MaxUint32)
	}
	return UCoord(sum)
}

// Sub returns u-o, saturating at zero rather than wrapping.
func (u UCoord) Sub(o UCoord) UCoord {
	if o > u {
		return 0
	}
	return u - o
}

// Delta returns the signed difference (u - o) as an ICoord, saturating.
func (u UCoord) Delta(o UCoord) ICoord {
	d := int64(u) - int64(o)
	return ICoordFromInt64(d)
}

// Int returns the integer part (truncated toward zero).
func (u UCoord) Int() int64 {
	return int64(u) >> FractionalBits
}

// Float64 returns the value as a float64, for diagnostics and tests only.
func (u UCoord) Float64() float64 {
	return float64(u) / float64(One)
}

// ICoordFromInt64 saturates a raw fixed-point value into the signed range.
func ICoordFromInt64(v int64) ICoord {
	if v > math.MaxInt32 {
		return ICoord(math.MaxInt32)
	}
	if v < math.MinInt32 {
		return ICoord(math.MinInt32)
	}
	return ICoord(v)
}

// Neg returns the saturating negation (MinInt32 has no positive counterpart).
func (i ICoord) Neg() ICoord {
	if i == math.MinInt32 {
		return math.MaxInt32
	}
	return -i
}

// Abs returns the saturating absolute value.
func (i ICoord) Abs() ICoord {
	if i < 0 {
		return i.Neg()
	}
	return i
}

// Float64 returns the value as a float64, for diagnostics and tests only.
func (i ICoord) Float64() float64 {
	return float64(i) / float64(One)
}

// MulDivSat computes (i * num) / den with saturation, truncating toward zero.
// A zero den saturates to MaxInt32 (i >= 0) or MinInt32 (i < 0).
func MulDivSat(i ICoord, num, den int64) int32 {
	if den == 0 {
		if i < 0 {
			return math.MinInt32
		}
		return math.MaxInt32
	}
	v := (int64(i) * num) / den
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
