package core

import (
	"math"
	"testing"
)

func TestUCoordMicronsRoundTrip(t *testing.T) {
	u := NewUCoordMicrons(10000) // 10mm
	if got := u.Float64(); got != 10 {
		t.Errorf("Float64() = %v, want 10", got)
	}
}

func TestUCoordSubSaturatesAtZero(t *testing.T) {
	a := NewUCoordMicrons(1000)
	b := NewUCoordMicrons(5000)
	if got := a.Sub(b); got != 0 {
		t.Errorf("Sub underflow = %v, want 0", got)
	}
}

func TestUCoordAddSaturatesAtMax(t *testing.T) {
	a := UCoord(math.MaxUint32 - 1)
	b := UCoord(10)
	if got := a.Add(b); got != math.MaxUint32 {
		t.Errorf("Add overflow = %v, want %v", got, uint32(math.MaxUint32))
	}
}

func TestUCoordDelta(t *testing.T) {
	a := NewUCoordMicrons(4000)
	b := NewUCoordMicrons(1000)
	if got := a.Delta(b).Float64(); got != 3 {
		t.Errorf("Delta = %v, want 3", got)
	}
	if got := b.Delta(a).Float64(); got != -3 {
		t.Errorf("Delta (negative) = %v, want -3", got)
	}
}

func TestICoordNegAndAbs(t *testing.T) {
	i := ICoordFromInt64(-5 * One)
	if got := i.Neg().Float64(); got != 5 {
		t.Errorf("Neg = %v, want 5", got)
	}
	if got := i.Abs().Float64(); got != 5 {
		t.Errorf("Abs = %v, want 5", got)
	}

	min := ICoord(math.MinInt32)
	if got := min.Neg(); got != math.MaxInt32 {
		t.Errorf("Neg(MinInt32) = %v, want MaxInt32", got)
	}
}

func TestMulDivSat(t *testing.T) {
	i := ICoordFromInt64(3 * One) // 3mm
	if got := MulDivSat(i, 1000, One*12); got != 250 {
		t.Errorf("MulDivSat(3mm, microns_per_step=12) = %d, want 250", got)
	}
}

func TestMulDivSatZeroDenominatorSaturates(t *testing.T) {
	pos := ICoordFromInt64(One)
	if got := MulDivSat(pos, 1, 0); got != math.MaxInt32 {
		t.Errorf("MulDivSat with den=0, i>=0 = %d, want MaxInt32", got)
	}
	neg := ICoordFromInt64(-One)
	if got := MulDivSat(neg, 1, 0); got != math.MinInt32 {
		t.Errorf("MulDivSat with den=0, i<0 = %d, want MinInt32", got)
	}
}
