package motion

import "testing"

func totalDist(segs []MotionSegment) float64 {
	var sum float64
	for _, s := range segs {
		sum += s.DistMM
	}
	return sum
}

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < tol
}

func TestPlanSimpleMoveForward(t *testing.T) {
	p := NewPlan(0, 0, 10, 2)
	segs := p.Collect()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !almostEqual(totalDist(segs), 10, 0.1) {
		t.Fatalf("total distance = %v, want ~10", totalDist(segs))
	}
}

func TestPlanSimpleMoveBackward(t *testing.T) {
	p := NewPlan(10, 0, 0, 2)
	segs := p.Collect()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !almostEqual(totalDist(segs), -10, 0.1) {
		t.Fatalf("total distance = %v, want ~-10", totalDist(segs))
	}
}

func TestPlanMoveWithInitialVelocity(t *testing.T) {
	p := NewPlan(0, 5, 20, 2)
	segs := p.Collect()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !almostEqual(totalDist(segs), 20, 0.1) {
		t.Fatalf("total distance = %v, want ~20", totalDist(segs))
	}
}

func TestPlanNoMoveSamePosition(t *testing.T) {
	p := NewPlan(5, 0, 5, 2)
	segs := p.Collect()
	if len(segs) != 0 {
		t.Fatalf("expected no segments for a zero-distance move, got %v", segs)
	}
}

func TestPlanShortMoveAllSegmentsMoveAndHaveSpeed(t *testing.T) {
	p := NewPlan(0, 0, 1, 10)
	segs := p.Collect()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !almostEqual(totalDist(segs), 1, 0.1) {
		t.Fatalf("total distance = %v, want ~1", totalDist(segs))
	}
	for _, s := range segs {
		if s.SpeedMMs <= 0 {
			t.Fatalf("expected positive speed in every segment, got %+v", s)
		}
	}
}

func TestPlanLongMoveFromRestIsSingleRampSegment(t *testing.T) {
	p := NewPlan(0, 0, 100, 1)
	segs := p.Collect()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !almostEqual(totalDist(segs), 100, 0.1) {
		t.Fatalf("total distance = %v, want ~100", totalDist(segs))
	}
	for _, s := range segs {
		if s.SpeedMMs <= 0 {
			t.Fatalf("expected positive speed in every segment, got %+v", s)
		}
		if s.DistMM == 0 {
			t.Fatalf("expected nonzero distance in every segment, got %+v", s)
		}
	}
	// The cruise velocity is sqrt(v0^2 + 2*a*d), so the acceleration ramp
	// from rest reaches it exactly at the target: however long the move,
	// the plan is one accelerating segment covering the whole distance.
	if len(segs) != 1 {
		t.Fatalf("expected a single ramp segment, got %d segments", len(segs))
	}
}
