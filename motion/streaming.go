package motion

import "sync"

// streamingPhase tracks whether a StreamingPlan is idle, mid-move, or has
// drained its current move and is waiting for the next target.
type streamingPhase int

const (
	streamingIdle streamingPhase = iota
	streamingExecutingMove
	streamingWaitingForTarget
)

// StreamingPlan wraps Plan with a cooperative, single-slot pending-target
// buffer (spec.md §4.4: "a streaming wrapper accepts additional target
// positions ... the internal pending buffer (size 1) is full"). AddTarget
// blocks the caller goroutine when the buffer is already occupied, and
// wakes it once the current move's segments have all been drained by Next.
type StreamingPlan struct {
	mu   sync.Mutex
	cond *sync.Cond

	currentPosition float64
	currentVelocity float64
	maxAccel        float64

	currentPlan    *Plan
	pendingTarget  *float64
	phase          streamingPhase
}

// NewStreamingPlan builds a StreamingPlan starting at rest at startPosition.
func NewStreamingPlan(startPosition, maxAccel float64) *StreamingPlan {
	s := &StreamingPlan{
		currentPosition: startPosition,
		maxAccel:        maxAccel,
		phase:           streamingIdle,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// AddTarget enqueues a new target position, blocking the caller if the
// single-slot pending buffer is already occupied by an unconsumed target.
func (s *StreamingPlan) AddTarget(target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case streamingIdle, streamingWaitingForTarget:
		s.startMoveToLocked(target)
	case streamingExecutingMove:
		for s.pendingTarget != nil {
			s.cond.Wait()
		}
		t := target
		s.pendingTarget = &t
	}
}

// Finish clears any pending target and releases a blocked AddTarget caller,
// letting the in-flight move run to completion without a follow-on target.
func (s *StreamingPlan) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingTarget = nil
	s.cond.Broadcast()
}

func (s *StreamingPlan) startMoveToLocked(target float64) {
	s.currentPlan = NewPlan(s.currentPosition, s.currentVelocity, target, s.maxAccel)
	s.phase = streamingExecutingMove
}

func (s *StreamingPlan) updateStateFromSegment(seg MotionSegment) {
	s.currentPosition += seg.DistMM
	s.currentVelocity = seg.SpeedMMs
}

// Next produces the next MotionSegment across however many targets have
// been queued, or ok == false when idle or waiting for the next AddTarget.
func (s *StreamingPlan) Next() (MotionSegment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case streamingIdle:
		return MotionSegment{}, false

	case streamingExecutingMove:
		if s.currentPlan != nil {
			if seg, ok := s.currentPlan.Next(); ok {
				s.updateStateFromSegment(seg)
				return seg, true
			}
		}

		if s.pendingTarget != nil {
			next := *s.pendingTarget
			s.pendingTarget = nil
			s.startMoveToLocked(next)
			s.cond.Broadcast()
			return s.nextLocked()
		}

		s.phase = streamingWaitingForTarget
		return MotionSegment{}, false

	case streamingWaitingForTarget:
		return MotionSegment{}, false

	default:
		return MotionSegment{}, false
	}
}

// nextLocked re-enters Next's body while already holding s.mu, used when
// immediately continuing into a just-started move.
func (s *StreamingPlan) nextLocked() (MotionSegment, bool) {
	if s.currentPlan != nil {
		if seg, ok := s.currentPlan.Next(); ok {
			s.updateStateFromSegment(seg)
			return seg, true
		}
	}
	s.phase = streamingWaitingForTarget
	return MotionSegment{}, false
}

// Collect drains every currently-available segment (i.e. up to the next
// point where Next would return false).
func (s *StreamingPlan) Collect() []MotionSegment {
	var segs []MotionSegment
	for {
		seg, ok := s.Next()
		if !ok {
			return segs
		}
		segs = append(segs, seg)
	}
}
