package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// TimingEvent captures a timing-critical motion event for post-mortem
// analysis: when a move is pushed, started, or finished, and when a parse
// failure happens.
type TimingEvent struct {
	EventType uint8  // Event type code (Evt*)
	Axis      uint8  // Axis index, or 0xFF if not axis-specific
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes.
const (
	EvtPushMove   = 1 // steps/sleeps pushed to an AxisDriver's FIFO
	EvtMoveStart  = 2 // batch enable committed (do_move start)
	EvtMoveDone   = 3 // all axis IRQs joined (do_move complete)
	EvtHomeStart  = 4 // homing started
	EvtHomeDone   = 5 // homing completed
	EvtParseFail  = 6 // a G-code line failed to parse
	EvtCommandAck = 7 // a command was acked
	EvtCommandFin = 8 // a command finished
)

const (
	// TimingRingSize is how many events are kept for post-mortem inspection.
	TimingRingSize = 32
)

var (
	// debugPrintln is the global debug print function (can be set by platform code).
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active.
	// Disabled by default for performance; enable explicitly in platform init.
	debugEnabled = false

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  = true

	// debugChan buffers async debug output so callers on a time-critical
	// path (the motion task) never block on a slow UART/USB write.
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function.
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled.
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine.
// Call this from main() after SetDebugWriter.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Blocks if debug is enabled (use DebugAsync for non-blocking).
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// Returns immediately even if the channel is full (drops the message).
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordTiming captures a timing event in the ring buffer. Always
// non-blocking and allocation-free, safe to call from the motion task.
func RecordTiming(eventType, axis uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Axis:      axis,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error).
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")

	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		idx := (start + i) % TimingRingSize
		evt := &timingRing[idx]
		if evt.EventType == 0 {
			continue
		}

		var name string
		switch evt.EventType {
		case EvtPushMove:
			name = "PUSH_MOVE"
		case EvtMoveStart:
			name = "MOVE_START"
		case EvtMoveDone:
			name = "MOVE_DONE"
		case EvtHomeStart:
			name = "HOME_START"
		case EvtHomeDone:
			name = "HOME_DONE"
		case EvtParseFail:
			name = "PARSE_FAIL"
		case EvtCommandAck:
			name = "CMD_ACK"
		case EvtCommandFin:
			name = "CMD_FIN"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" axis=" + itoa(int(evt.Axis)) +
			" clock=" + itoa(int(evt.Clock)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer.
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
