// Package netsrv implements the TCP-facing half of the command protocol
// (spec.md §4.5): an accept loop, the G-code-in/S-expression-out wire
// format, command ID assignment, and the Stop fast-path that bypasses the
// motion channel entirely.
package netsrv

import (
	"bytes"
	"log"
	"net"
	"time"

	"latherpc/core"
	"latherpc/gcode"
	"latherpc/motion"
)

// Port is the fixed TCP port the device listens on (spec.md §6).
const Port = 1234

// idleTimeout is the per-connection socket idle timeout (spec.md §4.5).
const idleTimeout = 10 * time.Second

// rxBufferSize is the read-ahead buffer a connection accumulates a partial
// G-code line into before a full command can be parsed (spec.md §4.5: "one
// fixed RX buffer (2 KiB)").
const rxBufferSize = 2048

// Server owns the accept loop and both ends of the cross-core command/status
// channel pair. A Server instance is permanent: exactly one is constructed
// at boot and it never shuts down (spec.md §5).
type Server struct {
	Labels [gcode.AxisCount + 1]byte

	commandOut *core.Queue[motion.Envelope]
	statusIn   *core.Queue[motion.Finished]

	nextID motion.CommandId
}

// NewServer constructs a Server over the given cross-core queues. commandOut
// carries (id, Command) pairs to the motion task; statusIn carries
// CommandFinished notifications back.
func NewServer(labels [gcode.AxisCount + 1]byte, commandOut *core.Queue[motion.Envelope], statusIn *core.Queue[motion.Finished]) *Server {
	return &Server{Labels: labels, commandOut: commandOut, statusIn: statusIn}
}

// Run accepts connections on ln forever, processing one at a time: spec.md
// §4.5's lifecycle handles exactly one active connection per accept-loop
// iteration, re-accepting after any close.
func (s *Server) Run(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("netsrv: accept error: %v", err)
			continue
		}
		s.serve(conn)
	}
}

// serve drives one connection to completion (parse failure, EOF, or I/O
// error), then returns so Run can re-accept.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go s.statusWriter(conn, stop)

	buf := make([]byte, rxBufferSize)
	n := 0

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			log.Printf("netsrv: set deadline: %v", err)
			return
		}

		read, err := conn.Read(buf[n:])
		if read == 0 && err != nil {
			return // EOF or idle timeout; re-accept.
		}
		n += read

		for {
			remaining, cmd, perr := gcode.ParseSingleCommand(s.Labels, buf[:n])
			if perr == gcode.ErrIncomplete {
				break // read more bytes before trying again.
			}
			if perr == gcode.ErrParseFailed {
				core.RecordTiming(core.EvtParseFail, 0xFF, 0, 0, 0)
				s.writeLine(conn, "(parse failed)\n")
				return
			}

			consumed := n - len(remaining)
			n = copy(buf, buf[consumed:n])

			if !s.dispatch(conn, cmd) {
				return
			}
		}
	}
}

// dispatch handles one parsed command: Stop at the network layer (spec.md
// §4.5), everything else onto the command channel with an assigned ID.
// Returns false if a write error means the connection should be abandoned.
func (s *Server) dispatch(conn net.Conn, cmd gcode.Command) bool {
	if cmd.Kind == gcode.Stop {
		s.commandOut.Clear()
		return s.writeLine(conn, "(ack)\n")
	}

	s.nextID++
	id := s.nextID
	s.commandOut.Push(motion.Envelope{ID: id, Cmd: cmd})
	core.RecordTiming(core.EvtCommandAck, 0xFF, 0, uint32(id), 0)
	return s.writeLine(conn, ackLine(id))
}

// statusWriter drains CommandFinished notifications and writes `(done id)`
// lines for as long as the connection is alive; stopped via the stop
// channel when serve returns (spec.md §4.5 step 3's concurrent status-rx
// wait, expressed as a second goroutine rather than a select over futures).
func (s *Server) statusWriter(conn net.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		finished, ok := s.statusIn.TryPop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		core.RecordTiming(core.EvtCommandFin, 0xFF, 0, uint32(finished.ID), 0)
		if !s.writeLine(conn, doneLine(finished.ID)) {
			return
		}
	}
}

func (s *Server) writeLine(conn net.Conn, line string) bool {
	if _, err := conn.Write([]byte(line)); err != nil {
		log.Printf("netsrv: write error: %v", err)
		return false
	}
	return true
}

func ackLine(id motion.CommandId) string {
	var b bytes.Buffer
	b.WriteString("(ack ")
	b.WriteString(core.Utoa(uint32(id)))
	b.WriteString(")\n")
	return b.String()
}

func doneLine(id motion.CommandId) string {
	var b bytes.Buffer
	b.WriteString("(done ")
	b.WriteString(core.Utoa(uint32(id)))
	b.WriteString(")\n")
	return b.String()
}
