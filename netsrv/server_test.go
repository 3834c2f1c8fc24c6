package netsrv

import (
	"bufio"
	"net"
	"testing"
	"time"

	"latherpc/core"
	"latherpc/gcode"
	"latherpc/motion"
)

func newTestServer() (*Server, *core.Queue[motion.Envelope], *core.Queue[motion.Finished]) {
	commandOut := core.NewQueue[motion.Envelope](32)
	statusIn := core.NewQueue[motion.Finished](32)
	s := NewServer(gcode.Labels, commandOut, statusIn)
	return s, commandOut, statusIn
}

// readLineWithTimeout reads one newline-terminated line or fails the test.
func readLineWithTimeout(t *testing.T, r *bufio.Reader, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return line
}

func TestServerAcksAndAutoReplies(t *testing.T) {
	s, commandOut, _ := newTestServer()
	client, server := net.Pipe()
	defer client.Close()

	go s.serve(server)

	// A fake motion task so commandOut does not fill up.
	go func() {
		for {
			commandOut.Pop()
		}
	}()

	if _, err := client.Write([]byte("G0 X10\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	line := readLineWithTimeout(t, r, client)
	if line != "(ack 1)\n" {
		t.Fatalf("got %q, want %q", line, "(ack 1)\n")
	}
}

func TestServerEmitsDoneAfterStatus(t *testing.T) {
	s, commandOut, statusIn := newTestServer()
	client, server := net.Pipe()
	defer client.Close()

	go s.serve(server)

	go func() {
		env := commandOut.Pop()
		statusIn.Push(motion.Finished{ID: env.ID})
	}()

	if _, err := client.Write([]byte("G28\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	ack := readLineWithTimeout(t, r, client)
	if ack != "(ack 1)\n" {
		t.Fatalf("ack = %q, want (ack 1)\\n", ack)
	}
	done := readLineWithTimeout(t, r, client)
	if done != "(done 1)\n" {
		t.Fatalf("done = %q, want (done 1)\\n", done)
	}
}

func TestServerParseFailureClosesConnection(t *testing.T) {
	s, commandOut, _ := newTestServer()
	client, server := net.Pipe()
	defer client.Close()

	go s.serve(server)
	go func() {
		for {
			commandOut.Pop()
		}
	}()

	// G0 with no axes: at least one axis is required (spec.md §8 scenario 6).
	if _, err := client.Write([]byte("G0\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	line := readLineWithTimeout(t, r, client)
	if line != "(parse failed)\n" {
		t.Fatalf("got %q, want (parse failed)\\n", line)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	if _, err := client.Read(buf); err == nil {
		t.Fatal("expected the connection to be closed after a parse failure")
	}
}

func TestServerStopClearsQueueAndAcksWithoutID(t *testing.T) {
	s, commandOut, _ := newTestServer()
	client, server := net.Pipe()
	defer client.Close()

	go s.serve(server)

	// Queue up three commands without anything draining commandOut, then Stop.
	if _, err := client.Write([]byte("G4 P1\nG4 P1\nG4 P1\nM0\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(client)
	for i := 0; i < 3; i++ {
		line := readLineWithTimeout(t, r, client)
		want := "(ack " + string(rune('1'+i)) + ")\n"
		if line != want {
			t.Fatalf("ack %d = %q, want %q", i, line, want)
		}
	}

	stopAck := readLineWithTimeout(t, r, client)
	if stopAck != "(ack)\n" {
		t.Fatalf("stop ack = %q, want (ack)\\n", stopAck)
	}
	if commandOut.Len() != 0 {
		t.Fatalf("expected Stop to clear the command queue, len = %d", commandOut.Len())
	}
}
