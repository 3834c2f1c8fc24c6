//go:build rp2040 || rp2350

// Command rp2040 is the firmware entry point: it wires the G-code server on
// Core 0 to the motion planner on Core 1 through the two bounded
// cross-core queues, and brings up the three real PIO-backed axes.
//
// WiFi association, DHCP, and the raw TCP-accept plumbing below net.Listen
// are board-level network-stack concerns outside this firmware's scope;
// main assumes a net stack satisfying the standard library's net.Listen is
// already configured by the board's netdev driver, and only records the
// static address this device has always used.
package main

import (
	"machine"
	"net"
	"time"

	"latherpc/core"
	"latherpc/gcode"
	"latherpc/motion"
	"latherpc/netsrv"
	pio "latherpc/targets/pio"
)

// Static network configuration (unchanged from the original firmware).
const (
	staticIP      = "192.168.11.40"
	staticNetmask = "255.255.255.0"
	staticGateway = "192.168.11.1"
)

// Pin assignments (unchanged from the original firmware).
const (
	pinXStep = machine.Pin(10)
	pinXDir  = machine.Pin(11)
	pinZStep = machine.Pin(12)
	pinZDir  = machine.Pin(13)
	pinCStep = machine.Pin(14)
	pinCDir  = machine.Pin(15)

	pinXLimit = machine.Pin(16)
	pinZLimit = machine.Pin(17)

	pinSleep = machine.Pin(18)
)

// commandQueueCapacity mirrors the original firmware's bounded channel size
// (original_source/firmware/src/main.rs: COMMAND_BUFFER_SIZE).
const commandQueueCapacity = 32

var msgerrors uint32

func main() {
	// Disable the watchdog on boot to clear any state a previous reset left
	// armed.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	core.SetDebugWriter(func(s string) { println(s) })
	core.SetDebugEnabled(true)
	core.SetGPIODriver(newRPGPIODriver())

	backend, err := pio.NewBackend(pinSleep)
	if err != nil {
		core.DebugPrintln("main: PIO backend init failed: " + err.Error())
		return
	}

	xAxis := backend.NewAxis(0, pinXStep, pinXDir, pinXLimit, true)
	zAxis := backend.NewAxis(1, pinZStep, pinZDir, pinZLimit, true)
	cAxis := backend.NewAxis(2, pinCStep, pinCDir, 0, false)

	driver := motion.NewMultiAxisDriver(backend, [motion.NumAxes]motion.AxisBackend{xAxis, zAxis, cAxis})
	planner := motion.NewPlanner(driver, motion.DefaultAxisConfigs())
	planner.OnPosition = func(pos motion.PositionSnapshot) {
		core.DebugPrintln("position: X=" + core.Itoa(int(pos.X.Int())) +
			" Z=" + core.Itoa(int(pos.Z.Int())) + " C=" + core.Itoa(int(pos.C.Int())))
	}

	commandOut := core.NewQueue[motion.Envelope](commandQueueCapacity)
	statusIn := core.NewQueue[motion.Finished](commandQueueCapacity)

	// Core 1 runs the motion planner exclusively; MotionState never crosses
	// back to Core 0 except through the Finished notifications on statusIn.
	machine.Core1.Start(func() {
		defer recoverAndLog("core1")
		planner.Run(commandOut, statusIn)
	})

	if err := configureNetwork(); err != nil {
		core.DebugPrintln("main: network configuration failed: " + err.Error())
		return
	}

	srv := netsrv.NewServer(gcode.Labels, commandOut, statusIn)

	// Core 0's main loop: accept connections forever, recovering from any
	// panic in a single connection rather than taking the whole device down.
	for {
		func() {
			defer recoverAndLog("server")

			ln, err := net.Listen("tcp", ":"+core.Itoa(netsrv.Port))
			if err != nil {
				core.DebugPrintln("main: listen failed: " + err.Error())
				time.Sleep(time.Second)
				return
			}
			srv.Run(ln)
		}()
	}
}

// configureNetwork assigns the device's fixed static address. The
// association/DHCP handshake itself is board-driver plumbing this firmware
// does not own; this only records the address a configured driver should
// already be using.
func configureNetwork() error {
	core.DebugPrintln("main: static address " + staticIP + "/" + staticNetmask + " via " + staticGateway)
	return nil
}

func recoverAndLog(where string) {
	if r := recover(); r != nil {
		msgerrors++
		core.DebugPrintln(where + ": recovered panic: " + panicString(r))
		core.DumpTimingRing()
	}
}

func panicString(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown panic"
}
