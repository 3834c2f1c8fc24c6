//go:build rp2040 || rp2350

package main

import (
	"machine"

	"latherpc/core"
)

// rpGPIODriver implements core.GPIODriver over TinyGo's machine package.
// The motion task never touches this directly: it is consulted only by
// targets/pio.Backend (NewAxis configures a limit-switch input and WaitIRQ
// reads it) through core.MustGPIO() rather than a machine.Pin, so the
// limit-check in axis_pio.go is platform-agnostic the same way the rest of
// the motion package is.
type rpGPIODriver struct {
	configured map[core.GPIOPin]machine.Pin
}

// newRPGPIODriver constructs an rpGPIODriver.
func newRPGPIODriver() *rpGPIODriver {
	return &rpGPIODriver{configured: make(map[core.GPIOPin]machine.Pin)}
}

func (d *rpGPIODriver) pin(p core.GPIOPin) machine.Pin {
	return machine.Pin(p)
}

func (d *rpGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	p := d.pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configured[pin] = p
	return nil
}

func (d *rpGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	p := d.pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	d.configured[pin] = p
	return nil
}

func (d *rpGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	p := d.pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	d.configured[pin] = p
	return nil
}

func (d *rpGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.configured[pin]
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		p = d.configured[pin]
	}
	p.Set(value)
	return nil
}

func (d *rpGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	p, ok := d.configured[pin]
	if !ok {
		return false, nil
	}
	return p.Get(), nil
}

func (d *rpGPIODriver) ReadPin(pin core.GPIOPin) bool {
	value, _ := d.GetPin(pin)
	return value
}
