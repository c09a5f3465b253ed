//go:build tinygo

// Package board has the pin map and machine bindings for a Raspberry Pi Pico
package board

import (
	"errors"
	"machine"
	"time"

	"github.com/calvinmclean/tensile/firmware/device"
	"github.com/calvinmclean/tensile/firmware/sensor"
	"github.com/calvinmclean/tensile/firmware/stepgen"

	"tinygo.org/x/drivers/delay"
)

const (
	StepPin    = machine.GP2
	DirPin     = machine.GP3
	EnablePin  = machine.GP6
	EndstopPin = machine.GP7

	HX711DataPin  = machine.GP10
	HX711ClockPin = machine.GP11

	AccelSDAPin = machine.GP4
	AccelSCLPin = machine.GP5
)

// Clock measures time since the Clock was created
type Clock struct {
	boot time.Time
}

func NewClock() *Clock {
	return &Clock{boot: time.Now()}
}

func (c *Clock) Now() time.Duration {
	return time.Since(c.boot)
}

func (c *Clock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Serial is the USB console
type Serial struct{}

func (Serial) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

func (Serial) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}

func output(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return p
}

func input(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return p
}

// Hardware configures every pin and bus and returns them wired for the device
func Hardware(clock *Clock) (device.Hardware, error) {
	// the driver is enabled when EN is low
	output(EnablePin).Low()

	stepper, err := stepgen.New(stepgen.Config{
		Step:  output(StepPin),
		Dir:   output(DirPin),
		Delay: delay.Sleep,
	})
	if err != nil {
		return device.Hardware{}, errors.New("error creating stepper: " + err.Error())
	}

	err = machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       AccelSDAPin,
		SCL:       AccelSCLPin,
	})
	if err != nil {
		return device.Hardware{}, errors.New("error configuring i2c: " + err.Error())
	}

	return device.Hardware{
		Sensors: sensor.Gateway{
			Force: sensor.NewHX711(input(HX711DataPin), output(HX711ClockPin), sensor.GainA128, delay.Sleep),
			Accel: sensor.NewAccel(machine.I2C0, sensor.DefaultAccelConfig()),
		},
		Stepper: stepper,
		Endstop: input(EndstopPin),
		Clock:   clock,
		Serial:  Serial{},
		Out:     Serial{},
	}, nil
}
