package sensor

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/adxl345"
)

// ActivityBit is the ACTIVITY flag in the ADXL345 INT_SOURCE register
const ActivityBit = 0x10

// AccelConfig has the one-time register program for the accelerometer
type AccelConfig struct {
	Address uint16
	Range   adxl345.Range
	// ActivityThreshold is in 62.5mg/LSB
	ActivityThreshold uint8
	// ActivityAxes is written to ACT_INACT_CTL. 0x70 enables X, Y and Z in dc-coupled mode
	ActivityAxes uint8
}

// DefaultAccelConfig is +-16g with a 1g activity threshold on all axes
func DefaultAccelConfig() AccelConfig {
	return AccelConfig{
		Address:           adxl345.AddressLow,
		Range:             adxl345.RANGE_16G,
		ActivityThreshold: 0x10,
		ActivityAxes:      0x70,
	}
}

// Accel is an ADXL345 on I2C. There is no interrupt line wired so the activity interrupt is
// polled from INT_SOURCE.
type Accel struct {
	bus drivers.I2C
	dev adxl345.Device
	cfg AccelConfig

	reg [1]byte
	buf [6]byte
}

// NewAccel creates the device. The bus must already be configured
func NewAccel(bus drivers.I2C, cfg AccelConfig) *Accel {
	dev := adxl345.New(bus)
	dev.Address = cfg.Address
	return &Accel{bus: bus, dev: dev, cfg: cfg}
}

// Configure enables measurement, selects the range and routes activity detection to INT_SOURCE
func (a *Accel) Configure() error {
	a.dev.Configure()
	a.dev.SetRange(a.cfg.Range)

	writes := []struct {
		reg uint8
		val uint8
	}{
		{adxl345.REG_THRESH_ACT, a.cfg.ActivityThreshold},
		{adxl345.REG_ACT_INACT_CTL, a.cfg.ActivityAxes},
		{adxl345.REG_INT_MAP, 0x00},
		{adxl345.REG_INT_ENABLE, ActivityBit},
	}
	for _, w := range writes {
		err := a.bus.Tx(a.cfg.Address, []byte{w.reg, w.val}, nil)
		if err != nil {
			return err
		}
	}

	// reading INT_SOURCE clears anything latched while configuring
	_, err := a.ReadActivity()
	return err
}

// ReadAccel does a 6-byte burst read starting at DATAX0. The axes are little-endian
func (a *Accel) ReadAccel() (int16, int16, int16, error) {
	a.reg[0] = adxl345.REG_DATAX0
	err := a.bus.Tx(a.cfg.Address, a.reg[:], a.buf[:])
	if err != nil {
		return 0, 0, 0, err
	}

	x := int16(uint16(a.buf[0]) | uint16(a.buf[1])<<8)
	y := int16(uint16(a.buf[2]) | uint16(a.buf[3])<<8)
	z := int16(uint16(a.buf[4]) | uint16(a.buf[5])<<8)
	return x, y, z, nil
}

// ReadActivity reads INT_SOURCE, which clears the latched activity flag
func (a *Accel) ReadActivity() (uint8, error) {
	a.reg[0] = adxl345.REG_INT_SOUCE
	err := a.bus.Tx(a.cfg.Address, a.reg[:], a.buf[:1])
	if err != nil {
		return 0, err
	}
	return a.buf[0], nil
}

// Halt puts the accelerometer in standby
func (a *Accel) Halt() {
	a.dev.Halt()
}
