package sensor

import "time"

// Gain selects the HX711 channel and gain for the next conversion by the number of extra clock
// pulses after the 24 data bits
type Gain uint8

const (
	GainA128 Gain = 1
	GainB32  Gain = 2
	GainA64  Gain = 3
)

const hx711ClockDelay = time.Microsecond

// HX711 is a bit-banged 24-bit load cell ADC
type HX711 struct {
	data  InputPin
	clock OutputPin
	gain  Gain
	delay func(time.Duration)
}

// NewHX711 creates the driver and pulls the clock low, which also wakes the chip up
func NewHX711(data InputPin, clock OutputPin, gain Gain, delay func(time.Duration)) *HX711 {
	if gain == 0 {
		gain = GainA128
	}
	if delay == nil {
		delay = func(time.Duration) {}
	}
	h := &HX711{data: data, clock: clock, gain: gain, delay: delay}
	h.clock.Set(false)
	return h
}

// Ready is true when DOUT is pulled low, meaning a conversion is waiting
func (h *HX711) Ready() bool {
	return !h.data.Get()
}

// ReadRaw shifts out one conversion as a sign-extended 24-bit value
func (h *HX711) ReadRaw() int32 {
	var v uint32
	for range 24 {
		h.clock.Set(true)
		h.delay(hx711ClockDelay)
		v <<= 1
		if h.data.Get() {
			v |= 1
		}
		h.clock.Set(false)
		h.delay(hx711ClockDelay)
	}

	for range h.gain {
		h.clock.Set(true)
		h.delay(hx711ClockDelay)
		h.clock.Set(false)
		h.delay(hx711ClockDelay)
	}

	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}

// PowerDown holds the clock high for more than 60us
func (h *HX711) PowerDown() {
	h.clock.Set(false)
	h.clock.Set(true)
	h.delay(100 * time.Microsecond)
}
