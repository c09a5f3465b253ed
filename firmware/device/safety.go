package device

import (
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sensor"
)

// checkSafety runs every tick in every state
func (d *Device) checkSafety() {
	d.ctx.Endstop = d.endstopTriggered()
	if d.ctx.Endstop && d.ctx.State.Moving() {
		d.halt()
		d.report.Event(tensile.EventEndstopTriggered, "")
	}

	d.refreshForce()
	d.checkOverForce()
}

// checkOverForce counts consecutive ticks above the limit. When the load cell has no new
// conversion the last valid force is used
func (d *Device) checkOverForce() {
	if d.ctx.State != tensile.StateRunning {
		d.ctx.OverLimit = 0
		return
	}
	if abs(d.ctx.LastValidForce) <= int64(d.limitRaw) {
		d.ctx.OverLimit = 0
		return
	}

	d.ctx.OverLimit++
	if d.ctx.OverLimit == d.cfg.DebounceCount {
		d.halt()
		d.report.Event(tensile.EventForceLimit,
			newton(d.ctx.ForceNewton(), 1)+tensile.Separator+"LIMIT:"+newton(d.cfg.ForceLimitN, 1))
	}
}

// checkStepLoss polls the activity interrupt while running. An activity burst while the load is
// still above a tenth of the limit is a lost step. A burst after the load collapsed is the
// specimen breaking and is ignored
func (d *Device) checkStepLoss(now time.Duration) error {
	if d.ctx.State != tensile.StateRunning || now-d.ctx.RunStart < d.cfg.SettleWindow {
		return nil
	}

	status, err := d.sensors.ReadActivity()
	if err != nil {
		return err
	}

	// the first read after settling may hold activity latched during the start transient
	if !d.ctx.StepLossArmed {
		d.ctx.StepLossArmed = true
		return nil
	}

	if status&sensor.ActivityBit == 0 || d.ctx.StepLoss {
		return nil
	}
	if abs(d.ctx.LastValidForce) <= int64(d.limitRaw/10) {
		return nil
	}

	d.ctx.StepLoss = true
	d.report.Event(tensile.EventStepLoss, newton(d.ctx.ForceNewton(), 1))
	if d.cfg.StopOnStepLoss {
		d.halt()
	}
	return nil
}

func abs(v int32) int64 {
	if v < 0 {
		return -int64(v)
	}
	return int64(v)
}
