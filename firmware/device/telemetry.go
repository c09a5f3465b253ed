package device

import (
	"time"

	"github.com/calvinmclean/tensile"
)

// emitTelemetry samples the sensors and writes a DATA record at the telemetry rate while running
func (d *Device) emitTelemetry(now time.Duration) {
	if d.ctx.State != tensile.StateRunning || now-d.ctx.LastTelemetry < d.cfg.TelemetryPeriod {
		return
	}
	d.ctx.LastTelemetry = now

	d.refreshForce()

	x, y, z, err := d.sensors.ReadAccel()
	if err != nil {
		d.fault(err)
		return
	}
	d.ctx.AccelX, d.ctx.AccelY, d.ctx.AccelZ = x, y, z

	err = d.checkStepLoss(now)
	if err != nil {
		d.fault(err)
		return
	}

	d.ctx.Endstop = d.endstopTriggered()
	d.report.Data(now.Milliseconds(), &d.ctx)
}
