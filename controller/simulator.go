package controller

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/calvinmclean/tensile/firmware/commands"
	"github.com/calvinmclean/tensile/firmware/device"
	"github.com/calvinmclean/tensile/firmware/sensor"
	"github.com/calvinmclean/tensile/firmware/sim"
	"github.com/calvinmclean/tensile/firmware/stepgen"

	log "github.com/sirupsen/logrus"
)

const (
	simTickPeriod = 100 * time.Microsecond
	simBuffer     = 4096
)

// pacedDevice yields between control loop iterations so the simulated firmware does not spin a
// whole core
type pacedDevice struct {
	*device.Device
	period time.Duration
}

func (p pacedDevice) Tick() {
	p.Device.Tick()
	time.Sleep(p.period)
}

// simConn stops the firmware loop before closing the stream it writes to
type simConn struct {
	sim.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *simConn) Close() error {
	c.cancel()
	<-c.done
	return c.Conn.Close()
}

// Simulator runs the firmware control loop against a simulated rig on wall time
type Simulator struct {
	Rig *sim.Rig
	cfg device.Config
}

// NewSimulator loads specimen into a new rig
func NewSimulator(specimen sim.Specimen, cfg device.Config) *Simulator {
	return &Simulator{
		Rig: sim.NewRig(specimen, uint64(time.Now().UnixNano())),
		cfg: cfg,
	}
}

// Start boots the firmware in the background and returns the host side of its serial link.
// Closing the connection stops the firmware
func (s *Simulator) Start(ctx context.Context) (io.ReadWriteCloser, error) {
	stream := sim.NewStream(simBuffer)
	link := &sim.Link{Out: stream}

	stepper, err := stepgen.New(stepgen.Config{
		Step:  s.Rig.StepPin(),
		Dir:   s.Rig.DirPin(),
		Delay: func(time.Duration) {},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating simulated stepper: %w", err)
	}

	d, err := device.New(s.cfg, device.Hardware{
		Sensors: sensor.Gateway{Force: s.Rig.LoadCell(), Accel: s.Rig.Accelerometer()},
		Stepper: stepper,
		Endstop: s.Rig.Endstop(),
		Clock:   sim.NewRealClock(),
		Serial:  link,
		Out:     link,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating simulated device: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	conn := &simConn{
		Conn:   sim.Conn{Link: link, Stream: stream},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(conn.done)

		err := d.Boot()
		if err != nil {
			log.WithError(err).Warn("simulated instrument failed to boot")
		}

		err = commands.Run(ctx, pacedDevice{Device: d, period: simTickPeriod})
		log.WithError(err).Debug("simulated instrument stopped")
	}()

	return conn, nil
}
