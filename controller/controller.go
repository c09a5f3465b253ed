package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/device"
	"github.com/calvinmclean/tensile/twchart"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

var ErrNotReady = errors.New("instrument did not report READY")

var (
	eventTag   = color.GreenString("[EVENT]")
	faultTag   = color.RedString("[EVENT]")
	statusTag  = color.CyanString("[STATUS]")
	warningTag = color.YellowString("[WARNING]")
)

const twchartTimeout = 5 * time.Second

// Listener receives every record after the controller has handled it
type Listener func(Record)

// Controller is the host side of the instrument: it turns operator commands into protocol
// commands and records the telemetry of each run
type Controller struct {
	cfg      Config
	conn     io.ReadWriteCloser
	data     *DataStore
	metrics  *Metrics
	twchart  twchartClient
	channels twchart.Channels

	listeners []Listener

	writeMtx sync.Mutex
	outMtx   sync.Mutex
	out      io.Writer

	ready     chan struct{}
	readyOnce sync.Once

	stepLossReported atomic.Bool

	sessionMtx    sync.Mutex
	sessionActive bool

	now func() time.Time
}

// NewFromEnv loads the config file named by TENSILE_CONFIG, applies environment overrides and
// connects to the instrument
func NewFromEnv() (*Controller, error) {
	cfg, err := LoadConfig(os.Getenv("TENSILE_CONFIG"))
	if err != nil {
		return nil, err
	}

	err = cfg.ApplyEnv()
	if err != nil {
		return nil, err
	}

	return New(cfg)
}

// New connects to the instrument selected by cfg.SerialPort. An empty port picks the first USB
// serial port and SerialPortSim starts the simulator
func New(cfg Config) (*Controller, error) {
	channels, err := twchart.ParseChannels(cfg.channels())
	if err != nil {
		return nil, fmt.Errorf("error parsing channels: %w", err)
	}

	conn, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	c := NewWithConn(cfg, conn)
	c.channels = channels
	if cfg.TWChartAddr != "" {
		c.twchart = twchart.NewClient(cfg.TWChartAddr)
	}
	return c, nil
}

func connect(cfg Config) (io.ReadWriteCloser, error) {
	switch cfg.SerialPort {
	case SerialPortSim:
		log.Info("using simulated instrument")
		return NewSimulator(cfg.Specimen, device.DefaultConfig()).Start(context.Background())
	case "":
		ports, err := GetSerialPorts()
		if err != nil {
			return nil, err
		}
		cfg.SerialPort = ports[0]
	}

	log.WithField("port", cfg.SerialPort).WithField("baud", cfg.BaudRate).Info("opening serial port")
	return OpenSerial(cfg.SerialPort, cfg.BaudRate)
}

// NewWithConn uses an already open connection. Chart upload is disabled
func NewWithConn(cfg Config, conn io.ReadWriteCloser) *Controller {
	return &Controller{
		cfg:     cfg,
		conn:    conn,
		data:    NewDataStore(),
		metrics: NewMetrics(),
		twchart: noopTWChartClient{},
		out:     io.Discard,
		ready:   make(chan struct{}),
		now:     time.Now,
	}
}

// OnRecord registers l. It must be called before Run
func (c *Controller) OnRecord(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Controller) Data() *DataStore {
	return c.data
}

func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// Run reads instrument output in the background, waits for READY and then runs the operator
// command loop on in until quit, EOF or ctx is done. Output for the operator goes to out
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	c.outMtx.Lock()
	c.out = out
	c.outMtx.Unlock()

	go func() {
		err := c.readLoop()
		if err != nil {
			log.WithError(err).Debug("stopped reading from instrument")
		}
	}()

	if c.cfg.MetricsAddr != "" {
		go func() {
			err := c.metrics.Serve(ctx, c.cfg.MetricsAddr)
			if err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	c.printf("Waiting for instrument...\n")
	err := c.WaitReady(ctx, c.cfg.ReadyTimeout)
	switch {
	case errors.Is(err, ErrNotReady):
		c.printf("%s no READY after %s, continuing anyway\n", warningTag, c.cfg.ReadyTimeout)
	case err != nil:
		return err
	default:
		c.printf("Instrument ready!\n")
	}

	c.printf("\nTensile Test Control\n")
	c.printf("========================================\n")
	c.printf("Type 'help' for commands\n\n")

	return c.commandLoop(ctx, in)
}

// WaitReady blocks until the instrument sends EVENT;READY or timeout passes
func (c *Controller) WaitReady(ctx context.Context, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-c.ready:
		return nil
	case <-t.C:
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) commandLoop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.save()
				return nil
			}

			quit, err := c.Execute(line)
			if err != nil {
				c.printf("%v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *Controller) readLoop() error {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		c.HandleRecord(scanner.Text())
	}
	return scanner.Err()
}

// HandleRecord parses one line from the instrument, stores telemetry and prints events
func (c *Controller) HandleRecord(line string) {
	r, err := ParseRecord(line)
	if err != nil {
		log.WithError(err).WithField("line", line).Debug("ignoring line")
		return
	}

	switch r := r.(type) {
	case DataRecord:
		c.data.Add(r)
		if r.StepLoss && c.stepLossReported.CompareAndSwap(false, true) {
			c.printf("  %s Step loss detected!\n", warningTag)
		}
	case StatusRecord:
		c.printf("  %s %s\n", statusTag, r)
	case EventRecord:
		if r.Name == tensile.EventReady {
			c.readyOnce.Do(func() { close(c.ready) })
		}

		tag := eventTag
		if isFault(r.Name) {
			tag = faultTag
		}
		c.printf("  %s %s\n", tag, r)
		c.recordEvent(r)
	}

	c.metrics.Observe(r)
	for _, l := range c.listeners {
		l(r)
	}
}

// recordEvent mirrors run state changes and faults into the chart session
func (c *Controller) recordEvent(e EventRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), twchartTimeout)
	defer cancel()

	now := c.now()
	logger := log.WithField("event", e.Name)

	c.sessionMtx.Lock()
	defer c.sessionMtx.Unlock()

	switch {
	case e.Name == tensile.EventStarted:
		if !c.sessionActive {
			_, err := c.twchart.CreateSession(ctx, c.sessionName(now), c.channels)
			if err != nil {
				logger.WithError(err).Warn("error creating chart session")
				return
			}
			c.sessionActive = true

			err = c.twchart.SetStartTime(ctx, now)
			if err != nil {
				logger.WithError(err).Warn("error setting chart start time")
			}
		}
		c.addStage(ctx, "Running", now)
	case e.Name == tensile.EventStopped:
		c.addStage(ctx, "Stopped", now)
	case isFault(e.Name) && c.sessionActive:
		err := c.twchart.AddEvent(ctx, e.String(), now)
		if err != nil {
			logger.WithError(err).Warn("error adding chart event")
		}
	}
}

func (c *Controller) addStage(ctx context.Context, name string, now time.Time) {
	if !c.sessionActive {
		return
	}
	err := c.twchart.AddStage(ctx, name, now)
	if err != nil {
		log.WithError(err).WithField("stage", name).Warn("error adding chart stage")
	}
}

func (c *Controller) sessionName(now time.Time) string {
	if c.cfg.SessionName != "" {
		return c.cfg.SessionName
	}
	return "Tensile test " + now.Format(time.DateTime)
}

// Send writes one protocol command to the instrument
func (c *Controller) Send(cmd string) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	log.WithField("cmd", cmd).Debug("sending")
	_, err := io.WriteString(c.conn, cmd+"\n")
	if err != nil {
		return fmt.Errorf("error sending %q: %w", cmd, err)
	}
	return nil
}

// save writes the run to OutputDir and closes the chart session
func (c *Controller) save() {
	path, err := c.data.SaveCSV(c.cfg.OutputDir, c.now())
	switch {
	case errors.Is(err, ErrNoData):
		c.printf("No data to save.\n")
		return
	case err != nil:
		c.printf("%s %v\n", warningTag, err)
		return
	}
	c.printf("Saved: %s (%d data points)\n", path, c.data.Len())

	c.sessionMtx.Lock()
	defer c.sessionMtx.Unlock()
	if c.sessionActive {
		ctx, cancel := context.WithTimeout(context.Background(), twchartTimeout)
		defer cancel()

		err = c.twchart.Done(ctx)
		if err != nil {
			log.WithError(err).Warn("error closing chart session")
		}
		c.sessionActive = false
	}
}

func (c *Controller) printf(format string, args ...any) {
	c.outMtx.Lock()
	defer c.outMtx.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Close disconnects from the instrument
func (c *Controller) Close() error {
	return c.conn.Close()
}

func isFault(name string) bool {
	switch name {
	case tensile.EventForceLimit,
		tensile.EventEndstopTriggered,
		tensile.EventStepLoss,
		tensile.EventAccelFault,
		tensile.EventADCTimeout:
		return true
	}
	return false
}
