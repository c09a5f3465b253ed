package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calvinmclean/tensile/firmware/device"
	"github.com/calvinmclean/tensile/firmware/sim"
	"github.com/calvinmclean/tensile/twchart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an instrument that never answers. Lines written by the controller are collected
type fakeConn struct {
	*io.PipeReader
	instrument *io.PipeWriter
	sent       sim.LineWriter
}

func newFakeConn() *fakeConn {
	r, w := io.Pipe()
	return &fakeConn{PipeReader: r, instrument: w}
}

func (f *fakeConn) Write(p []byte) (int, error) {
	return f.sent.Write(p)
}

func (f *fakeConn) Close() error {
	return f.PipeReader.Close()
}

type fakeTWChart struct {
	mtx   sync.Mutex
	calls []string
}

func (f *fakeTWChart) record(format string, args ...any) {
	f.mtx.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mtx.Unlock()
}

func (f *fakeTWChart) CreateSession(_ context.Context, name string, channels twchart.Channels) (string, error) {
	f.record("CreateSession %s %d", name, len(channels))
	return "id", nil
}

func (f *fakeTWChart) SetStartTime(context.Context, time.Time) error {
	f.record("SetStartTime")
	return nil
}

func (f *fakeTWChart) AddEvent(_ context.Context, note string, _ time.Time) error {
	f.record("AddEvent %s", note)
	return nil
}

func (f *fakeTWChart) AddStage(_ context.Context, name string, _ time.Time) error {
	f.record("AddStage %s", name)
	return nil
}

func (f *fakeTWChart) Done(context.Context) error {
	f.record("Done")
	return nil
}

func testController(t *testing.T) (*Controller, *fakeConn, *sim.LineWriter) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()

	conn := newFakeConn()
	c := NewWithConn(cfg, conn)
	c.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local) }

	out := &sim.LineWriter{}
	c.out = out
	return c, conn, out
}

func TestExecute(t *testing.T) {
	tests := []struct {
		line     string
		sent     string
		output   string
		quit     bool
		expected error
	}{
		{line: "stop", sent: "STOP\n"},
		{line: "UP", sent: "UP\n"},
		{line: "down", sent: "DOWN\n"},
		{line: "tare", sent: "TARE\n"},
		{line: "reset", sent: "RESET\n"},
		{line: "force", sent: "FORCE\n"},
		{line: "  speed 5 ", sent: "SET_SPEED:5\n"},
		{line: "speed 2.5", sent: "SET_SPEED:2.5\n"},
		{line: "speed", output: "Usage: speed X (e.g. speed 5)\n"},
		{line: "speed fast", output: "Usage: speed X (e.g. speed 5)\n"},
		{line: "dir -1", sent: "SET_DIR:-1\n"},
		{line: "dir 2", output: "Direction must be 1 or -1\n"},
		{line: "dir up", output: "Usage: dir 1 (pull) or dir -1 (return)\n"},
		{line: "status", sent: "STATUS\n", output: "Data points: 0\n"},
		{line: "clear", output: "Data cleared.\n"},
		{line: "plot", output: "No data yet.\n"},
		{line: "save", output: "No data to save.\n"},
		{line: ""},
		{line: "quit", output: "Exiting...\nNo data to save.\n", quit: true},
		{line: "exit", output: "Exiting...\nNo data to save.\n", quit: true},
		{line: "bogus", expected: ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, conn, out := testController(t)

			quit, err := c.Execute(tt.line)
			if tt.expected != nil {
				require.ErrorIs(t, err, tt.expected)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.quit, quit)
			assert.Equal(t, tt.sent, conn.sent.String())
			assert.Equal(t, tt.output, out.String())
		})
	}
}

func TestStartClearsRun(t *testing.T) {
	c, conn, _ := testController(t)
	c.data.Add(DataRecord{Steps: 1})
	c.stepLossReported.Store(true)

	_, err := c.Execute("start")
	require.NoError(t, err)

	assert.Equal(t, "START\n", conn.sent.String())
	assert.Equal(t, 0, c.data.Len())
	assert.False(t, c.stepLossReported.Load())
}

func TestPlot(t *testing.T) {
	c, _, out := testController(t)
	c.data.Add(DataRecord{Steps: 0, Force: 0})
	c.data.Add(DataRecord{Steps: 400, Force: 10000})

	_, err := c.Execute("plot")
	require.NoError(t, err)
	assert.Equal(t, "2 points\n  Displacement: 0.000 to 2.000 mm\n  Force: 0.0 to 2.2 N\n", out.String())
}

func TestHelp(t *testing.T) {
	c, _, out := testController(t)

	_, err := c.Execute("help")
	require.NoError(t, err)

	for _, cmd := range operatorCommands {
		if cmd.name == "exit" {
			continue
		}
		assert.Contains(t, out.String(), cmd.description)
	}
}

func TestHandleRecord(t *testing.T) {
	c, _, out := testController(t)

	var received []Record
	c.OnRecord(func(r Record) { received = append(received, r) })

	c.HandleRecord("STATUS;1;5.00;1")
	c.HandleRecord("EVENT;STARTED")
	c.HandleRecord("DATA;100;1;2;0;0;0;0;0")
	c.HandleRecord("garbage")

	assert.Len(t, received, 3)
	assert.Equal(t, 1, c.data.Len())
	assert.Contains(t, out.String(), "RUNNING, Speed: 5.00 mm/min, Dir: 1\n")
	assert.Contains(t, out.String(), "STARTED\n")
}

func TestStepLossWarnedOncePerRun(t *testing.T) {
	c, _, out := testController(t)

	c.HandleRecord("DATA;100;1;2;0;0;0;0;0")
	c.HandleRecord("DATA;200;2;2;0;0;0;0;1")
	c.HandleRecord("DATA;300;3;2;0;0;0;0;1")
	assert.Equal(t, 1, strings.Count(out.String(), "Step loss detected!"))

	_, err := c.Execute("start")
	require.NoError(t, err)

	c.HandleRecord("DATA;100;1;2;0;0;0;0;1")
	assert.Equal(t, 2, strings.Count(out.String(), "Step loss detected!"))
}

func TestChartSession(t *testing.T) {
	c, _, out := testController(t)
	tw := &fakeTWChart{}
	c.twchart = tw
	c.cfg.SessionName = "PLA"

	c.HandleRecord("EVENT;STARTED")
	c.HandleRecord("DATA;100;1;2;0;0;0;0;0")
	c.HandleRecord("EVENT;TARED")
	c.HandleRecord("EVENT;FORCE_LIMIT:120.0N;LIMIT:100.0N")
	c.HandleRecord("EVENT;STOPPED")

	_, err := c.Execute("save")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "tensile_test_20250304_050607.csv (1 data points)")

	c.HandleRecord("EVENT;STARTED")

	assert.Equal(t, []string{
		"CreateSession PLA 0",
		"SetStartTime",
		"AddStage Running",
		"AddEvent FORCE_LIMIT:120.0N;LIMIT:100.0N",
		"AddStage Stopped",
		"Done",
		"CreateSession PLA 0",
		"SetStartTime",
		"AddStage Running",
	}, tw.calls)
}

func TestChartIgnoresFaultsWithoutSession(t *testing.T) {
	c, _, _ := testController(t)
	tw := &fakeTWChart{}
	c.twchart = tw

	c.HandleRecord("EVENT;ENDSTOP_TRIGGERED")
	c.HandleRecord("EVENT;STOPPED")
	assert.Empty(t, tw.calls)
}

func TestWaitReady(t *testing.T) {
	c, conn, _ := testController(t)
	go func() { _ = c.readLoop() }()
	defer c.Close()

	err := c.WaitReady(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrNotReady)

	_, err = io.WriteString(conn.instrument, "EVENT;READY\r\n")
	require.NoError(t, err)

	err = c.WaitReady(context.Background(), time.Second)
	require.NoError(t, err)
}

func TestRunEOFSaves(t *testing.T) {
	c, conn, out := testController(t)
	c.cfg.ReadyTimeout = 10 * time.Millisecond
	c.data.Add(DataRecord{Steps: 1})
	defer c.Close()

	err := c.Run(context.Background(), strings.NewReader("stop\n"), out)
	require.NoError(t, err)

	assert.Equal(t, "STOP\n", conn.sent.String())
	assert.Contains(t, out.String(), "continuing anyway")
	assert.FileExists(t, filepath.Join(c.cfg.OutputDir, "tensile_test_20250304_050607.csv"))
}

func TestRunCancel(t *testing.T) {
	c, _, out := testController(t)
	c.cfg.ReadyTimeout = 10 * time.Millisecond
	defer c.Close()

	in, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- c.Run(ctx, in, out) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSimulator(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.OutputDir = dir

	conn, err := NewSimulator(sim.DefaultSpecimen(), device.DefaultConfig()).Start(context.Background())
	require.NoError(t, err)

	c := NewWithConn(cfg, conn)
	defer c.Close()

	in, operator := io.Pipe()
	out := &sim.LineWriter{}

	done := make(chan error)
	go func() { done <- c.Run(context.Background(), in, out) }()

	send := func(line string) {
		_, err := io.WriteString(operator, line+"\n")
		require.NoError(t, err)
	}

	send("speed 30")
	send("start")
	require.Eventually(t, func() bool { return c.Data().Len() >= 3 }, 5*time.Second, 10*time.Millisecond)

	send("stop")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "STOPPED") }, 5*time.Second, 10*time.Millisecond)

	send("quit")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after quit")
	}

	assert.Contains(t, out.String(), "Instrument ready!")
	assert.Contains(t, out.String(), "SPEED:30.00")
	assert.Contains(t, out.String(), "STARTED")

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name(), "tensile_test_"))

	points := c.Data().Points()
	assert.Greater(t, points[len(points)-1].Steps, int32(0))
}
