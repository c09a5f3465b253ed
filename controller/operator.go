package controller

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

var ErrUnknownCommand = errors.New("unknown command")

// operatorCommand is one line of the interactive prompt
type operatorCommand struct {
	name        string
	usage       string
	description string
	run         func(c *Controller, args []string) (bool, error)
}

// send creates an operatorCommand handler for commands that map directly to a protocol command
func send(cmd string) func(*Controller, []string) (bool, error) {
	return func(c *Controller, _ []string) (bool, error) {
		return false, c.Send(cmd)
	}
}

var operatorCommands []operatorCommand

func init() {
	operatorCommands = []operatorCommand{
		{"start", "start", "Start tensile test", func(c *Controller, _ []string) (bool, error) {
			c.data.Clear()
			c.stepLossReported.Store(false)
			return false, c.Send("START")
		}},
		{"stop", "stop", "Emergency stop", send("STOP")},
		{"speed", "speed X", "Set speed [mm/min] (e.g. \"speed 5\")", setSpeed},
		{"dir", "dir X", "Set direction (1 = pull, -1 = return)", setDirection},
		{"up", "up", "Manual jog up for positioning", send("UP")},
		{"down", "down", "Manual jog down for positioning", send("DOWN")},
		{"tare", "tare", "Zero force measurement", send("TARE")},
		{"reset", "reset", "Reset to IDLE state", send("RESET")},
		{"status", "status", "Show current status", func(c *Controller, _ []string) (bool, error) {
			err := c.Send("STATUS")
			c.printf("Data points: %d\n", c.data.Len())
			return false, err
		}},
		{"force", "force", "Show current force reading", send("FORCE")},
		{"save", "save", "Save data as CSV", func(c *Controller, _ []string) (bool, error) {
			c.save()
			return false, nil
		}},
		{"clear", "clear", "Clear recorded data", func(c *Controller, _ []string) (bool, error) {
			c.data.Clear()
			c.printf("Data cleared.\n")
			return false, nil
		}},
		{"plot", "plot", "Show force and displacement ranges", plot},
		{"help", "help", "Show this help", func(c *Controller, _ []string) (bool, error) {
			c.outMtx.Lock()
			defer c.outMtx.Unlock()
			return false, PrintHelp(c.out)
		}},
		{"quit", "quit", "Exit (auto-saves data)", quit},
		{"exit", "exit", "Exit (auto-saves data)", quit},
	}
}

// Execute runs one operator line and returns true when the operator asked to quit
func (c *Controller) Execute(line string) (bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}

	for _, cmd := range operatorCommands {
		if cmd.name == fields[0] {
			return cmd.run(c, fields[1:])
		}
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownCommand, strings.TrimSpace(line))
}

func setSpeed(c *Controller, args []string) (bool, error) {
	if len(args) != 1 {
		c.printf("Usage: speed X (e.g. speed 5)\n")
		return false, nil
	}
	speed, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		c.printf("Usage: speed X (e.g. speed 5)\n")
		return false, nil
	}
	return false, c.Send("SET_SPEED:" + strconv.FormatFloat(speed, 'f', -1, 64))
}

func setDirection(c *Controller, args []string) (bool, error) {
	if len(args) != 1 {
		c.printf("Usage: dir 1 (pull) or dir -1 (return)\n")
		return false, nil
	}
	direction, err := strconv.Atoi(args[0])
	if err != nil {
		c.printf("Usage: dir 1 (pull) or dir -1 (return)\n")
		return false, nil
	}
	if direction != 1 && direction != -1 {
		c.printf("Direction must be 1 or -1\n")
		return false, nil
	}
	return false, c.Send("SET_DIR:" + strconv.Itoa(direction))
}

func plot(c *Controller, _ []string) (bool, error) {
	sum := c.data.Summary()
	if sum.Points == 0 {
		c.printf("No data yet.\n")
		return false, nil
	}

	c.printf("%d points\n", sum.Points)
	c.printf("  Displacement: %.3f to %.3f mm\n", sum.MinDisplacement, sum.MaxDisplacement)
	c.printf("  Force: %.1f to %.1f N\n", sum.MinForce, sum.MaxForce)
	return false, nil
}

func quit(c *Controller, _ []string) (bool, error) {
	c.printf("Exiting...\n")
	c.save()
	return true, nil
}

// PrintHelp writes the operator command table
func PrintHelp(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Command", "Description")
	for _, cmd := range operatorCommands {
		if cmd.name == "exit" {
			continue
		}
		err := table.Append([]string{cmd.usage, cmd.description})
		if err != nil {
			return err
		}
	}
	return table.Render()
}
