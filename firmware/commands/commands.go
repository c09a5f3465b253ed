package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/calvinmclean/tensile"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)

// maxBytesPerPoll bounds the work done on inbound bytes in one loop iteration so a flood of input
// cannot starve the safety checks
const maxBytesPerPoll = 32

type Command struct {
	Name        string
	HasArg      bool
	Run         func(Controller, string) error
	Description string
}

// Controller is used to control a device
type Controller interface {
	Start()
	Stop()
	JogUp()
	JogDown()
	Tare()
	Reset()
	ReportForce()
	ReportStatus()
	SetSpeed(float64) bool
	SetDirection(int) bool
	Emit(name, value string)
	Tick()

	// I/O
	ReadByte() (byte, error)
}

func noArg(f func(Controller)) func(Controller, string) error {
	return func(c Controller, _ string) error {
		f(c)
		return nil
	}
}

var (
	StartCommand = &Command{
		Name:        "START",
		Run:         noArg(Controller.Start),
		Description: "Start a test run from Idle or Stopped.",
	}
	StopCommand = &Command{
		Name:        "STOP",
		Run:         noArg(Controller.Stop),
		Description: "Stop all motion.",
	}
	TareCommand = &Command{
		Name:        "TARE",
		Run:         noArg(Controller.Tare),
		Description: "Zero the force reading.",
	}
	StatusCommand = &Command{
		Name:        "STATUS",
		Run:         noArg(Controller.ReportStatus),
		Description: "Report state, speed and direction.",
	}
	ResetCommand = &Command{
		Name:        "RESET",
		Run:         noArg(Controller.Reset),
		Description: "Return to Idle and clear the step count.",
	}
	ForceCommand = &Command{
		Name:        "FORCE",
		Run:         noArg(Controller.ReportForce),
		Description: "Report the current force in Newton.",
	}
	UpCommand = &Command{
		Name:        "UP",
		Run:         noArg(Controller.JogUp),
		Description: "Jog the crosshead up until stopped.",
	}
	DownCommand = &Command{
		Name:        "DOWN",
		Run:         noArg(Controller.JogDown),
		Description: "Jog the crosshead down until stopped.",
	}
	SetSpeedCommand = &Command{
		Name:   "SET_SPEED",
		HasArg: true,
		Run: func(c Controller, arg string) error {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil || !c.SetSpeed(v) {
				return ErrInvalidArgument
			}
			return nil
		},
		Description: "Set the test speed in mm/min. Input: 0 < v < 600.",
	}
	SetDirCommand = &Command{
		Name:   "SET_DIR",
		HasArg: true,
		Run: func(c Controller, arg string) error {
			v, err := strconv.Atoi(arg)
			if err != nil || !c.SetDirection(v) {
				return ErrInvalidArgument
			}
			return nil
		},
		Description: "Set the test direction for the next start. Input: 1 or -1.",
	}
	HelpCommand = &Command{
		Name:        "HELP",
		Description: "List all available commands.",
		Run: func(c Controller, _ string) error {
			for _, cmd := range commands {
				c.Emit(tensile.EventHelp, cmd.Name)
			}
			c.Emit(tensile.EventHelp, "HELP")
			return nil
		},
	}
)

var commands = []*Command{
	StartCommand,
	StopCommand,
	TareCommand,
	StatusCommand,
	ResetCommand,
	ForceCommand,
	UpCommand,
	DownCommand,
	SetSpeedCommand,
	SetDirCommand,
}

var cmdMap = map[string]*Command{}

func init() {
	cmdMap[HelpCommand.Name] = HelpCommand
	for _, cmd := range commands {
		cmdMap[cmd.Name] = cmd
	}
}

// All returns the command table, HELP last
func All() []*Command {
	return append(commands[:len(commands):len(commands)], HelpCommand)
}

// Dispatch parses one line and runs the command. Unknown commands are echoed back in an
// UNKNOWN_CMD event. Invalid arguments are ignored without any output
func Dispatch(c Controller, line string) error {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	name, arg, hasArg := strings.Cut(strings.ToUpper(text), ":")
	cmd, ok := cmdMap[strings.TrimSpace(name)]
	if !ok || cmd.HasArg != hasArg {
		c.Emit(tensile.EventUnknownCommand, text)
		return ErrUnknownCommand
	}

	return cmd.Run(c, strings.TrimSpace(arg))
}

// Interpreter assembles inbound bytes into lines and dispatches them
type Interpreter struct {
	c     Controller
	lines LineReader
}

func NewInterpreter(c Controller) *Interpreter {
	return &Interpreter{c: c}
}

// Poll reads the bytes that are already available and dispatches every complete line. It never
// waits for input
func (i *Interpreter) Poll() {
	for range maxBytesPerPoll {
		b, err := i.c.ReadByte()
		if err != nil {
			return
		}

		line, ok := i.lines.Feed(b)
		if !ok {
			continue
		}
		if i.lines.Truncated() {
			i.c.Emit(tensile.EventUnknownCommand, strings.TrimSpace(line))
			continue
		}
		_ = Dispatch(i.c, line)
	}
}

// Run is the control loop: handle commands, then tick the controller. It returns when ctx is done
func Run(ctx context.Context, c Controller) error {
	i := NewInterpreter(c)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		i.Poll()
		c.Tick()
	}
}
