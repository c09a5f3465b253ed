//go:build tinygo

package main

import (
	"context"

	"github.com/calvinmclean/tensile/firmware/board"
	"github.com/calvinmclean/tensile/firmware/commands"
	"github.com/calvinmclean/tensile/firmware/device"
)

func main() {
	hw, err := board.Hardware(board.NewClock())
	if err != nil {
		panic(err)
	}

	d, err := device.New(device.DefaultConfig(), hw)
	if err != nil {
		panic(err)
	}

	// an accelerometer fault is already reported and leaves the device in the Error state
	_ = d.Boot()

	_ = commands.Run(context.Background(), d)
}
