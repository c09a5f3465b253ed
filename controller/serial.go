package controller

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
)

var ErrNoUSBSerial = errors.New("no USB serial port found")

// usbPortPatterns match the names that USB CDC and USB-UART adapters get on Linux, macOS and Windows
var usbPortPatterns = []string{"usbmodem", "usbserial", "ttyACM", "ttyUSB", "COM"}

// GetSerialPorts lists the ports that look like a USB instrument
func GetSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	result := slices.DeleteFunc(ports, func(p string) bool {
		return !isUSBPort(p)
	})
	if len(result) == 0 {
		return nil, ErrNoUSBSerial
	}
	return result, nil
}

func isUSBPort(name string) bool {
	for _, p := range usbPortPatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// OpenSerial opens the port and discards anything sent before the connection was made. Boards
// that reset when the port opens need a moment before they read input
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", name, err)
	}

	time.Sleep(2 * time.Second)

	err = port.ResetInputBuffer()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("error resetting input buffer: %w", err)
	}
	return port, nil
}
