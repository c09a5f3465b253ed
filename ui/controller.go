package ui

import (
	"fmt"
	"io"
	"strconv"
)

// controllerWrapper writes operator commands to the controller's input
type controllerWrapper struct {
	writer io.Writer
}

func (c *controllerWrapper) send(cmd string) {
	fmt.Fprintf(c.writer, "%s\n", cmd)
}

func (c *controllerWrapper) SetSpeed(value float64) {
	c.send("speed " + strconv.FormatFloat(value, 'f', -1, 64))
}

func (c *controllerWrapper) SetDirection(pull bool) {
	if pull {
		c.send("dir 1")
		return
	}
	c.send("dir -1")
}

func (c *controllerWrapper) Tare() {
	c.send("tare")
}

func (c *controllerWrapper) JogUp() {
	c.send("up")
}

func (c *controllerWrapper) JogDown() {
	c.send("down")
}

func (c *controllerWrapper) Save() {
	c.send("save")
}

func (c *controllerWrapper) Status() {
	c.send("status")
}
