package ui

import (
	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/controller"
)

// nextState follows the instrument state from its events so the panel does not need to poll
// STATUS
func nextState(current tensile.RunState, e controller.EventRecord) tensile.RunState {
	switch e.Name {
	case tensile.EventStarted:
		return tensile.StateRunning
	case tensile.EventStopped, tensile.EventEndstopTriggered, tensile.EventForceLimit:
		return tensile.StateStopped
	case tensile.EventJogUp, tensile.EventJogDown:
		return tensile.StateJogging
	case tensile.EventReset:
		return tensile.StateIdle
	case tensile.EventAccelFault:
		return tensile.StateError
	default:
		return current
	}
}

// action is the main button for a state: stop while moving, reset after a fault, otherwise start
func action(s tensile.RunState) (string, string) {
	switch {
	case s.Moving():
		return "Stop", "stop"
	case s == tensile.StateError:
		return "Reset", "reset"
	default:
		return "Start", "start"
	}
}
