package model

import (
	"fmt"
	"strings"
)

type Action string

const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
)

// TargetAll addresses every device in the catalog.
const TargetAll = "all"

// ParseAction accepts "turn_on", "on", "turnon" and their off counterparts.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "turn_on", "turnon", "on":
		return ActionTurnOn, nil
	case "turn_off", "turnoff", "off":
		return ActionTurnOff, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// ActionFor maps a desired state to its action.
func ActionFor(on bool) Action {
	if on {
		return ActionTurnOn
	}
	return ActionTurnOff
}

// On is the device state the action leads to.
func (a Action) On() bool {
	return a == ActionTurnOn
}

// Word is the spoken form used in confirmations ("on" / "off").
func (a Action) Word() string {
	if a == ActionTurnOn {
		return "on"
	}
	return "off"
}
