package model

import (
	"errors"
	"time"
)

// ErrUnknownDevice is returned when a device id is not part of the catalog.
var ErrUnknownDevice = errors.New("unknown device")

// ErrUnknownAction is returned when an action cannot be normalized.
var ErrUnknownAction = errors.New("unknown action")

type Category string

const (
	CategoryLight     Category = "light"
	CategoryFan       Category = "fan"
	CategoryMedia     Category = "media"
	CategoryAppliance Category = "appliance"
	// CategoryAlwaysOn devices are never switched off by a bulk command.
	CategoryAlwaysOn Category = "always_on"
)

// Protected reports whether bulk "turn off" must skip devices of this category.
func (c Category) Protected() bool {
	return c == CategoryAlwaysOn
}

// Source identifies who last changed a device.
type Source string

const (
	SourceSystem Source = "system"
	SourceManual Source = "manual"
	SourceVoice  Source = "voice"
	SourceRemote Source = "remote"
)

type Device struct {
	ID               string    `json:"deviceId"`
	DisplayName      string    `json:"name"`
	Category         Category  `json:"category"`
	IsOn             bool      `json:"state"`
	LastUpdated      time.Time `json:"lastUpdated"`
	LastControlledBy Source    `json:"lastControlledBy"`
}
