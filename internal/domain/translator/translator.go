package translator

import (
	"homehub/internal/domain/model"
	"strconv"

	"github.com/amimof/huego"
)

// Metadata is what a Hue client sees as the device's hardware identity.
type Metadata struct {
	Type             string
	ModelID          string
	ManufacturerName string
}

// Translator maps device state to and from the Hue light representation
// used by the bridge emulation.
type Translator interface {
	ToHue(d model.Device) *huego.State
	ToAction(hueState *huego.State) model.Action
	GetMetadata() Metadata
}

// Light builds the Hue light for a device using its category strategy.
func Light(t Translator, spec model.DeviceSpec, d model.Device) *huego.Light {
	meta := t.GetMetadata()
	return &huego.Light{
		ID:               spec.Number,
		Name:             spec.Name,
		Type:             meta.Type,
		State:            t.ToHue(d),
		ModelID:          meta.ModelID,
		ManufacturerName: meta.ManufacturerName,
		UniqueID:         UniqueID(spec.Number),
		SwVersion:        "5.105.0.21169",
	}
}

// UniqueID fakes a Zigbee MAC with the light number as the last octet.
func UniqueID(n int) string {
	hex := strconv.FormatInt(int64(n&0xff), 16)
	if len(hex) == 1 {
		hex = "0" + hex
	}
	return "00:17:88:01:00:00:00:" + hex + "-0b"
}
