package translator

import (
	"homehub/internal/domain/model"

	"github.com/amimof/huego"
)

const maxBri uint8 = 254

type LightStrategy struct{}

// ToHue reports full brightness when on; devices here have no dimmer.
func (s *LightStrategy) ToHue(d model.Device) *huego.State {
	state := &huego.State{On: d.IsOn, Reachable: true, ColorMode: "ct"}
	if d.IsOn {
		state.Bri = maxBri
	}
	return state
}

// ToAction treats a brightness of zero as off, the way Alexa dims to 0%.
func (s *LightStrategy) ToAction(hueState *huego.State) model.Action {
	if !hueState.On {
		return model.ActionTurnOff
	}
	if hueState.Bri == 0 && hueState.BriInc < 0 {
		return model.ActionTurnOff
	}
	return model.ActionTurnOn
}

func (s *LightStrategy) GetMetadata() Metadata {
	return Metadata{
		Type:             "Dimmable light",
		ModelID:          "LWB010",
		ManufacturerName: "Philips",
	}
}
