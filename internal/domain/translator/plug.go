package translator

import (
	"homehub/internal/domain/model"

	"github.com/amimof/huego"
)

// PlugStrategy presents non-light devices as smart plugs.
type PlugStrategy struct{}

func (s *PlugStrategy) ToHue(d model.Device) *huego.State {
	return &huego.State{On: d.IsOn, Reachable: true}
}

func (s *PlugStrategy) ToAction(hueState *huego.State) model.Action {
	return model.ActionFor(hueState.On)
}

func (s *PlugStrategy) GetMetadata() Metadata {
	return Metadata{
		Type:             "On/Off plug-in unit",
		ModelID:          "LOM001",
		ManufacturerName: "Signify Netherlands B.V.",
	}
}
