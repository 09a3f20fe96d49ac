package translator

import (
	"homehub/internal/domain/model"
	"testing"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
)

func TestLightStrategy(t *testing.T) {
	s := &LightStrategy{}

	state := s.ToHue(model.Device{ID: "light", IsOn: true})
	assert.True(t, state.On)
	assert.True(t, state.Reachable)
	assert.Equal(t, uint8(254), state.Bri)

	state = s.ToHue(model.Device{ID: "light"})
	assert.False(t, state.On)
	assert.Equal(t, uint8(0), state.Bri)

	assert.Equal(t, model.ActionTurnOn, s.ToAction(&huego.State{On: true, Bri: 100}))
	assert.Equal(t, model.ActionTurnOff, s.ToAction(&huego.State{On: false}))
	assert.Equal(t, model.ActionTurnOff, s.ToAction(&huego.State{On: true, BriInc: -254}))
}

func TestPlugStrategy(t *testing.T) {
	s := &PlugStrategy{}

	state := s.ToHue(model.Device{ID: "fan", IsOn: true})
	assert.True(t, state.On)
	assert.Equal(t, uint8(0), state.Bri)

	assert.Equal(t, model.ActionTurnOn, s.ToAction(&huego.State{On: true}))
	assert.Equal(t, model.ActionTurnOff, s.ToAction(&huego.State{On: false}))
}

func TestMetadata(t *testing.T) {
	ls := &LightStrategy{}
	assert.Equal(t, "Dimmable light", ls.GetMetadata().Type)

	ps := &PlugStrategy{}
	assert.Equal(t, "On/Off plug-in unit", ps.GetMetadata().Type)
	assert.Equal(t, "LOM001", ps.GetMetadata().ModelID)
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	assert.IsType(t, &LightStrategy{}, f.GetTranslator(model.CategoryLight))
	assert.IsType(t, &PlugStrategy{}, f.GetTranslator(model.CategoryFan))
	assert.IsType(t, &PlugStrategy{}, f.GetTranslator(model.CategoryAlwaysOn))
	assert.IsType(t, &LightStrategy{}, f.GetTranslator(model.Category("unknown")))
}

func TestLight(t *testing.T) {
	spec := model.DeviceSpec{ID: "tv", Name: "TV", Category: model.CategoryMedia, Number: 5}
	l := Light(NewFactory().GetTranslator(spec.Category), spec, model.Device{ID: "tv", IsOn: true})

	assert.Equal(t, 5, l.ID)
	assert.Equal(t, "TV", l.Name)
	assert.Equal(t, "On/Off plug-in unit", l.Type)
	assert.True(t, l.State.On)
	assert.Equal(t, "00:17:88:01:00:00:00:05-0b", l.UniqueID)
}
