package command

import (
	"homehub/internal/domain/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	c, err := model.NewCatalog(model.DefaultDevices())
	require.NoError(t, err)
	return NewParser(c)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "turn on the light", Normalize("Switch ON the light!"))
	assert.Equal(t, "turn off the tv", Normalize("  shut   off, the TV. "))
	assert.Equal(t, "turn on number 3", Normalize("Power on number 3"))
	assert.Equal(t, "whats up", Normalize("What's up?"))
}

func TestParse(t *testing.T) {
	p := newTestParser(t)
	tests := []struct {
		text      string
		action    model.Action
		target    string
		qualifier string
	}{
		{"turn on the light", model.ActionTurnOn, "light", ""},
		{"turn off the fan", model.ActionTurnOff, "fan", ""},
		{"Turn on the kitchen light", model.ActionTurnOn, "kitchen", ""},
		{"turn on the bedroom fan", model.ActionTurnOn, "fan", "bedroom"},
		{"turn off the living room fan", model.ActionTurnOff, "fan", ""},
		{"switch on the fridge", model.ActionTurnOn, "refrigerator", ""},
		{"please turn on the television now", model.ActionTurnOn, "tv", ""},
		{"turn on home theater", model.ActionTurnOn, "hometheater", ""},
		{"turn on number three", model.ActionTurnOn, "kitchen", ""},
		{"turn off number 5", model.ActionTurnOff, "tv", ""},
		{"turn on 2", model.ActionTurnOn, "fan", ""},
		{"turn off everything", model.ActionTurnOff, model.TargetAll, ""},
		{"shut off all", model.ActionTurnOff, model.TargetAll, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m, ok := p.Parse(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.action, m.Action)
			assert.Equal(t, tt.target, m.Target)
			assert.Equal(t, tt.qualifier, m.Qualifier)
		})
	}
}

func TestParse_LastTriggerWins(t *testing.T) {
	p := newTestParser(t)

	m, ok := p.Parse("jerry turn on the light no wait turn off the fan")
	require.True(t, ok)
	assert.Equal(t, model.ActionTurnOff, m.Action)
	assert.Equal(t, "fan", m.Target)

	m, ok = p.Parse("turn on the tv and turn off")
	require.True(t, ok)
	assert.Equal(t, "tv", m.Target)
	assert.Equal(t, model.ActionTurnOn, m.Action)
}

func TestParse_NoMatch(t *testing.T) {
	p := newTestParser(t)
	for _, text := range []string{
		"",
		"what time is it",
		"turn on",
		"turn on the garage",
		"turn up the volume",
		"return on investment light",
	} {
		_, ok := p.Parse(text)
		assert.False(t, ok, text)
	}
}

func TestParse_CustomCatalog(t *testing.T) {
	c, err := model.NewCatalog([]model.DeviceSpec{
		{ID: "porch", Name: "Porch Lamp", Category: model.CategoryLight, Number: 7},
		{ID: "lamp", Name: "Desk Lamp", Category: model.CategoryLight, Aliases: []string{"lamp"}},
	})
	require.NoError(t, err)
	p := NewParser(c)

	m, ok := p.Parse("turn on the porch lamp")
	require.True(t, ok)
	assert.Equal(t, "porch", m.Target)

	m, ok = p.Parse("turn on the office lamp")
	require.True(t, ok)
	assert.Equal(t, "lamp", m.Target)
	assert.Equal(t, "office", m.Qualifier)

	m, ok = p.Parse("turn off seven")
	require.True(t, ok)
	assert.Equal(t, "porch", m.Target)
}
