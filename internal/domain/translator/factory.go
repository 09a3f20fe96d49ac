package translator

import (
	"homehub/internal/domain/model"
)

type Factory struct {
	strategies map[model.Category]Translator
}

func NewFactory() *Factory {
	plug := &PlugStrategy{}
	return &Factory{
		strategies: map[model.Category]Translator{
			model.CategoryLight:     &LightStrategy{},
			model.CategoryFan:       plug,
			model.CategoryMedia:     plug,
			model.CategoryAppliance: plug,
			model.CategoryAlwaysOn:  plug,
		},
	}
}

func (f *Factory) GetTranslator(category model.Category) Translator {
	if t, ok := f.strategies[category]; ok {
		return t
	}
	return f.strategies[model.CategoryLight]
}
