package ports

import (
	"context"
	"homehub/internal/domain/model"
)

// HubPort is what inbound adapters use to observe and mutate devices.
type HubPort interface {
	Register(obs Observer) error
	Unregister(obs Observer)
	Mutate(ctx context.Context, target, action string, source model.Source) (*model.MutationResult, error)
	Toggle(ctx context.Context, target string, source model.Source) (*model.MutationResult, error)
	Devices() []model.Device
	Device(id string) (model.Device, error)
	Observers() int
	Catalog() *model.Catalog
}

// CommandPort executes an already-isolated command utterance.
type CommandPort interface {
	Execute(ctx context.Context, utterance string) model.Outcome
}
