package service

import (
	"fmt"
	"homehub/internal/domain/model"
	"sync"
	"time"
)

// slot guards one device. The slot table is built once and never changes,
// so lookups need no lock; applies to different devices never contend.
type slot struct {
	mu  sync.Mutex
	dev model.Device
}

// DeviceStore is the single authority over device state.
type DeviceStore struct {
	catalog *model.Catalog
	slots   map[string]*slot
	order   []*slot
	now     func() time.Time
}

func NewDeviceStore(catalog *model.Catalog, now func() time.Time) *DeviceStore {
	if now == nil {
		now = time.Now
	}
	start := now()
	s := &DeviceStore{
		catalog: catalog,
		slots:   make(map[string]*slot),
		now:     now,
	}
	for _, spec := range catalog.Specs() {
		sl := &slot{dev: model.Device{
			ID:               spec.ID,
			DisplayName:      spec.Name,
			Category:         spec.Category,
			LastUpdated:      start,
			LastControlledBy: model.SourceSystem,
		}}
		s.slots[spec.ID] = sl
		s.order = append(s.order, sl)
	}
	return s
}

// Apply sets a device to the desired state. Applying the current state is a
// no-op that leaves the timestamp and source untouched.
func (s *DeviceStore) Apply(id string, on bool, source model.Source) (model.Device, bool, error) {
	return s.apply(id, func(bool) bool { return on }, source, nil)
}

// Toggle flips a device within the same critical section as the read.
func (s *DeviceStore) Toggle(id string, source model.Source) (model.Device, bool, error) {
	return s.apply(id, func(cur bool) bool { return !cur }, source, nil)
}

// ApplyAll expands a bulk action into one apply per device. A bulk turn-off
// never touches protected devices.
func (s *DeviceStore) ApplyAll(action model.Action, source model.Source) ([]model.Update, []string) {
	return s.applyAll(action, source, nil)
}

// Get returns one device.
func (s *DeviceStore) Get(id string) (model.Device, error) {
	sl, ok := s.slots[id]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %q", model.ErrUnknownDevice, id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.dev, nil
}

// Snapshot returns every device in catalog order.
func (s *DeviceStore) Snapshot() []model.Device {
	out := make([]model.Device, 0, len(s.order))
	for _, sl := range s.order {
		sl.mu.Lock()
		out = append(out, sl.dev)
		sl.mu.Unlock()
	}
	return out
}

// publish runs inside the device's critical section, so whatever it
// enqueues is ordered exactly like the applies for that device.
func (s *DeviceStore) apply(id string, next func(bool) bool, source model.Source, publish func(model.Device)) (model.Device, bool, error) {
	sl, ok := s.slots[id]
	if !ok {
		return model.Device{}, false, fmt.Errorf("%w: %q", model.ErrUnknownDevice, id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	want := next(sl.dev.IsOn)
	if want == sl.dev.IsOn {
		return sl.dev, false, nil
	}
	sl.dev.IsOn = want
	sl.dev.LastUpdated = s.now()
	sl.dev.LastControlledBy = source
	if publish != nil {
		publish(sl.dev)
	}
	return sl.dev, true, nil
}

func (s *DeviceStore) applyAll(action model.Action, source model.Source, publish func(model.Device)) ([]model.Update, []string) {
	var updates []model.Update
	var skipped []string
	on := action.On()
	for _, spec := range s.catalog.Specs() {
		if !on && spec.Category.Protected() {
			skipped = append(skipped, spec.ID)
			continue
		}
		d, changed, err := s.apply(spec.ID, func(bool) bool { return on }, source, publish)
		if err != nil {
			// catalog ids always have a slot
			continue
		}
		updates = append(updates, model.Update{Device: d, Changed: changed})
	}
	return updates, skipped
}

// withAllLocked holds every device lock, in catalog order, while fn runs.
func (s *DeviceStore) withAllLocked(fn func(devices []model.Device)) {
	for _, sl := range s.order {
		sl.mu.Lock()
	}
	defer func() {
		for i := len(s.order) - 1; i >= 0; i-- {
			s.order[i].mu.Unlock()
		}
	}()
	devices := make([]model.Device, 0, len(s.order))
	for _, sl := range s.order {
		devices = append(devices, sl.dev)
	}
	fn(devices)
}
