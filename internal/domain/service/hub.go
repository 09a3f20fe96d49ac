package service

import (
	"context"
	"errors"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/metrics"
	"homehub/internal/ports"
	"sync"

	"github.com/rs/zerolog"
)

const (
	dropUnregistered = "unregistered"
	dropDisconnected = "disconnected"
	dropSlow         = "slow"
	dropShutdown     = "shutdown"
)

// ErrHubClosed is returned by Register after Close.
var ErrHubClosed = errors.New("hub closed")

// DuplicateObserverError reports an observer id that is already registered.
type DuplicateObserverError struct {
	ID string
}

func (e *DuplicateObserverError) Error() string {
	return fmt.Sprintf("observer %q already registered", e.ID)
}

// Hub owns the device store and the set of connected observers. Every
// mutation goes through it so that each real change reaches every observer.
type Hub struct {
	store      *DeviceStore
	log        zerolog.Logger
	maxPending int

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

func NewHub(store *DeviceStore, log zerolog.Logger, maxPending int) *Hub {
	if maxPending <= 0 {
		maxPending = 256
	}
	return &Hub{
		store:      store,
		log:        log.With().Str("component", "hub").Logger(),
		maxPending: maxPending,
		subs:       make(map[string]*subscriber),
	}
}

// Register adds an observer. Its first event is always a snapshot of every
// device, taken while no device can change, so no update is lost or seen
// twice relative to that snapshot.
func (h *Hub) Register(obs ports.Observer) error {
	sub := newSubscriber(obs, h.maxPending)
	var err error
	h.store.withAllLocked(func(devices []model.Device) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			err = ErrHubClosed
			return
		}
		if _, dup := h.subs[obs.ID()]; dup {
			err = &DuplicateObserverError{ID: obs.ID()}
			return
		}
		sub.push(model.SnapshotEvent(devices))
		h.subs[obs.ID()] = sub
	})
	if err != nil {
		return err
	}
	go sub.run(h)
	metrics.Observers.Inc()
	h.log.Info().Str("observer", obs.ID()).Msg("observer registered")
	return nil
}

// Unregister removes an observer without closing it. Unknown observers are
// ignored.
func (h *Hub) Unregister(obs ports.Observer) {
	h.drop(obs.ID(), dropUnregistered, false)
}

// Mutate applies an action to one device or, with target "all", to every
// eligible device.
func (h *Hub) Mutate(ctx context.Context, target, action string, source model.Source) (*model.MutationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act, err := model.ParseAction(action)
	if err != nil {
		return nil, err
	}
	id, err := h.resolve(target)
	if err != nil {
		return nil, err
	}

	res := &model.MutationResult{Action: act, Target: id}
	if id == model.TargetAll {
		res.Updates, res.Skipped = h.store.applyAll(act, source, h.publish)
	} else {
		on := act.On()
		d, changed, err := h.store.apply(id, func(bool) bool { return on }, source, h.publish)
		if err != nil {
			return nil, err
		}
		res.Updates = []model.Update{{Device: d, Changed: changed}}
	}
	h.record(res, source)
	return res, nil
}

// Toggle flips one device. Bulk toggles are not supported.
func (h *Hub) Toggle(ctx context.Context, target string, source model.Source) (*model.MutationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := h.resolve(target)
	if err != nil {
		return nil, err
	}
	if id == model.TargetAll {
		return nil, fmt.Errorf("%w: cannot toggle %q", model.ErrUnknownDevice, target)
	}
	d, changed, err := h.store.apply(id, func(cur bool) bool { return !cur }, source, h.publish)
	if err != nil {
		return nil, err
	}
	res := &model.MutationResult{
		Action:  model.ActionFor(d.IsOn),
		Target:  id,
		Updates: []model.Update{{Device: d, Changed: changed}},
	}
	h.record(res, source)
	return res, nil
}

// Fanout enqueues an event for every registered observer. It never waits on
// an observer; one whose backlog overflows is disconnected.
func (h *Hub) Fanout(ev model.Event) {
	var slow []string
	h.mu.RLock()
	for id, sub := range h.subs {
		if !sub.push(ev) {
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()
	metrics.FanoutEvents.Inc()
	// Fanout may run inside a device critical section; closing a socket
	// there would stall that device.
	for _, id := range slow {
		go h.drop(id, dropSlow, true)
	}
}

func (h *Hub) Devices() []model.Device {
	return h.store.Snapshot()
}

func (h *Hub) Device(id string) (model.Device, error) {
	resolved, err := h.resolve(id)
	if err != nil {
		return model.Device{}, err
	}
	return h.store.Get(resolved)
}

func (h *Hub) Observers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Catalog() *model.Catalog {
	return h.store.catalog
}

// Close disconnects every observer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.drop(id, dropShutdown, true)
	}
}

func (h *Hub) publish(d model.Device) {
	h.Fanout(model.UpdateEvent(d))
}

func (h *Hub) resolve(target string) (string, error) {
	id, ok := h.store.catalog.Resolve(target)
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownDevice, target)
	}
	return id, nil
}

func (h *Hub) record(res *model.MutationResult, source model.Source) {
	for _, u := range res.Updates {
		outcome := "unchanged"
		if u.Changed {
			outcome = "changed"
		}
		metrics.Mutations.WithLabelValues(string(source), outcome).Inc()
	}
	h.log.Debug().
		Str("target", res.Target).
		Str("action", string(res.Action)).
		Str("source", string(source)).
		Int("changed", res.ChangedCount()).
		Strs("skipped", res.Skipped).
		Msg("mutation applied")
}

func (h *Hub) drop(id, reason string, closeObserver bool) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.stop()
	if closeObserver {
		if err := sub.obs.Close(); err != nil {
			h.log.Debug().Err(err).Str("observer", id).Msg("close observer")
		}
	}
	metrics.Observers.Dec()
	metrics.DroppedObservers.WithLabelValues(reason).Inc()
	h.log.Info().Str("observer", id).Str("reason", reason).Msg("observer removed")
}

// subscriber queues events for one observer and delivers them in order from
// its own goroutine.
type subscriber struct {
	obs        ports.Observer
	maxPending int

	mu     sync.Mutex
	queue  []model.Event
	closed bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func newSubscriber(obs ports.Observer, maxPending int) *subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscriber{
		obs:        obs,
		maxPending: maxPending,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// push reports false when the backlog is full.
func (s *subscriber) push(ev model.Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return true
	}
	if len(s.queue) >= s.maxPending {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.cancel()
}

func (s *subscriber) run(h *Hub) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if s.closed || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if err := s.obs.Send(s.ctx, ev); err != nil {
				if s.ctx.Err() == nil {
					h.log.Debug().Err(err).Str("observer", s.obs.ID()).Msg("send failed")
					h.drop(s.obs.ID(), dropDisconnected, false)
				}
				return
			}
		}
	}
}
