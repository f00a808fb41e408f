// Package registry is an in-memory runtime that accepts compiled controller
// graphs through the entity.Registrar interface and resolves controller
// handles for post-compile updates.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/entity"
)

// ErrDuplicate is returned when a controller, slot or entity id is
// registered more than once.
var ErrDuplicate = errors.New("registry: duplicate registration")

// Event records one registration call.
type Event struct {
	Call       string
	Controller entity.Handle
	Name       string
}

// Option configures a registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry stores registered controllers and their entities. It is safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	logger      zerolog.Logger
	controllers map[entity.Handle]*record
	entities    map[string]entity.Entity
	events      []Event
}

type record struct {
	ctrl     *entity.Controller
	targets  []*entity.Target
	zones    []*entity.Zone
	slots    map[string]struct{}
	entities []string
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:      zerolog.Nop(),
		controllers: make(map[entity.Handle]*record),
		entities:    make(map[string]entity.Entity),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var _ entity.Registrar = (*Registry)(nil)
var _ entity.Resolver = (*Registry)(nil)

// RegisterController registers a new controller handle.
func (r *Registry) RegisterController(ctrl *entity.Controller) error {
	if ctrl == nil {
		return errors.New("controller must not be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.controllers[ctrl.ID]; exists {
		return fmt.Errorf("%w: controller %s", ErrDuplicate, ctrl.ID)
	}
	r.controllers[ctrl.ID] = &record{ctrl: ctrl, slots: make(map[string]struct{})}
	r.record("register_controller", ctrl.ID, ctrl.Name)
	return nil
}

// RegisterTarget registers a target and its measurement sensors.
func (r *Registry) RegisterTarget(h entity.Handle, target *entity.Target) error {
	if target == nil {
		return errors.New("target must not be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.lookup(h)
	if err != nil {
		return err
	}
	if len(rec.targets) >= entity.MaxTargets {
		return fmt.Errorf("controller %s: at most %d targets are supported", h, entity.MaxTargets)
	}
	var sensors []entity.Entity
	for _, kind := range entity.MeasurementKinds {
		if s := target.Measurement(kind); s != nil {
			sensors = append(sensors, s)
		}
	}
	if err := r.addEntities(rec, sensors...); err != nil {
		return err
	}
	rec.targets = append(rec.targets, target)
	r.record("register_target", h, target.Name)
	return nil
}

// RegisterZone registers a zone and its indicators.
func (r *Registry) RegisterZone(h entity.Handle, zone *entity.Zone) error {
	if zone == nil {
		return errors.New("zone must not be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.lookup(h)
	if err != nil {
		return err
	}
	var indicators []entity.Entity
	if zone.Occupancy != nil {
		indicators = append(indicators, zone.Occupancy)
	}
	if zone.TargetCount != nil {
		indicators = append(indicators, zone.TargetCount)
	}
	if err := r.addEntities(rec, indicators...); err != nil {
		return err
	}
	rec.zones = append(rec.zones, zone)
	r.record("register_zone", h, zone.Name)
	return nil
}

// SetOccupancyEntity registers the top-level occupancy indicator.
func (r *Registry) SetOccupancyEntity(h entity.Handle, s *entity.BinarySensor) error {
	if s == nil {
		return errors.New("occupancy entity must not be nil")
	}
	return r.setSlot(h, "set_occupancy_entity", s)
}

// SetTargetCountEntity registers the top-level target count sensor.
func (r *Registry) SetTargetCountEntity(h entity.Handle, s *entity.Sensor) error {
	if s == nil {
		return errors.New("target count entity must not be nil")
	}
	return r.setSlot(h, "set_target_count_entity", s)
}

// SetMaxDistance records the fixed max detection distance.
func (r *Registry) SetMaxDistance(h entity.Handle, meters float64) error {
	if !entity.InRange(meters, entity.MinMaxDistance, entity.MaxMaxDistance) {
		return fmt.Errorf("%w: max distance %.2f", entity.ErrOutOfRange, meters)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.lookup(h)
	if err != nil {
		return err
	}
	if err := claim(rec, h, "max_detection_distance"); err != nil {
		return err
	}
	r.record("set_max_distance", h, fmt.Sprintf("%.2fm", meters))
	return nil
}

// SetMaxDistanceEntity registers the adjustable max distance entity.
func (r *Registry) SetMaxDistanceEntity(h entity.Handle, n *entity.MaxDistanceNumber) error {
	if n == nil {
		return errors.New("max distance entity must not be nil")
	}
	if n.Controller != h {
		return fmt.Errorf("max distance entity %s is linked to %s, not %s", n.Name, n.Controller, h)
	}
	return r.setSlotNamed(h, "set_max_distance_entity", "max_detection_distance", n)
}

// SetRestartButton registers the restart button.
func (r *Registry) SetRestartButton(h entity.Handle, b *entity.Button) error {
	if b == nil {
		return errors.New("restart button must not be nil")
	}
	return r.setSlot(h, "set_restart_button", b)
}

// SetFactoryResetButton registers the factory reset button.
func (r *Registry) SetFactoryResetButton(h entity.Handle, b *entity.Button) error {
	if b == nil {
		return errors.New("factory reset button must not be nil")
	}
	return r.setSlot(h, "set_factory_reset_button", b)
}

// SetTrackingModeEntity registers the tracking mode switch.
func (r *Registry) SetTrackingModeEntity(h entity.Handle, s *entity.TrackingModeSwitch) error {
	if s == nil {
		return errors.New("tracking mode entity must not be nil")
	}
	if s.Controller != h {
		return fmt.Errorf("tracking mode entity %s is linked to %s, not %s", s.Name, s.Controller, h)
	}
	return r.setSlot(h, "set_tracking_mode_entity", s)
}

// Resolve returns the controller registered under h.
func (r *Registry) Resolve(h entity.Handle) (*entity.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.controllers[h]
	if !ok {
		return nil, false
	}
	return rec.ctrl, true
}

// Entity returns a registered entity by id.
func (r *Registry) Entity(id string) (entity.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// Targets returns the targets registered for h in registration order.
func (r *Registry) Targets(h entity.Handle) []*entity.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.controllers[h]
	if !ok {
		return nil
	}
	return append([]*entity.Target(nil), rec.targets...)
}

// Zones returns the zones registered for h in registration order.
func (r *Registry) Zones(h entity.Handle) []*entity.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.controllers[h]
	if !ok {
		return nil
	}
	return append([]*entity.Zone(nil), rec.zones...)
}

// Handles lists the registered controller handles in sorted order.
func (r *Registry) Handles() []entity.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]entity.Handle, 0, len(r.controllers))
	for h := range r.controllers {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Events returns a copy of the registration log.
func (r *Registry) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Remove drops a controller and every entity registered for it.
func (r *Registry) Remove(h entity.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.controllers[h]
	if !ok {
		return false
	}
	for _, id := range rec.entities {
		delete(r.entities, id)
	}
	delete(r.controllers, h)
	r.record("remove_controller", h, rec.ctrl.Name)
	return true
}

func (r *Registry) setSlot(h entity.Handle, call string, e entity.Entity) error {
	return r.setSlotNamed(h, call, call, e)
}

func (r *Registry) setSlotNamed(h entity.Handle, call, slot string, e entity.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.lookup(h)
	if err != nil {
		return err
	}
	if _, taken := rec.slots[slot]; taken {
		return fmt.Errorf("%w: controller %s %s", ErrDuplicate, h, slot)
	}
	if err := r.addEntities(rec, e); err != nil {
		return err
	}
	rec.slots[slot] = struct{}{}
	r.record(call, h, e.Metadata().Name)
	return nil
}

func claim(rec *record, h entity.Handle, slot string) error {
	if _, taken := rec.slots[slot]; taken {
		return fmt.Errorf("%w: controller %s %s", ErrDuplicate, h, slot)
	}
	rec.slots[slot] = struct{}{}
	return nil
}

func (r *Registry) lookup(h entity.Handle) (*record, error) {
	rec, ok := r.controllers[h]
	if !ok {
		return nil, fmt.Errorf("%w %q", entity.ErrUnknownController, h)
	}
	return rec, nil
}

// addEntities indexes entities by id; either all are added or none.
func (r *Registry) addEntities(rec *record, entities ...entity.Entity) error {
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		id := e.Metadata().ID
		if id == "" {
			return fmt.Errorf("entity %s has no id", e.Metadata().Name)
		}
		if _, exists := r.entities[id]; exists {
			return fmt.Errorf("%w: entity id %s", ErrDuplicate, id)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("%w: entity id %s", ErrDuplicate, id)
		}
		seen[id] = struct{}{}
	}
	for _, e := range entities {
		id := e.Metadata().ID
		r.entities[id] = e
		rec.entities = append(rec.entities, id)
	}
	return nil
}

func (r *Registry) record(call string, h entity.Handle, name string) {
	r.events = append(r.events, Event{Call: call, Controller: h, Name: name})
	r.logger.Debug().Str("call", call).Str("controller", string(h)).Str("name", name).Msg("registered")
}
