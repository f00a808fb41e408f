// Package homeassistant publishes compiled LD2450 entities as Home Assistant
// MQTT discovery documents and routes commands back to their controls.
package homeassistant

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/entity"
)

const (
	defaultDiscoveryPrefix = "homeassistant"
	defaultTopicPrefix     = "ld2450"
)

// Option configures an exporter.
type Option func(*Exporter) error

// WithLogger sets the logger for publish and command events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exporter) error {
		if e == nil {
			return nil
		}
		e.logger = logger
		return nil
	}
}

// WithPrefixes overrides the discovery and state topic prefixes.
func WithPrefixes(discovery, topic string) Option {
	return func(e *Exporter) error {
		if e == nil {
			return nil
		}
		if discovery = strings.Trim(discovery, "/"); discovery != "" {
			e.discoveryPrefix = discovery
		}
		if topic = strings.Trim(topic, "/"); topic != "" {
			e.topicPrefix = topic
		}
		return nil
	}
}

// WithResolver routes number and switch commands to the controls of the
// resolved controllers.
func WithResolver(r entity.Resolver) Option {
	return func(e *Exporter) error {
		if e == nil {
			return nil
		}
		if r == nil {
			return errors.New("resolver must not be nil")
		}
		e.resolver = r
		return nil
	}
}

// Exporter is a registrar that forwards every call to the next registrar
// and publishes the registered entities once the call succeeded.
type Exporter struct {
	next      entity.Registrar
	transport Transport
	resolver  entity.Resolver
	logger    zerolog.Logger

	discoveryPrefix string
	topicPrefix     string

	mu      sync.Mutex
	devices map[entity.Handle]*device
}

type device struct {
	ctrl       *entity.Controller
	discovery  []string
	commands   []string
	pressCount map[entity.ButtonAction]int
}

var (
	_ entity.Registrar = (*Exporter)(nil)
	_ entity.Remover   = (*Exporter)(nil)
)

// New wraps next so that registered entities are published over transport.
func New(next entity.Registrar, transport Transport, opts ...Option) (*Exporter, error) {
	if next == nil {
		return nil, errors.New("next registrar must not be nil")
	}
	if transport == nil {
		return nil, errors.New("transport must not be nil")
	}
	e := &Exporter{
		next:            next,
		transport:       transport,
		logger:          zerolog.Nop(),
		discoveryPrefix: defaultDiscoveryPrefix,
		topicPrefix:     defaultTopicPrefix,
		devices:         make(map[entity.Handle]*device),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// RegisterController forwards the controller and marks its device online.
func (e *Exporter) RegisterController(ctrl *entity.Controller) error {
	if err := e.next.RegisterController(ctrl); err != nil {
		return err
	}
	e.mu.Lock()
	e.devices[ctrl.ID] = &device{ctrl: ctrl, pressCount: make(map[entity.ButtonAction]int)}
	e.mu.Unlock()
	if err := e.transport.Publish(e.availabilityTopic(ctrl.ID), true, []byte(payloadOnline)); err != nil {
		e.mu.Lock()
		delete(e.devices, ctrl.ID)
		e.mu.Unlock()
		if remover, ok := e.next.(entity.Remover); ok {
			remover.Remove(ctrl.ID)
		}
		return err
	}
	return nil
}

// RegisterTarget forwards the target and publishes its measurement sensors.
func (e *Exporter) RegisterTarget(h entity.Handle, target *entity.Target) error {
	if err := e.next.RegisterTarget(h, target); err != nil {
		return err
	}
	var sensors []entity.Entity
	for _, kind := range entity.MeasurementKinds {
		if s := target.Measurement(kind); s != nil {
			sensors = append(sensors, s)
		}
	}
	return e.publish(h, sensors...)
}

// RegisterZone forwards the zone and publishes its indicators.
func (e *Exporter) RegisterZone(h entity.Handle, zone *entity.Zone) error {
	if err := e.next.RegisterZone(h, zone); err != nil {
		return err
	}
	var indicators []entity.Entity
	if zone.Occupancy != nil {
		indicators = append(indicators, zone.Occupancy)
	}
	if zone.TargetCount != nil {
		indicators = append(indicators, zone.TargetCount)
	}
	return e.publish(h, indicators...)
}

func (e *Exporter) SetOccupancyEntity(h entity.Handle, s *entity.BinarySensor) error {
	if err := e.next.SetOccupancyEntity(h, s); err != nil {
		return err
	}
	return e.publish(h, s)
}

func (e *Exporter) SetTargetCountEntity(h entity.Handle, s *entity.Sensor) error {
	if err := e.next.SetTargetCountEntity(h, s); err != nil {
		return err
	}
	return e.publish(h, s)
}

// SetMaxDistance forwards the fixed distance; it has no entity to publish.
func (e *Exporter) SetMaxDistance(h entity.Handle, meters float64) error {
	return e.next.SetMaxDistance(h, meters)
}

// SetMaxDistanceEntity publishes the number and its initial value.
func (e *Exporter) SetMaxDistanceEntity(h entity.Handle, n *entity.MaxDistanceNumber) error {
	if err := e.next.SetMaxDistanceEntity(h, n); err != nil {
		return err
	}
	if err := e.publish(h, n); err != nil {
		return err
	}
	return e.publishState(h, n, formatMeters(n.InitialValue))
}

func (e *Exporter) SetRestartButton(h entity.Handle, b *entity.Button) error {
	if err := e.next.SetRestartButton(h, b); err != nil {
		return err
	}
	return e.publish(h, b)
}

func (e *Exporter) SetFactoryResetButton(h entity.Handle, b *entity.Button) error {
	if err := e.next.SetFactoryResetButton(h, b); err != nil {
		return err
	}
	return e.publish(h, b)
}

func (e *Exporter) SetTrackingModeEntity(h entity.Handle, s *entity.TrackingModeSwitch) error {
	if err := e.next.SetTrackingModeEntity(h, s); err != nil {
		return err
	}
	return e.publish(h, s)
}

// Withdraw clears the discovery documents of a controller, drops its
// command subscriptions and marks the device offline.
func (e *Exporter) Withdraw(h entity.Handle) error {
	e.mu.Lock()
	dev, ok := e.devices[h]
	delete(e.devices, h)
	e.mu.Unlock()
	if !ok {
		return nil
	}

	var errs []error
	if err := e.transport.Unsubscribe(dev.commands...); err != nil {
		errs = append(errs, err)
	}
	for _, topic := range dev.discovery {
		if err := e.transport.Publish(topic, true, nil); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.transport.Publish(e.availabilityTopic(h), true, []byte(payloadOffline)); err != nil {
		errs = append(errs, err)
	}
	e.logger.Info().Str("controller", string(h)).Int("entities", len(dev.discovery)).Msg("home assistant discovery withdrawn")
	return errors.Join(errs...)
}

// Remove withdraws the controller from Home Assistant and from the next
// registrar when that one supports removal.
func (e *Exporter) Remove(h entity.Handle) bool {
	if err := e.Withdraw(h); err != nil {
		e.logger.Warn().Err(err).Str("controller", string(h)).Msg("failed to withdraw home assistant discovery")
	}
	if remover, ok := e.next.(entity.Remover); ok {
		return remover.Remove(h)
	}
	return false
}

// Presses reports how often a button action was pressed for a controller.
func (e *Exporter) Presses(h entity.Handle, action entity.ButtonAction) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dev, ok := e.devices[h]; ok {
		return dev.pressCount[action]
	}
	return 0
}

// Close withdraws every device and closes the transport.
func (e *Exporter) Close() error {
	e.mu.Lock()
	handles := make([]entity.Handle, 0, len(e.devices))
	for h := range e.devices {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	var errs []error
	for _, h := range handles {
		errs = append(errs, e.Withdraw(h))
	}
	e.transport.Close()
	return errors.Join(errs...)
}

func (e *Exporter) publish(h entity.Handle, entities ...entity.Entity) error {
	e.mu.Lock()
	dev, ok := e.devices[h]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %q", entity.ErrUnknownController, h)
	}

	for _, ent := range entities {
		meta := ent.Metadata()
		if meta.Internal {
			continue
		}
		t := e.topicsFor(h, ent)
		body, err := e.discoveryPayload(dev.ctrl, ent, t)
		if err != nil {
			return err
		}
		if err := e.transport.Publish(t.discovery, true, body); err != nil {
			return err
		}
		e.mu.Lock()
		dev.discovery = append(dev.discovery, t.discovery)
		e.mu.Unlock()

		if t.command != "" {
			if err := e.subscribe(h, ent, t); err != nil {
				return err
			}
			e.mu.Lock()
			dev.commands = append(dev.commands, t.command)
			e.mu.Unlock()
		}
		e.logger.Debug().
			Str("controller", string(h)).
			Str("kind", string(ent.Kind())).
			Str("name", meta.Name).
			Str("topic", t.discovery).
			Msg("home assistant discovery published")
	}
	return nil
}

func (e *Exporter) subscribe(h entity.Handle, ent entity.Entity, t topics) error {
	return e.transport.Subscribe(t.command, func(payload []byte) {
		if err := e.handleCommand(h, ent, strings.TrimSpace(string(payload))); err != nil {
			e.logger.Warn().Err(err).Str("topic", t.command).Msg("home assistant command rejected")
		}
	})
}

func (e *Exporter) handleCommand(h entity.Handle, ent entity.Entity, payload string) error {
	switch v := ent.(type) {
	case *entity.MaxDistanceNumber:
		meters, err := strconv.ParseFloat(payload, 64)
		if err != nil || math.IsNaN(meters) || math.IsInf(meters, 0) {
			return fmt.Errorf("%s: invalid number %q", v.Name, payload)
		}
		if err := v.Control(e.resolver, meters); err != nil {
			return err
		}
		return e.publishState(h, v, formatMeters(meters))
	case *entity.TrackingModeSwitch:
		var on bool
		switch strings.ToUpper(payload) {
		case payloadOn:
			on = true
		case payloadOff:
		default:
			return fmt.Errorf("%s: invalid switch payload %q", v.Name, payload)
		}
		if err := v.Write(e.resolver, on); err != nil {
			return err
		}
		state := payloadOff
		if on {
			state = payloadOn
		}
		return e.publishState(h, v, state)
	case *entity.Button:
		if payload != payloadPress {
			return fmt.Errorf("%s: invalid button payload %q", v.Name, payload)
		}
		e.mu.Lock()
		if dev, ok := e.devices[h]; ok {
			dev.pressCount[v.Action]++
		}
		e.mu.Unlock()
		e.logger.Info().Str("controller", string(h)).Str("action", string(v.Action)).Msg("button pressed")
		return nil
	}
	return fmt.Errorf("%s entities accept no commands", ent.Kind())
}

func (e *Exporter) publishState(h entity.Handle, ent entity.Entity, state string) error {
	if ent.Metadata().Internal {
		return nil
	}
	t := e.topicsFor(h, ent)
	return e.transport.Publish(t.state, true, []byte(state))
}

func formatMeters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
