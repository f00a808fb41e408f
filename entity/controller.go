package entity

import (
	"errors"
	"fmt"
	"sync"
)

// MaxTargets is the number of target slots the sensor reports.
const MaxTargets = 3

// ErrAlreadySet is returned when a controller slot is assigned twice.
var ErrAlreadySet = errors.New("entity: slot already assigned")

// Controller is the root of a compiled graph. It owns every target and zone
// and references the optional top-level entities. Everything except the
// max distance and tracking mode is read-only once compilation finished.
type Controller struct {
	ID                Handle
	Name              string
	UARTID            string
	FlipXAxis         bool
	FastOffDetection  bool
	MaxDistanceMargin float64

	Targets            []*Target
	Zones              []*Zone
	Occupancy          *BinarySensor
	TargetCount        *Sensor
	RestartButton      *Button
	FactoryResetButton *Button
	TrackingModeSwitch *TrackingModeSwitch
	MaxDistanceNumber  *MaxDistanceNumber

	// FixedMaxDistance is set when the distance was declared as a scalar.
	FixedMaxDistance *float64

	mu           sync.RWMutex
	maxDistance  *float64
	multiTarget  bool
	trackingSeen bool
}

// NewController creates an empty controller shell.
func NewController(id Handle, name string) *Controller {
	return &Controller{ID: id, Name: name}
}

// AddTarget appends a target. Targets are indexed in insertion order.
func (c *Controller) AddTarget(t *Target) error {
	if t == nil {
		return errors.New("target must not be nil")
	}
	if len(c.Targets) >= MaxTargets {
		return fmt.Errorf("controller %s: at most %d targets are supported", c.ID, MaxTargets)
	}
	if t.Index != len(c.Targets) {
		return fmt.Errorf("controller %s: target index %d out of order, expected %d", c.ID, t.Index, len(c.Targets))
	}
	c.Targets = append(c.Targets, t)
	return nil
}

// AddZone appends a zone.
func (c *Controller) AddZone(z *Zone) error {
	if z == nil {
		return errors.New("zone must not be nil")
	}
	c.Zones = append(c.Zones, z)
	return nil
}

// SetOccupancy attaches the top-level occupancy indicator.
func (c *Controller) SetOccupancy(s *BinarySensor) error {
	return assign(c, "occupancy", &c.Occupancy, s)
}

// SetTargetCount attaches the top-level target count sensor.
func (c *Controller) SetTargetCount(s *Sensor) error {
	return assign(c, "target_count", &c.TargetCount, s)
}

// SetRestartButton attaches the restart button.
func (c *Controller) SetRestartButton(b *Button) error {
	return assign(c, "restart_button", &c.RestartButton, b)
}

// SetFactoryResetButton attaches the factory reset button.
func (c *Controller) SetFactoryResetButton(b *Button) error {
	return assign(c, "factory_reset_button", &c.FactoryResetButton, b)
}

// SetTrackingModeSwitch attaches the tracking mode switch.
func (c *Controller) SetTrackingModeSwitch(s *TrackingModeSwitch) error {
	return assign(c, "tracking_mode_switch", &c.TrackingModeSwitch, s)
}

// SetMaxDistance stores the immutable max detection distance.
func (c *Controller) SetMaxDistance(meters float64) error {
	if c.FixedMaxDistance != nil || c.MaxDistanceNumber != nil {
		return fmt.Errorf("%w: controller %s max_detection_distance", ErrAlreadySet, c.ID)
	}
	if !InRange(meters, MinMaxDistance, MaxMaxDistance) {
		return fmt.Errorf("%w: max distance %.2f", ErrOutOfRange, meters)
	}
	v := meters
	c.FixedMaxDistance = &v
	c.setEffectiveMaxDistance(meters)
	return nil
}

// SetMaxDistanceNumber attaches the adjustable max distance entity and
// seeds the effective distance with its initial value.
func (c *Controller) SetMaxDistanceNumber(n *MaxDistanceNumber) error {
	if c.FixedMaxDistance != nil {
		return fmt.Errorf("%w: controller %s max_detection_distance", ErrAlreadySet, c.ID)
	}
	if err := assign(c, "max_detection_distance", &c.MaxDistanceNumber, n); err != nil {
		return err
	}
	c.setEffectiveMaxDistance(n.InitialValue)
	return nil
}

func (c *Controller) setEffectiveMaxDistance(meters float64) {
	c.mu.Lock()
	v := meters
	c.maxDistance = &v
	c.mu.Unlock()
}

// ApplyMaxDistance updates the effective max detection distance.
func (c *Controller) ApplyMaxDistance(meters float64) error {
	if !InRange(meters, MinMaxDistance, MaxMaxDistance) {
		return fmt.Errorf("%w: max distance %.2f", ErrOutOfRange, meters)
	}
	c.setEffectiveMaxDistance(meters)
	return nil
}

// EffectiveMaxDistance returns the current max detection distance, if any
// was configured.
func (c *Controller) EffectiveMaxDistance() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.maxDistance == nil {
		return 0, false
	}
	return *c.maxDistance, true
}

// ApplyTrackingMode switches between multi and single target tracking.
func (c *Controller) ApplyTrackingMode(multiTarget bool) {
	c.mu.Lock()
	c.multiTarget = multiTarget
	c.trackingSeen = true
	c.mu.Unlock()
}

// TrackingMode reports the last applied tracking mode and whether one was
// ever applied.
func (c *Controller) TrackingMode() (multiTarget bool, applied bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multiTarget, c.trackingSeen
}

// Entities lists every entity of the graph in registration order.
func (c *Controller) Entities() []Entity {
	var out []Entity
	for _, t := range c.Targets {
		for _, kind := range MeasurementKinds {
			if s := t.Measurement(kind); s != nil {
				out = append(out, s)
			}
		}
	}
	for _, z := range c.Zones {
		if z.Occupancy != nil {
			out = append(out, z.Occupancy)
		}
		if z.TargetCount != nil {
			out = append(out, z.TargetCount)
		}
	}
	if c.Occupancy != nil {
		out = append(out, c.Occupancy)
	}
	if c.TargetCount != nil {
		out = append(out, c.TargetCount)
	}
	if c.MaxDistanceNumber != nil {
		out = append(out, c.MaxDistanceNumber)
	}
	if c.RestartButton != nil {
		out = append(out, c.RestartButton)
	}
	if c.FactoryResetButton != nil {
		out = append(out, c.FactoryResetButton)
	}
	if c.TrackingModeSwitch != nil {
		out = append(out, c.TrackingModeSwitch)
	}
	return out
}

func assign[T any](c *Controller, slot string, dst **T, v *T) error {
	if v == nil {
		return fmt.Errorf("controller %s: %s must not be nil", c.ID, slot)
	}
	if *dst != nil {
		return fmt.Errorf("%w: controller %s %s", ErrAlreadySet, c.ID, slot)
	}
	*dst = v
	return nil
}
