package entity

import (
	"errors"
	"fmt"
)

// Distance bounds enforced for the max detection distance in both its fixed
// and adjustable form.
const (
	MinMaxDistance = 0.0
	MaxMaxDistance = 6.0
)

var (
	// ErrOutOfRange is returned when a control receives a value outside its bounds.
	ErrOutOfRange = errors.New("entity: value out of range")
	// ErrUnknownController is returned when a handle does not resolve.
	ErrUnknownController = errors.New("entity: unknown controller")
)

// InRange reports whether v lies within [lo, hi]. NaN is never in range.
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Handle refers to a controller without holding it.
type Handle string

// Resolver looks up controllers by handle.
type Resolver interface {
	Resolve(Handle) (*Controller, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(Handle) (*Controller, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(h Handle) (*Controller, bool) {
	return f(h)
}

func resolve(r Resolver, h Handle) (*Controller, error) {
	if r == nil {
		return nil, fmt.Errorf("%w %q: no resolver", ErrUnknownController, h)
	}
	ctrl, ok := r.Resolve(h)
	if !ok || ctrl == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownController, h)
	}
	return ctrl, nil
}

// MaxDistanceNumber is the runtime-adjustable max detection distance.
type MaxDistanceNumber struct {
	Meta
	Min          float64
	Max          float64
	Step         float64
	InitialValue float64
	RestoreValue bool
	Unit         string
	Mode         string
	Controller   Handle
}

func (*MaxDistanceNumber) Kind() Kind       { return KindNumber }
func (n *MaxDistanceNumber) Metadata() Meta { return n.Meta }

// Control applies a new value to the linked controller.
func (n *MaxDistanceNumber) Control(r Resolver, meters float64) error {
	if !InRange(meters, n.Min, n.Max) {
		return fmt.Errorf("%w: %s %.2f not in [%.2f, %.2f]", ErrOutOfRange, n.Name, meters, n.Min, n.Max)
	}
	ctrl, err := resolve(r, n.Controller)
	if err != nil {
		return err
	}
	return ctrl.ApplyMaxDistance(meters)
}

// TrackingModeSwitch selects single or multi target tracking.
type TrackingModeSwitch struct {
	Meta
	Inverted   bool
	Controller Handle
}

func (*TrackingModeSwitch) Kind() Kind       { return KindSwitch }
func (s *TrackingModeSwitch) Metadata() Meta { return s.Meta }

// Write applies the switch state to the linked controller. On means multi
// target tracking unless the switch is inverted.
func (s *TrackingModeSwitch) Write(r Resolver, on bool) error {
	ctrl, err := resolve(r, s.Controller)
	if err != nil {
		return err
	}
	ctrl.ApplyTrackingMode(on != s.Inverted)
	return nil
}
