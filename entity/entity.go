// Package entity defines the object graph produced by compiling a sensor
// declaration: the controller, its targets and zones, and the sensor,
// button, switch and number entities attached to them.
package entity

import (
	"time"

	"github.com/timzifer/ld2450/geometry"
)

// Kind identifies the entity platform an entity is published on.
type Kind string

const (
	KindSensor       Kind = "sensor"
	KindBinarySensor Kind = "binary_sensor"
	KindButton       Kind = "button"
	KindSwitch       Kind = "switch"
	KindNumber       Kind = "number"
)

// Meta carries the attributes shared by every published entity.
type Meta struct {
	ID                string
	Name              string
	Icon              string
	DeviceClass       string
	EntityCategory    string
	Internal          bool
	DisabledByDefault bool
}

// Entity is implemented by every publishable entity in the graph.
type Entity interface {
	Kind() Kind
	Metadata() Meta
}

// Sensor is a numeric sensor such as a target count.
type Sensor struct {
	Meta
	Unit             string
	AccuracyDecimals int
	StateClass       string
}

func (*Sensor) Kind() Kind       { return KindSensor }
func (s *Sensor) Metadata() Meta { return s.Meta }

// BinarySensor is an on/off indicator such as zone occupancy.
type BinarySensor struct {
	Meta
}

func (*BinarySensor) Kind() Kind       { return KindBinarySensor }
func (b *BinarySensor) Metadata() Meta { return b.Meta }

// MeasurementKind names one of the per-target measurement sensors.
type MeasurementKind string

const (
	MeasurementXPosition          MeasurementKind = "x_position"
	MeasurementYPosition          MeasurementKind = "y_position"
	MeasurementSpeed              MeasurementKind = "speed"
	MeasurementDistance           MeasurementKind = "distance"
	MeasurementDistanceResolution MeasurementKind = "distance_resolution"
	MeasurementAngle              MeasurementKind = "angle"
)

// MeasurementKinds lists the measurement sensors in publication order.
var MeasurementKinds = []MeasurementKind{
	MeasurementXPosition,
	MeasurementYPosition,
	MeasurementSpeed,
	MeasurementDistanceResolution,
	MeasurementAngle,
	MeasurementDistance,
}

// PollingSensor is a target measurement published at a fixed interval.
type PollingSensor struct {
	Sensor
	Measurement    MeasurementKind
	UpdateInterval time.Duration
}

// ButtonAction is the command a button sends to the sensor.
type ButtonAction string

const (
	ActionRestart      ButtonAction = "restart"
	ActionFactoryReset ButtonAction = "factory_reset"
)

// Button triggers a one-shot command.
type Button struct {
	Meta
	Action ButtonAction
}

func (*Button) Kind() Kind       { return KindButton }
func (b *Button) Metadata() Meta { return b.Meta }

// Target is one of the tracked target slots of the sensor.
type Target struct {
	Index              int
	ID                 string
	Name               string
	Debug              bool
	XPosition          *PollingSensor
	YPosition          *PollingSensor
	Speed              *PollingSensor
	Distance           *PollingSensor
	DistanceResolution *PollingSensor
	Angle              *PollingSensor
}

// Measurement returns the measurement sensor of the given kind, or nil.
func (t *Target) Measurement(kind MeasurementKind) *PollingSensor {
	switch kind {
	case MeasurementXPosition:
		return t.XPosition
	case MeasurementYPosition:
		return t.YPosition
	case MeasurementSpeed:
		return t.Speed
	case MeasurementDistance:
		return t.Distance
	case MeasurementDistanceResolution:
		return t.DistanceResolution
	case MeasurementAngle:
		return t.Angle
	}
	return nil
}

// SetMeasurement attaches a measurement sensor to its slot.
func (t *Target) SetMeasurement(s *PollingSensor) {
	switch s.Measurement {
	case MeasurementXPosition:
		t.XPosition = s
	case MeasurementYPosition:
		t.YPosition = s
	case MeasurementSpeed:
		t.Speed = s
	case MeasurementDistance:
		t.Distance = s
	case MeasurementDistanceResolution:
		t.DistanceResolution = s
	case MeasurementAngle:
		t.Angle = s
	}
}

// Zone is a convex region tracked for occupancy.
type Zone struct {
	ID            string
	Name          string
	Margin        float64
	TargetTimeout time.Duration
	Polygon       geometry.Polygon
	Occupancy     *BinarySensor
	TargetCount   *Sensor
}
