package config

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxDistanceVariant is implemented by the two accepted shapes of
// max_detection_distance. The set is closed.
type MaxDistanceVariant interface {
	maxDistanceVariant()
}

// FixedMaxDistance is the bare scalar shape: an immutable controller setting.
type FixedMaxDistance struct {
	Value Distance
}

// AdjustableMaxDistance is the structured shape: a runtime number entity.
type AdjustableMaxDistance struct {
	EntityConfig `yaml:",inline"`
	InitialValue *Distance `yaml:"initial_value,omitempty"`
	Step         *Distance `yaml:"step,omitempty"`
	RestoreValue *bool     `yaml:"restore_value,omitempty"`
	Unit         string    `yaml:"unit_of_measurement,omitempty"`
	Mode         string    `yaml:"mode,omitempty"`
}

func (FixedMaxDistance) maxDistanceVariant()       {}
func (*AdjustableMaxDistance) maxDistanceVariant() {}

// MaxDistance holds exactly one variant, chosen by the YAML node kind.
type MaxDistance struct {
	Variant MaxDistanceVariant
}

// UnmarshalYAML dispatches scalars to FixedMaxDistance and mappings to
// AdjustableMaxDistance. Anything else is rejected.
func (m *MaxDistance) UnmarshalYAML(value *yaml.Node) error {
	const path = "ld2450.max_detection_distance"
	if value == nil {
		return &FieldError{Path: path, Msg: "value node is nil", Err: ErrAmbiguousShape}
	}
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			break
		}
		var d Distance
		if err := d.UnmarshalYAML(value); err != nil {
			return &FieldError{Path: path, Msg: decodeMessage(err), Err: ErrShape}
		}
		m.Variant = FixedMaxDistance{Value: d}
		return nil
	case yaml.MappingNode:
		var adj AdjustableMaxDistance
		if err := decodeStrict(value, &adj); err != nil {
			return &FieldError{Path: path, Msg: decodeMessage(err), Err: ErrShape}
		}
		m.Variant = &adj
		return nil
	}
	return &FieldError{
		Path: path,
		Msg:  fmt.Sprintf("line %d: expected a distance or an entity mapping, got %s", value.Line, describeNode(value)),
		Err:  ErrAmbiguousShape,
	}
}

// Fixed returns the scalar variant when present.
func (m *MaxDistance) Fixed() (FixedMaxDistance, bool) {
	if m == nil {
		return FixedMaxDistance{}, false
	}
	fixed, ok := m.Variant.(FixedMaxDistance)
	return fixed, ok
}

// Adjustable returns the entity variant when present.
func (m *MaxDistance) Adjustable() (*AdjustableMaxDistance, bool) {
	if m == nil {
		return nil, false
	}
	adj, ok := m.Variant.(*AdjustableMaxDistance)
	return adj, ok && adj != nil
}

// Initial returns the declared initial value or 6.0 m.
func (a *AdjustableMaxDistance) Initial() Distance {
	if a.InitialValue != nil {
		return *a.InitialValue
	}
	return DefaultInitialMaxDistance
}

// StepSize returns the declared step or 0.10 m.
func (a *AdjustableMaxDistance) StepSize() Distance {
	if a.Step != nil {
		return *a.Step
	}
	return DefaultMaxDistanceStep
}

// Restore reports whether the last value survives restarts (default true).
func (a *AdjustableMaxDistance) Restore() bool {
	if a.RestoreValue != nil {
		return *a.RestoreValue
	}
	return true
}

// UnitOfMeasurement returns the normalised unit, always meters when valid.
func (a *AdjustableMaxDistance) UnitOfMeasurement() string {
	unit := strings.ToLower(strings.TrimSpace(a.Unit))
	if unit == "" {
		return UnitMeter
	}
	return unit
}

// NumberMode returns the configured UI mode or "auto".
func (a *AdjustableMaxDistance) NumberMode() string {
	mode := strings.ToLower(strings.TrimSpace(a.Mode))
	if mode == "" {
		return "auto"
	}
	return mode
}

// decodeStrict decodes a node with unknown-field checking, which node.Decode
// does not propagate from the outer decoder.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("re-encode node: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}
