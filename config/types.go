package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m". Bare integers are
// interpreted as milliseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	if value.Kind != yaml.ScalarNode {
		return nodeError(value, "duration must be a scalar")
	}
	if value.Tag == "!!int" {
		ms, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return nodeError(value, "invalid duration %q", value.Value)
		}
		d.Duration = time.Duration(ms) * time.Millisecond
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return nodeError(value, "invalid duration %q", value.Value)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return nodeError(value, "invalid duration %q", raw)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Distance is a length in meters kept as an exact decimal so that range
// checks at the 0.0 and 6.0 m bounds do not suffer from float rounding.
type Distance struct {
	meters decimal.Decimal
}

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// Meters builds a distance from a float value in meters.
func Meters(v float64) Distance {
	return Distance{meters: decimal.NewFromFloat(v)}
}

// MustParseDistance is ParseDistance for constants; it panics on malformed input.
func MustParseDistance(raw string) Distance {
	d, err := ParseDistance(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDistance parses "25cm", "6m", "6.0 m", "250mm" or a bare number of meters.
func ParseDistance(raw string) (Distance, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return Distance{}, errors.New("distance must not be empty")
	}
	divisor := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(trimmed, "mm"):
		trimmed = strings.TrimSuffix(trimmed, "mm")
		divisor = thousand
	case strings.HasSuffix(trimmed, "cm"):
		trimmed = strings.TrimSuffix(trimmed, "cm")
		divisor = hundred
	case strings.HasSuffix(trimmed, "m"):
		trimmed = strings.TrimSuffix(trimmed, "m")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(trimmed))
	if err != nil {
		return Distance{}, fmt.Errorf("invalid distance %q", raw)
	}
	return Distance{meters: value.Div(divisor)}, nil
}

// UnmarshalYAML accepts numbers (meters) and unit strings.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return errors.New("distance value node is nil")
	}
	if value.Kind != yaml.ScalarNode {
		return nodeError(value, "distance must be a scalar")
	}
	parsed, err := ParseDistance(value.Value)
	if err != nil {
		return nodeError(value, "%v", err)
	}
	*d = parsed
	return nil
}

// MarshalYAML renders the distance in meters with an explicit unit.
func (d Distance) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Meters returns the distance in meters.
func (d Distance) Meters() float64 {
	f, _ := d.meters.Float64()
	return f
}

// Decimal exposes the exact value in meters.
func (d Distance) Decimal() decimal.Decimal {
	return d.meters
}

// Within reports whether lo <= d <= hi.
func (d Distance) Within(lo, hi Distance) bool {
	return d.meters.GreaterThanOrEqual(lo.meters) && d.meters.LessThanOrEqual(hi.meters)
}

// IsZero reports whether the distance is exactly zero.
func (d Distance) IsZero() bool {
	return d.meters.IsZero()
}

func (d Distance) String() string {
	return d.meters.String() + "m"
}

// StrictString only accepts YAML string scalars; numbers and booleans are
// rejected instead of being silently stringified.
type StrictString string

// UnmarshalYAML rejects scalars that were not resolved as strings.
func (s *StrictString) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return errors.New("string value node is nil")
	}
	if value.Kind != yaml.ScalarNode || value.Tag != "!!str" {
		return nodeError(value, "expected a string, got %s", describeNode(value))
	}
	*s = StrictString(value.Value)
	return nil
}

func describeNode(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.AliasNode:
		return "an alias"
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!int", "!!float":
			return fmt.Sprintf("number %s", node.Value)
		case "!!bool":
			return fmt.Sprintf("boolean %s", node.Value)
		case "!!null":
			return "null"
		}
		return fmt.Sprintf("scalar %q", node.Value)
	default:
		return fmt.Sprintf("node kind %d", node.Kind)
	}
}

// stringValue dereferences an optional strict string.
func stringValue(s *StrictString) (string, bool) {
	if s == nil {
		return "", false
	}
	return string(*s), true
}
