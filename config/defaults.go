package config

import (
	"strings"
	"time"
)

const (
	// DefaultName is the root display name when none is declared.
	DefaultName = "LD2450"
	// DefaultUARTID references the UART bus the sensor is attached to.
	DefaultUARTID = "uart_bus"
	// MaxTargets is the number of targets the hardware reports at once.
	MaxTargets = 3
	// MinPolygonPoints is the smallest polygon a zone may declare.
	MinPolygonPoints = 3

	// DefaultTargetTimeout keeps a zone occupied after its last target left.
	DefaultTargetTimeout = 5 * time.Second
	// DefaultUpdateInterval is the polling interval of measurement sensors.
	DefaultUpdateInterval = time.Second

	UnitMeter          = "m"
	UnitCentimeter     = "cm"
	UnitMeterPerSecond = "m/s"
	UnitDegrees        = "°"
)

var (
	// MinDistance and MaxDistanceLimit bound every configurable distance.
	MinDistance      = MustParseDistance("0m")
	MaxDistanceLimit = MustParseDistance("6m")

	DefaultZoneMargin         = MustParseDistance("25cm")
	DefaultMaxDistanceMargin  = MustParseDistance("25cm")
	DefaultInitialMaxDistance = MustParseDistance("6m")
	DefaultMaxDistanceStep    = MustParseDistance("10cm")
)

// DisplayName returns the declared root name or "LD2450".
func (c *SensorConfig) DisplayName() string {
	if name, ok := stringValue(c.Name); ok {
		return name
	}
	return DefaultName
}

// UARTBus returns the referenced UART id.
func (c *SensorConfig) UARTBus() string {
	if id := strings.TrimSpace(c.UARTID); id != "" {
		return id
	}
	return DefaultUARTID
}

// DistanceMargin returns max_distance_margin or its default.
func (c *SensorConfig) DistanceMargin() Distance {
	if c.MaxDistanceMargin != nil {
		return *c.MaxDistanceMargin
	}
	return DefaultMaxDistanceMargin
}

// TargetList returns the declared targets, nil when the key is absent.
func (c *SensorConfig) TargetList() []TargetEntry {
	if c.Targets == nil {
		return nil
	}
	return *c.Targets
}

// ZoneList returns the declared zones, nil when the key is absent.
func (c *SensorConfig) ZoneList() []ZoneEntry {
	if c.Zones == nil {
		return nil
	}
	return *c.Zones
}

// DisplayName returns the zone name.
func (z *ZoneConfig) DisplayName() string {
	name, _ := stringValue(z.Name)
	return name
}

// MarginOrDefault returns the zone margin or 25 cm.
func (z *ZoneConfig) MarginOrDefault() Distance {
	if z.Margin != nil {
		return *z.Margin
	}
	return DefaultZoneMargin
}

// Timeout returns the zone target timeout or 5 s.
func (z *ZoneConfig) Timeout() time.Duration {
	if z.TargetTimeout != nil {
		return z.TargetTimeout.Duration
	}
	return DefaultTargetTimeout
}

// Interval returns the polling interval or 1 s.
func (m *MeasurementConfig) Interval() time.Duration {
	if m.UpdateInterval != nil {
		return m.UpdateInterval.Duration
	}
	return DefaultUpdateInterval
}

// UnitOr returns the declared unit or the provided default.
func (m *MeasurementConfig) UnitOr(def string) string {
	if unit := strings.TrimSpace(m.Unit); unit != "" {
		return unit
	}
	return def
}

// Decimals returns accuracy_decimals or the provided default.
func (s *SensorEntityConfig) Decimals(def int) int {
	if s.AccuracyDecimals != nil {
		return *s.AccuracyDecimals
	}
	return def
}

// OwnName returns the declared name and whether it was set.
func (e *EntityConfig) OwnName() (string, bool) {
	return stringValue(e.Name)
}
