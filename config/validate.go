package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var entityCategories = map[string]struct{}{"": {}, "config": {}, "diagnostic": {}}

var numberModes = map[string]struct{}{"auto": {}, "box": {}, "slider": {}}

type validator struct {
	errs []error
	ids  map[string]string
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, shapeError(path, format, args...))
}

// Validate checks the shape of the whole declaration. It reports every
// violation it finds, in declaration order, joined into one error.
func (d *Document) Validate() error {
	if d == nil || d.LD2450 == nil {
		return shapeError("ld2450", "required")
	}
	return errors.Join(d.LD2450.Validate(), d.MQTT.Validate())
}

// Validate checks the broker settings when discovery is enabled.
func (m MQTTConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	v := &validator{}
	if strings.TrimSpace(m.Broker) == "" {
		v.fail("mqtt.broker", "required when mqtt is enabled")
	}
	if m.QoS != nil && (*m.QoS < 0 || *m.QoS > 2) {
		v.fail("mqtt.qos", "must be 0, 1 or 2, got %d", *m.QoS)
	}
	if m.KeepAlive != nil && m.KeepAlive.Duration < 0 {
		v.fail("mqtt.keep_alive", "must not be negative")
	}
	if m.ConnectTimeout != nil && m.ConnectTimeout.Duration <= 0 {
		v.fail("mqtt.connect_timeout", "must be positive")
	}
	if m.TLS != nil && (m.TLS.CertFile == "") != (m.TLS.KeyFile == "") {
		v.fail("mqtt.tls", "cert_file and key_file must be set together")
	}
	return errors.Join(v.errs...)
}

// Validate checks the shape of the component declaration.
func (c *SensorConfig) Validate() error {
	v := &validator{ids: make(map[string]string)}
	v.sensor("ld2450", c)
	return errors.Join(v.errs...)
}

func (v *validator) sensor(path string, c *SensorConfig) {
	v.id(path+".id", c.ID)
	if name, ok := stringValue(c.Name); ok && strings.TrimSpace(name) == "" {
		v.fail(path+".name", "must not be empty")
	}
	if c.UARTID != "" {
		if err := ensureIdentifier(c.UARTID, "uart_id"); err != nil {
			v.fail(path+".uart_id", "%v", err)
		}
	}

	v.distanceRange(path+".max_distance_margin", c.MaxDistanceMargin)
	v.maxDistance(path+".max_detection_distance", c.MaxDetectionDistance)

	if c.Targets != nil {
		targets := *c.Targets
		switch {
		case len(targets) == 0:
			v.fail(path+".targets", "at least 1 target is required")
		case len(targets) > MaxTargets:
			v.fail(path+".targets", "at most %d targets are supported, got %d", MaxTargets, len(targets))
		}
		for i := range targets {
			v.target(fmt.Sprintf("%s.targets[%d].target", path, i), targets[i].Target)
		}
	}

	if c.Zones != nil {
		zones := *c.Zones
		if len(zones) == 0 {
			v.fail(path+".zones", "at least 1 zone is required")
		}
		for i := range zones {
			v.zone(fmt.Sprintf("%s.zones[%d].zone", path, i), zones[i].Zone)
		}
	}

	if c.Occupancy != nil {
		v.entity(path+".occupancy", c.Occupancy)
	}
	if c.TargetCount != nil {
		v.sensorEntity(path+".target_count", c.TargetCount)
	}
	if c.RestartButton != nil {
		v.entity(path+".restart_button", c.RestartButton)
	}
	if c.FactoryResetButton != nil {
		v.entity(path+".factory_reset_button", c.FactoryResetButton)
	}
	if c.TrackingModeSwitch != nil {
		v.entity(path+".tracking_mode_switch", &c.TrackingModeSwitch.EntityConfig)
	}
}

func (v *validator) target(path string, t *TargetConfig) {
	if t == nil {
		v.fail(path, "required")
		return
	}
	v.id(path+".id", t.ID)
	if name, ok := stringValue(t.Name); ok && strings.TrimSpace(name) == "" {
		v.fail(path+".name", "must not be empty")
	}
	distanceUnits := []string{UnitMeter, UnitCentimeter}
	v.measurement(path+".x_position", t.XPosition, distanceUnits)
	v.measurement(path+".y_position", t.YPosition, distanceUnits)
	v.measurement(path+".speed", t.Speed, []string{UnitMeterPerSecond})
	v.measurement(path+".distance", t.Distance, distanceUnits)
	v.measurement(path+".distance_resolution", t.DistanceResolution, distanceUnits)
	v.measurement(path+".angle", t.Angle, []string{UnitDegrees})
}

func (v *validator) measurement(path string, m *MeasurementConfig, units []string) {
	if m == nil {
		return
	}
	v.sensorEntity(path, &m.SensorEntityConfig)
	if m.Unit != "" && !containsString(units, m.Unit) {
		v.fail(path+".unit_of_measurement", "unknown value %q, valid options are %s", m.Unit, quoteAll(units))
	}
	if m.UpdateInterval != nil && m.UpdateInterval.Duration <= 0 {
		v.fail(path+".update_interval", "must be positive, got %s", m.UpdateInterval.Duration)
	}
}

func (v *validator) zone(path string, z *ZoneConfig) {
	if z == nil {
		v.fail(path, "required")
		return
	}
	v.id(path+".id", z.ID)
	if name, ok := stringValue(z.Name); !ok {
		v.fail(path+".name", "required")
	} else if strings.TrimSpace(name) == "" {
		v.fail(path+".name", "must not be empty")
	}
	v.distanceRange(path+".margin", z.Margin)
	if z.TargetTimeout != nil && z.TargetTimeout.Duration < 0 {
		v.fail(path+".target_timeout", "must not be negative, got %s", z.TargetTimeout.Duration)
	}
	if z.Polygon == nil {
		v.fail(path+".polygon", "required")
	} else if len(z.Polygon) < MinPolygonPoints {
		v.fail(path+".polygon", "at least %d points are required, got %d", MinPolygonPoints, len(z.Polygon))
	}
	for i, entry := range z.Polygon {
		pointPath := fmt.Sprintf("%s.polygon[%d].point", path, i)
		if entry.Point == nil {
			v.fail(pointPath, "required")
			continue
		}
		if entry.Point.X == nil {
			v.fail(pointPath+".x", "required")
		}
		if entry.Point.Y == nil {
			v.fail(pointPath+".y", "required")
		}
	}
	if z.Occupancy != nil {
		v.entity(path+".occupancy", z.Occupancy)
	}
	if z.TargetCount != nil {
		v.sensorEntity(path+".target_count", z.TargetCount)
	}
}

func (v *validator) maxDistance(path string, m *MaxDistance) {
	if m == nil {
		return
	}
	if fixed, ok := m.Fixed(); ok {
		v.distanceValue(path, fixed.Value)
		return
	}
	adj, ok := m.Adjustable()
	if !ok {
		v.errs = append(v.errs, &FieldError{Path: path, Msg: "expected a distance or an entity mapping", Err: ErrAmbiguousShape})
		return
	}
	v.entity(path, &adj.EntityConfig)
	if name, ok := stringValue(adj.Name); !ok {
		v.fail(path+".name", "required")
	} else if strings.TrimSpace(name) == "" {
		v.fail(path+".name", "must not be empty")
	}
	v.distanceRange(path+".initial_value", adj.InitialValue)
	v.distanceRange(path+".step", adj.Step)
	if adj.Step != nil && adj.Step.IsZero() {
		v.fail(path+".step", "must be greater than 0")
	}
	if unit := adj.UnitOfMeasurement(); unit != UnitMeter {
		v.fail(path+".unit_of_measurement", "unknown value %q, valid options are %q", adj.Unit, UnitMeter)
	}
	if _, ok := numberModes[adj.NumberMode()]; !ok {
		v.fail(path+".mode", "unknown value %q, valid options are \"auto\", \"box\", \"slider\"", adj.Mode)
	}
}

func (v *validator) entity(path string, e *EntityConfig) {
	v.id(path+".id", e.ID)
	if _, ok := entityCategories[strings.ToLower(e.EntityCategory)]; !ok {
		v.fail(path+".entity_category", "unknown value %q, valid options are \"config\", \"diagnostic\"", e.EntityCategory)
	}
}

func (v *validator) sensorEntity(path string, s *SensorEntityConfig) {
	v.entity(path, &s.EntityConfig)
	if s.AccuracyDecimals != nil && *s.AccuracyDecimals < 0 {
		v.fail(path+".accuracy_decimals", "must not be negative, got %d", *s.AccuracyDecimals)
	}
}

func (v *validator) distanceRange(path string, d *Distance) {
	if d == nil {
		return
	}
	v.distanceValue(path, *d)
}

func (v *validator) distanceValue(path string, d Distance) {
	if !d.Within(MinDistance, MaxDistanceLimit) {
		v.fail(path, "value %s must be in range [%s, %s]", d, MinDistance, MaxDistanceLimit)
	}
}

func (v *validator) id(path, id string) {
	if id == "" {
		return
	}
	if err := ensureIdentifier(id, "id"); err != nil {
		v.fail(path, "%v", err)
		return
	}
	if first, ok := v.ids[id]; ok {
		v.fail(path, "id %q already declared at %s", id, first)
		return
	}
	v.ids[id] = path
}

func ensureIdentifier(value, kind string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s identifier must not be empty", kind)
	}
	for idx, r := range trimmed {
		if idx == 0 && unicode.IsDigit(r) {
			return fmt.Errorf("%s %q must not start with a digit", kind, trimmed)
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return fmt.Errorf("%s %q contains invalid character %q", kind, trimmed, r)
		}
	}
	return nil
}

func containsString(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
