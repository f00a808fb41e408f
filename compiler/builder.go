package compiler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
	"github.com/timzifer/ld2450/geometry"
)

// Entity defaults for the sensor platforms.
const (
	deviceClassOccupancy = "occupancy"
	deviceClassDistance  = "distance"
	deviceClassSpeed     = "speed"
	deviceClassRestart   = "restart"
	stateMeasurement     = "measurement"
	categoryConfig       = "config"
	categoryDiagnostic   = "diagnostic"
	iconAngle            = "mdi:angle-acute"
	iconRestartAlert     = "mdi:restart-alert"
	iconAccountGroup     = "mdi:account-group"
)

type metaDefaults struct {
	icon        string
	deviceClass string
	category    string
}

type measurementSpec struct {
	kind        entity.MeasurementKind
	suffix      string
	unit        string
	decimals    int
	deviceClass string
	icon        string
	config      func(*config.TargetConfig) *config.MeasurementConfig
}

var measurementSpecs = []measurementSpec{
	{entity.MeasurementXPosition, SuffixXPosition, config.UnitMeter, 2, deviceClassDistance, "",
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.XPosition }},
	{entity.MeasurementYPosition, SuffixYPosition, config.UnitMeter, 2, deviceClassDistance, "",
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.YPosition }},
	{entity.MeasurementSpeed, SuffixSpeed, config.UnitMeterPerSecond, 0, deviceClassSpeed, "",
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.Speed }},
	{entity.MeasurementDistanceResolution, SuffixDistanceResolution, config.UnitMeter, 2, deviceClassDistance, "",
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.DistanceResolution }},
	{entity.MeasurementAngle, SuffixAngle, config.UnitDegrees, 0, "", iconAngle,
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.Angle }},
	{entity.MeasurementDistance, SuffixDistance, config.UnitMeter, 2, deviceClassDistance, "",
		func(t *config.TargetConfig) *config.MeasurementConfig { return t.Distance }},
}

type builder struct {
	cfg  *config.SensorConfig
	log  zerolog.Logger
	ctrl *entity.Controller
}

func newBuilder(cfg *config.SensorConfig, logger zerolog.Logger) *builder {
	return &builder{cfg: cfg, log: logger}
}

func (b *builder) build() (*entity.Controller, error) {
	b.buildShell()
	for i, entry := range b.cfg.TargetList() {
		if err := b.buildTarget(i, entry.Target); err != nil {
			return nil, err
		}
	}
	for i, entry := range b.cfg.ZoneList() {
		if err := b.buildZone(i, entry.Zone); err != nil {
			return nil, err
		}
	}
	if err := b.buildIndicators(); err != nil {
		return nil, err
	}
	if err := b.buildControls(); err != nil {
		return nil, err
	}
	return b.ctrl, nil
}

func (b *builder) buildShell() {
	name := b.cfg.DisplayName()
	ctrl := entity.NewController(controllerID(b.cfg.ID, name), name)
	ctrl.UARTID = b.cfg.UARTBus()
	ctrl.FlipXAxis = b.cfg.FlipXAxis
	ctrl.FastOffDetection = b.cfg.FastOffDetection
	ctrl.MaxDistanceMargin = b.cfg.DistanceMargin().Meters()
	b.ctrl = ctrl
	b.log.Debug().
		Str("id", string(ctrl.ID)).
		Str("name", name).
		Str("uart_id", ctrl.UARTID).
		Bool("flip_x_axis", ctrl.FlipXAxis).
		Bool("fast_off_detection", ctrl.FastOffDetection).
		Float64("max_distance_margin", ctrl.MaxDistanceMargin).
		Msg("controller built")
}

func (b *builder) buildTarget(index int, cfg *config.TargetConfig) error {
	path := fmt.Sprintf("ld2450.targets[%d].target", index)
	name := TargetName(index, optional(stringOf(cfg.Name)))
	target := &entity.Target{
		Index: index,
		ID:    entityID(b.ctrl.ID, cfg.ID, path),
		Name:  name,
		Debug: cfg.Debug,
	}
	for _, spec := range measurementSpecs {
		mc := spec.config(cfg)
		if mc == nil {
			continue
		}
		sensorPath := path + "." + string(spec.kind)
		own, ok := mc.OwnName()
		sensor := &entity.PollingSensor{
			Sensor: entity.Sensor{
				Meta: b.meta(sensorPath, &mc.EntityConfig, ResolveName(name, optional(own, ok), spec.suffix), metaDefaults{
					icon:        spec.icon,
					deviceClass: spec.deviceClass,
				}),
				Unit:             mc.UnitOr(spec.unit),
				AccuracyDecimals: mc.Decimals(spec.decimals),
				StateClass:       stateMeasurement,
			},
			Measurement:    spec.kind,
			UpdateInterval: mc.Interval(),
		}
		target.SetMeasurement(sensor)
		b.logEntity(sensor, sensorPath)
	}
	if err := b.ctrl.AddTarget(target); err != nil {
		return shapeAt(path, err)
	}
	b.log.Debug().Int("index", index).Str("id", target.ID).Str("name", name).Msg("target registered")
	return nil
}

func (b *builder) buildZone(index int, cfg *config.ZoneConfig) error {
	path := fmt.Sprintf("ld2450.zones[%d].zone", index)
	name := cfg.DisplayName()

	polygon := make(geometry.Polygon, 0, len(cfg.Polygon))
	for _, entry := range cfg.Polygon {
		polygon = append(polygon, geometry.Point{X: entry.Point.X.Meters(), Y: entry.Point.Y.Meters()})
	}
	if !polygon.IsConvex() {
		return geometryError(path+".polygon", name)
	}

	zone := &entity.Zone{
		ID:            entityID(b.ctrl.ID, cfg.ID, path),
		Name:          name,
		Margin:        cfg.MarginOrDefault().Meters(),
		TargetTimeout: cfg.Timeout(),
		Polygon:       polygon,
	}
	if cfg.Occupancy != nil {
		own, ok := cfg.Occupancy.OwnName()
		zone.Occupancy = &entity.BinarySensor{
			Meta: b.meta(path+".occupancy", cfg.Occupancy, ResolveName(name, optional(own, ok), ""), metaDefaults{
				deviceClass: deviceClassOccupancy,
			}),
		}
		b.logEntity(zone.Occupancy, path+".occupancy")
	}
	if cfg.TargetCount != nil {
		own, ok := cfg.TargetCount.OwnName()
		zone.TargetCount = &entity.Sensor{
			Meta:             b.meta(path+".target_count", &cfg.TargetCount.EntityConfig, ResolveName(name, optional(own, ok), ""), metaDefaults{}),
			AccuracyDecimals: cfg.TargetCount.Decimals(0),
		}
		b.logEntity(zone.TargetCount, path+".target_count")
	}
	if err := b.ctrl.AddZone(zone); err != nil {
		return shapeAt(path, err)
	}
	b.log.Debug().
		Str("id", zone.ID).
		Str("name", name).
		Int("points", len(polygon)).
		Float64("margin", zone.Margin).
		Dur("target_timeout", zone.TargetTimeout).
		Msg("zone registered")
	return nil
}

func (b *builder) buildIndicators() error {
	root := b.ctrl.Name
	if cfg := b.cfg.Occupancy; cfg != nil {
		own, ok := cfg.OwnName()
		sensor := &entity.BinarySensor{
			Meta: b.meta("ld2450.occupancy", cfg, TopLevelName(root, optional(own, ok), LabelOccupancy), metaDefaults{
				deviceClass: deviceClassOccupancy,
			}),
		}
		if err := b.ctrl.SetOccupancy(sensor); err != nil {
			return shapeAt("ld2450.occupancy", err)
		}
		b.logEntity(sensor, "ld2450.occupancy")
	}
	if cfg := b.cfg.TargetCount; cfg != nil {
		own, ok := cfg.OwnName()
		sensor := &entity.Sensor{
			Meta:             b.meta("ld2450.target_count", &cfg.EntityConfig, TopLevelName(root, optional(own, ok), LabelTargetCount), metaDefaults{}),
			AccuracyDecimals: cfg.Decimals(0),
		}
		if err := b.ctrl.SetTargetCount(sensor); err != nil {
			return shapeAt("ld2450.target_count", err)
		}
		b.logEntity(sensor, "ld2450.target_count")
	}
	return nil
}

func (b *builder) buildControls() error {
	if err := b.resolveMaxDistance(); err != nil {
		return err
	}
	root := b.ctrl.Name
	if cfg := b.cfg.RestartButton; cfg != nil {
		own, ok := cfg.OwnName()
		button := &entity.Button{
			Meta: b.meta("ld2450.restart_button", cfg, TopLevelName(root, optional(own, ok), LabelRestart), metaDefaults{
				deviceClass: deviceClassRestart,
				category:    categoryDiagnostic,
			}),
			Action: entity.ActionRestart,
		}
		if err := b.ctrl.SetRestartButton(button); err != nil {
			return shapeAt("ld2450.restart_button", err)
		}
		b.logEntity(button, "ld2450.restart_button")
	}
	if cfg := b.cfg.FactoryResetButton; cfg != nil {
		own, ok := cfg.OwnName()
		button := &entity.Button{
			Meta: b.meta("ld2450.factory_reset_button", cfg, TopLevelName(root, optional(own, ok), LabelFactoryReset), metaDefaults{
				icon:     iconRestartAlert,
				category: categoryConfig,
			}),
			Action: entity.ActionFactoryReset,
		}
		if err := b.ctrl.SetFactoryResetButton(button); err != nil {
			return shapeAt("ld2450.factory_reset_button", err)
		}
		b.logEntity(button, "ld2450.factory_reset_button")
	}
	if cfg := b.cfg.TrackingModeSwitch; cfg != nil {
		own, ok := cfg.OwnName()
		sw := &entity.TrackingModeSwitch{
			Meta: b.meta("ld2450.tracking_mode_switch", &cfg.EntityConfig, TopLevelName(root, optional(own, ok), LabelTrackingMode), metaDefaults{
				icon:     iconAccountGroup,
				category: categoryConfig,
			}),
			Inverted:   cfg.Inverted,
			Controller: b.ctrl.ID,
		}
		if err := b.ctrl.SetTrackingModeSwitch(sw); err != nil {
			return shapeAt("ld2450.tracking_mode_switch", err)
		}
		b.logEntity(sw, "ld2450.tracking_mode_switch")
	}
	return nil
}

func (b *builder) meta(path string, cfg *config.EntityConfig, name string, defaults metaDefaults) entity.Meta {
	return entity.Meta{
		ID:                entityID(b.ctrl.ID, cfg.ID, path),
		Name:              name,
		Icon:              firstNonEmpty(cfg.Icon, defaults.icon),
		DeviceClass:       firstNonEmpty(cfg.DeviceClass, defaults.deviceClass),
		EntityCategory:    firstNonEmpty(strings.ToLower(cfg.EntityCategory), defaults.category),
		Internal:          cfg.Internal,
		DisabledByDefault: cfg.DisabledByDefault,
	}
}

func (b *builder) logEntity(e entity.Entity, path string) {
	meta := e.Metadata()
	b.log.Debug().
		Str("kind", string(e.Kind())).
		Str("path", path).
		Str("id", meta.ID).
		Str("name", meta.Name).
		Msg("entity built")
}

func shapeAt(path string, err error) error {
	return &config.FieldError{Path: path, Msg: err.Error(), Err: ErrShape}
}

func stringOf(s *config.StrictString) (string, bool) {
	if s == nil {
		return "", false
	}
	return string(*s), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
