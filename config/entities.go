package config

// EntityConfig carries the keys shared by every published entity.
type EntityConfig struct {
	ID                string        `yaml:"id,omitempty"`
	Name              *StrictString `yaml:"name,omitempty"`
	Icon              string        `yaml:"icon,omitempty"`
	DeviceClass       string        `yaml:"device_class,omitempty"`
	EntityCategory    string        `yaml:"entity_category,omitempty"`
	Internal          bool          `yaml:"internal,omitempty"`
	DisabledByDefault bool          `yaml:"disabled_by_default,omitempty"`
}

// SensorEntityConfig configures a numeric sensor.
type SensorEntityConfig struct {
	EntityConfig     `yaml:",inline"`
	AccuracyDecimals *int `yaml:"accuracy_decimals,omitempty"`
}

// MeasurementConfig configures one of a target's polling measurement sensors.
type MeasurementConfig struct {
	SensorEntityConfig `yaml:",inline"`
	Unit               string    `yaml:"unit_of_measurement,omitempty"`
	UpdateInterval     *Duration `yaml:"update_interval,omitempty"`
}

// SwitchConfig configures the tracking mode switch.
type SwitchConfig struct {
	EntityConfig `yaml:",inline"`
	Inverted     bool `yaml:"inverted,omitempty"`
}

// TargetEntry is one element of the targets list.
type TargetEntry struct {
	Target *TargetConfig `yaml:"target"`
}

// TargetConfig declares one tracked target slot and its measurement sensors.
type TargetConfig struct {
	ID                 string             `yaml:"id,omitempty"`
	Name               *StrictString      `yaml:"name,omitempty"`
	Debug              bool               `yaml:"debug,omitempty"`
	XPosition          *MeasurementConfig `yaml:"x_position,omitempty"`
	YPosition          *MeasurementConfig `yaml:"y_position,omitempty"`
	Speed              *MeasurementConfig `yaml:"speed,omitempty"`
	Distance           *MeasurementConfig `yaml:"distance,omitempty"`
	DistanceResolution *MeasurementConfig `yaml:"distance_resolution,omitempty"`
	Angle              *MeasurementConfig `yaml:"angle,omitempty"`
}

// PointEntry is one element of a zone polygon.
type PointEntry struct {
	Point *PointConfig `yaml:"point"`
}

// PointConfig is a polygon vertex in sensor coordinates.
type PointConfig struct {
	X *Distance `yaml:"x"`
	Y *Distance `yaml:"y"`
}

// ZoneEntry is one element of the zones list.
type ZoneEntry struct {
	Zone *ZoneConfig `yaml:"zone"`
}

// ZoneConfig declares a convex tracking zone.
type ZoneConfig struct {
	ID            string              `yaml:"id,omitempty"`
	Name          *StrictString       `yaml:"name"`
	Margin        *Distance           `yaml:"margin,omitempty"`
	TargetTimeout *Duration           `yaml:"target_timeout,omitempty"`
	Polygon       []PointEntry        `yaml:"polygon"`
	Occupancy     *EntityConfig       `yaml:"occupancy,omitempty"`
	TargetCount   *SensorEntityConfig `yaml:"target_count,omitempty"`
}

// SensorConfig is the ld2450 component declaration.
type SensorConfig struct {
	ID                   string              `yaml:"id,omitempty"`
	Name                 *StrictString       `yaml:"name,omitempty"`
	UARTID               string              `yaml:"uart_id,omitempty"`
	FlipXAxis            bool                `yaml:"flip_x_axis,omitempty"`
	FastOffDetection     bool                `yaml:"fast_off_detection,omitempty"`
	MaxDetectionDistance *MaxDistance        `yaml:"max_detection_distance,omitempty"`
	MaxDistanceMargin    *Distance           `yaml:"max_distance_margin,omitempty"`
	Occupancy            *EntityConfig       `yaml:"occupancy,omitempty"`
	TargetCount          *SensorEntityConfig `yaml:"target_count,omitempty"`
	RestartButton        *EntityConfig       `yaml:"restart_button,omitempty"`
	FactoryResetButton   *EntityConfig       `yaml:"factory_reset_button,omitempty"`
	TrackingModeSwitch   *SwitchConfig       `yaml:"tracking_mode_switch,omitempty"`
	Targets              *[]TargetEntry      `yaml:"targets,omitempty"`
	Zones                *[]ZoneEntry        `yaml:"zones,omitempty"`
}
