package entity

// Registrar is the registration interface of the runtime that publishes a
// compiled graph. Calls arrive in a fixed order: the controller first, then
// its targets and zones, then the optional top-level entities.
type Registrar interface {
	RegisterController(ctrl *Controller) error
	RegisterTarget(ctrl Handle, target *Target) error
	RegisterZone(ctrl Handle, zone *Zone) error
	SetOccupancyEntity(ctrl Handle, sensor *BinarySensor) error
	SetTargetCountEntity(ctrl Handle, sensor *Sensor) error
	SetMaxDistance(ctrl Handle, meters float64) error
	SetMaxDistanceEntity(ctrl Handle, number *MaxDistanceNumber) error
	SetRestartButton(ctrl Handle, button *Button) error
	SetFactoryResetButton(ctrl Handle, button *Button) error
	SetTrackingModeEntity(ctrl Handle, sw *TrackingModeSwitch) error
}

// Remover is implemented by registrars that can drop a registered
// controller together with its entities.
type Remover interface {
	Remove(ctrl Handle) bool
}
