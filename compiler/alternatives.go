package compiler

import (
	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
)

const maxDistancePath = "ld2450.max_detection_distance"

// resolveMaxDistance instantiates whichever shape of max_detection_distance
// was declared: a fixed controller setting or an adjustable number entity
// linked back to the controller by handle.
func (b *builder) resolveMaxDistance() error {
	md := b.cfg.MaxDetectionDistance
	if md == nil {
		return nil
	}
	if fixed, ok := md.Fixed(); ok {
		meters := fixed.Value.Meters()
		if err := b.ctrl.SetMaxDistance(meters); err != nil {
			return shapeAt(maxDistancePath, err)
		}
		b.log.Debug().Float64("meters", meters).Msg("fixed max distance set")
		return nil
	}
	adj, ok := md.Adjustable()
	if !ok {
		return &config.FieldError{Path: maxDistancePath, Msg: "expected a distance or an entity mapping", Err: ErrAmbiguousShape}
	}

	name, _ := adj.OwnName()
	number := &entity.MaxDistanceNumber{
		Meta:         b.meta(maxDistancePath, &adj.EntityConfig, name, metaDefaults{deviceClass: deviceClassDistance}),
		Min:          config.MinDistance.Meters(),
		Max:          config.MaxDistanceLimit.Meters(),
		Step:         adj.StepSize().Meters(),
		InitialValue: adj.Initial().Meters(),
		RestoreValue: adj.Restore(),
		Unit:         adj.UnitOfMeasurement(),
		Mode:         adj.NumberMode(),
		Controller:   b.ctrl.ID,
	}
	if err := b.ctrl.SetMaxDistanceNumber(number); err != nil {
		return shapeAt(maxDistancePath, err)
	}
	b.logEntity(number, maxDistancePath)
	return nil
}
