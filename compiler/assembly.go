package compiler

import (
	"errors"
	"fmt"

	"github.com/timzifer/ld2450/entity"
)

// Expose hands a fully built graph to the runtime registrar. The controller
// is registered first, followed by its targets and zones in declaration
// order and then the optional top-level entities. The first failing call
// aborts the exposure. When the controller itself was accepted and a later
// call fails, registrars implementing entity.Remover drop it again so no
// partial graph stays registered.
func Expose(ctrl *entity.Controller, reg entity.Registrar) error {
	if ctrl == nil {
		return errors.New("controller must not be nil")
	}
	if reg == nil {
		return errors.New("registrar must not be nil")
	}
	h := ctrl.ID
	wrap := func(step string, err error) error {
		return fmt.Errorf("expose controller %s: %s: %w", h, step, err)
	}

	if err := reg.RegisterController(ctrl); err != nil {
		return wrap("register controller", err)
	}
	if err := exposeEntities(ctrl, reg, wrap); err != nil {
		if remover, ok := reg.(entity.Remover); ok {
			remover.Remove(h)
		}
		return err
	}
	return nil
}

func exposeEntities(ctrl *entity.Controller, reg entity.Registrar, wrap func(string, error) error) error {
	h := ctrl.ID
	for _, t := range ctrl.Targets {
		if err := reg.RegisterTarget(h, t); err != nil {
			return wrap(fmt.Sprintf("register target %d", t.Index), err)
		}
	}
	for i, z := range ctrl.Zones {
		if err := reg.RegisterZone(h, z); err != nil {
			return wrap(fmt.Sprintf("register zone %d", i), err)
		}
	}
	if ctrl.Occupancy != nil {
		if err := reg.SetOccupancyEntity(h, ctrl.Occupancy); err != nil {
			return wrap("set occupancy entity", err)
		}
	}
	if ctrl.TargetCount != nil {
		if err := reg.SetTargetCountEntity(h, ctrl.TargetCount); err != nil {
			return wrap("set target count entity", err)
		}
	}
	if ctrl.FixedMaxDistance != nil {
		if err := reg.SetMaxDistance(h, *ctrl.FixedMaxDistance); err != nil {
			return wrap("set max distance", err)
		}
	}
	if ctrl.MaxDistanceNumber != nil {
		if err := reg.SetMaxDistanceEntity(h, ctrl.MaxDistanceNumber); err != nil {
			return wrap("set max distance entity", err)
		}
	}
	if ctrl.RestartButton != nil {
		if err := reg.SetRestartButton(h, ctrl.RestartButton); err != nil {
			return wrap("set restart button", err)
		}
	}
	if ctrl.FactoryResetButton != nil {
		if err := reg.SetFactoryResetButton(h, ctrl.FactoryResetButton); err != nil {
			return wrap("set factory reset button", err)
		}
	}
	if ctrl.TrackingModeSwitch != nil {
		if err := reg.SetTrackingModeEntity(h, ctrl.TrackingModeSwitch); err != nil {
			return wrap("set tracking mode entity", err)
		}
	}
	return nil
}
