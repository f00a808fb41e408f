package compiler

import (
	"errors"
	"fmt"

	"github.com/timzifer/ld2450/config"
)

// ErrGeometry classifies zone polygons that are not convex.
var ErrGeometry = errors.New("compiler: zone polygon is not convex")

// Shape sentinels are shared with the config package so callers only need to
// import one of them.
var (
	ErrShape          = config.ErrShape
	ErrAmbiguousShape = config.ErrAmbiguousShape
)

func geometryError(path, zone string) error {
	return &config.FieldError{
		Path: path,
		Msg:  fmt.Sprintf("zone %q: polygon is not convex (and non-intersecting)", zone),
		Err:  ErrGeometry,
	}
}
