package config

import (
	"errors"
	"fmt"
)

// ErrShape classifies declaration-shape violations: wrong cardinality,
// missing required fields, out-of-range scalars, unknown keys.
var ErrShape = errors.New("config: invalid declaration shape")

// ErrAmbiguousShape is returned when a setting with alternative shapes was
// supplied in neither recognised shape.
var ErrAmbiguousShape = errors.New("config: setting matches no accepted shape")

// FieldError reports a problem at a field path such as
// "ld2450.zones[0].zone.margin". It unwraps to its classification sentinel.
type FieldError struct {
	Path string
	Msg  string
	Err  error
}

func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func shapeError(path, format string, args ...any) *FieldError {
	return &FieldError{Path: path, Msg: fmt.Sprintf(format, args...), Err: ErrShape}
}

// FieldErrors flattens a (possibly joined) error into its field errors.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}
	var out []*FieldError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	walk(err)
	return out
}
