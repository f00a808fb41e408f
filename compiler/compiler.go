// Package compiler turns a validated sensor declaration into an entity graph
// rooted at a single controller and exposes it to a runtime registrar.
package compiler

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
)

// Option configures a compilation.
type Option func(*settings) error

type settings struct {
	logger    zerolog.Logger
	registrar entity.Registrar
}

// WithLogger provides a logger for build events.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithRegistrar exposes the graph to reg once it was built without error.
func WithRegistrar(reg entity.Registrar) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if reg == nil {
			return errors.New("registrar must not be nil")
		}
		cfg.registrar = reg
		return nil
	}
}

// Compile validates the declaration and builds its entity graph in a single
// pass. Either the whole graph is returned or an error and no graph.
func Compile(cfg *config.SensorConfig, opts ...Option) (*entity.Controller, error) {
	s := settings{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&s); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		return nil, &config.FieldError{Path: "ld2450", Msg: "required", Err: ErrShape}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := newBuilder(cfg, s.logger)
	ctrl, err := b.build()
	if err != nil {
		s.logger.Error().Err(err).Str("controller", cfg.DisplayName()).Msg("compilation failed")
		return nil, err
	}

	s.logger.Info().
		Str("controller", ctrl.Name).
		Str("id", string(ctrl.ID)).
		Int("targets", len(ctrl.Targets)).
		Int("zones", len(ctrl.Zones)).
		Int("entities", len(ctrl.Entities())).
		Msg("compiled ld2450 configuration")

	if s.registrar != nil {
		if err := Expose(ctrl, s.registrar); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}

// CompileDocument compiles the ld2450 section of a loaded document.
func CompileDocument(doc *config.Document, opts ...Option) (*entity.Controller, error) {
	if doc == nil {
		return nil, fmt.Errorf("compile: %w", &config.FieldError{Path: "ld2450", Msg: "required", Err: ErrShape})
	}
	return Compile(doc.LD2450, opts...)
}
