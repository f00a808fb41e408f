package processor

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/runtime/homeassistant"
	"github.com/timzifer/ld2450/runtime/registry"
	"github.com/timzifer/ld2450/telemetry"
)

// WithLogger provides a custom logger instance for the processor.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		cfg.customLogger = true
		return nil
	}
}

// WithConfigPath configures the processor to load configuration data from the provided path.
func WithConfigPath(path string, register func(ReloadFunc)) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.configPath = strings.TrimSpace(path)
		cfg.registerReload = register
		return nil
	}
}

// WithDocument supplies an already loaded configuration document.
func WithDocument(doc *config.Document) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.document = doc
		return nil
	}
}

// WithRegistry exposes compiled controllers to reg instead of a private registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if reg == nil {
			return errors.New("registry must not be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithTelemetry injects a collector instance overriding the default configuration-based behaviour.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		cfg.telemetry = collector
		cfg.telemetryProvided = true
		return nil
	}
}

// WithWatchInterval sets how often hot reload polls the configuration files.
func WithWatchInterval(interval time.Duration) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if interval <= 0 {
			return errors.New("watch interval must be positive")
		}
		cfg.watchInterval = interval
		return nil
	}
}

// WithTransport publishes Home Assistant discovery over transport instead of
// dialing the broker from the mqtt section.
func WithTransport(transport homeassistant.Transport) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if transport == nil {
			return errors.New("transport must not be nil")
		}
		cfg.transport = transport
		return nil
	}
}
