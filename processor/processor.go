// Package processor keeps a compiled LD2450 controller exposed in a registry
// and recompiles it whenever the configuration changes.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/ld2450/compiler"
	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
	"github.com/timzifer/ld2450/internal/logging"
	"github.com/timzifer/ld2450/internal/reload"
	"github.com/timzifer/ld2450/runtime/homeassistant"
	"github.com/timzifer/ld2450/runtime/registry"
	"github.com/timzifer/ld2450/telemetry"
)

// ReloadFunc represents a function that reloads the processor configuration.
type ReloadFunc func(ctx context.Context) error

// Option configures the processor during construction.
type Option func(*settings) error

const defaultWatchInterval = time.Second

type settings struct {
	document          *config.Document
	configPath        string
	registerReload    func(ReloadFunc)
	logger            zerolog.Logger
	customLogger      bool
	telemetry         telemetry.Collector
	telemetryProvided bool
	registry          *registry.Registry
	transport         homeassistant.Transport
	watchInterval     time.Duration
}

// Processor compiles the configured sensor, exposes it to a registry and
// swaps the exposed graph on reload.
type Processor struct {
	mu sync.Mutex

	document   *config.Document
	configPath string

	collector telemetry.Collector
	registry  *registry.Registry
	exporter  *homeassistant.Exporter

	customLogger bool
	baseLogger   zerolog.Logger

	watcher       *reload.Watcher
	watchInterval time.Duration
	reloadCh      chan reloadRequest

	current *runtimeState
	running bool
}

type runtimeState struct {
	doc     *config.Document
	ctrl    *entity.Controller
	logger  zerolog.Logger
	cleanup func()
}

type reloadRequest struct {
	done  chan error
	files []string
}

// New loads and compiles the configuration and exposes the resulting
// controller.
func New(ctx context.Context, opts ...Option) (*Processor, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cfg := settings{
		logger:        zerolog.Nop(),
		telemetry:     telemetry.Noop(),
		watchInterval: defaultWatchInterval,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.document == nil {
		if cfg.configPath == "" {
			return nil, errors.New("configuration path required")
		}
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg.document = loaded
	}

	if !cfg.telemetryProvided {
		collector, err := newTelemetryCollector(cfg.document.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			cfg.telemetry = telemetry.Noop()
		} else {
			cfg.telemetry = collector
		}
	}
	if cfg.registry == nil {
		cfg.registry = registry.New(registry.WithLogger(cfg.logger))
	}

	proc := &Processor{
		document:      cfg.document,
		configPath:    cfg.configPath,
		collector:     cfg.telemetry,
		registry:      cfg.registry,
		customLogger:  cfg.customLogger,
		baseLogger:    cfg.logger,
		watchInterval: cfg.watchInterval,
	}

	runtime, err := proc.buildRuntime(cfg.document)
	if err != nil {
		return nil, err
	}
	if err := proc.initExporter(cfg.document.MQTT, cfg.transport, runtime); err != nil {
		runtime.cleanup()
		return nil, err
	}
	if err := proc.activate(nil, runtime); err != nil {
		proc.closeExporter()
		runtime.cleanup()
		return nil, err
	}
	proc.current = runtime

	if cfg.configPath != "" {
		proc.reloadCh = make(chan reloadRequest)
	}

	if err := proc.initWatcher(cfg.document); err != nil {
		proc.withdraw(runtime.ctrl)
		proc.closeExporter()
		runtime.cleanup()
		return nil, err
	}

	if cfg.registerReload != nil {
		cfg.registerReload(proc.Reload)
	}

	return proc, nil
}

// Controller returns the currently exposed controller.
func (p *Processor) Controller() *entity.Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.ctrl
}

// Registry returns the registry the controller is exposed to.
func (p *Processor) Registry() *registry.Registry {
	return p.registry
}

// Run serves reload requests and watches the configuration files until the
// context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return errors.New("processor not initialized")
	}
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	p.running = true
	watcher := p.watcher
	reloadCh := p.reloadCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var ticker *time.Ticker
	if watcher != nil {
		ticker = time.NewTicker(p.watchInterval)
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-reloadCh:
			req.done <- p.reload(nil)
		case <-tickChannel(ticker):
			changes, err := watcher.Check()
			if err != nil {
				p.logger().Error().Err(err).Msg("failed to check configuration changes")
				continue
			}
			if len(changes) == 0 {
				continue
			}
			if err := p.reload(changes); err != nil {
				p.logger().Error().Err(err).Strs("files", changes).Msg("failed to reload configuration")
				continue
			}
		}

		p.mu.Lock()
		next := p.watcher
		p.mu.Unlock()
		if next != watcher {
			watcher = next
			if ticker != nil {
				ticker.Stop()
				ticker = nil
			}
			if watcher != nil {
				ticker = time.NewTicker(p.watchInterval)
			}
		}
	}
}

// Reload recompiles the configuration from disk and swaps the exposed
// controller. A failed reload keeps the current controller exposed.
func (p *Processor) Reload(ctx context.Context) error {
	p.mu.Lock()
	running := p.running
	reloadCh := p.reloadCh
	p.mu.Unlock()

	if reloadCh == nil {
		return errors.New("reload not supported without configuration path")
	}
	if !running {
		return p.reload(nil)
	}

	req := reloadRequest{done: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case reloadCh <- req:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-req.done:
		return err
	}
}

// Close withdraws the controller from the registry and releases logging
// resources.
func (p *Processor) Close() {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current != nil {
		p.withdraw(current.ctrl)
	}
	p.closeExporter()
	if current != nil {
		current.cleanup()
	}
}

func (p *Processor) reload(files []string) error {
	doc, err := p.loadDocument()
	if err != nil {
		return err
	}
	runtime, err := p.buildRuntime(doc)
	if err != nil {
		return err
	}

	p.mu.Lock()
	old := p.current
	p.mu.Unlock()

	if err := p.activate(old, runtime); err != nil {
		runtime.cleanup()
		return err
	}

	p.mu.Lock()
	p.current = runtime
	p.document = doc
	if err := p.initWatcher(doc); err != nil {
		runtime.logger.Error().Err(err).Msg("failed to update configuration watcher")
	}
	p.mu.Unlock()

	if old != nil {
		old.cleanup()
	}
	for _, file := range files {
		p.collector.IncHotReload(file)
	}
	runtime.logger.Info().Str("controller", runtime.ctrl.Name).Msg("configuration reloaded")
	return nil
}

func (p *Processor) buildRuntime(doc *config.Document) (*runtimeState, error) {
	if doc == nil {
		return nil, errors.New("configuration must not be nil")
	}
	runtime := &runtimeState{doc: doc, cleanup: func() {}}
	if p.customLogger {
		runtime.logger = p.baseLogger
	} else {
		logger, cleanup, err := logging.Setup(doc.Logging)
		if err != nil {
			return nil, err
		}
		runtime.logger = logger
		runtime.cleanup = cleanup
		log.Logger = logger
	}

	ctrl, err := compiler.CompileDocument(doc, compiler.WithLogger(runtime.logger))
	if err != nil {
		p.collector.IncCompilation(telemetry.ResultFailure)
		runtime.cleanup()
		return nil, err
	}
	p.collector.IncCompilation(telemetry.ResultSuccess)
	runtime.ctrl = ctrl
	return runtime, nil
}

// activate replaces old with next in the registry. If next cannot be
// exposed, old is exposed again.
func (p *Processor) activate(old, next *runtimeState) error {
	if old != nil {
		p.withdraw(old.ctrl)
	}
	registrar := p.registrar()
	if err := compiler.Expose(next.ctrl, registrar); err != nil {
		p.withdraw(next.ctrl)
		if old != nil {
			if restoreErr := compiler.Expose(old.ctrl, registrar); restoreErr != nil {
				return errors.Join(err, fmt.Errorf("restore previous controller: %w", restoreErr))
			}
		}
		return err
	}
	reportEntities(p.collector, next.ctrl)
	return nil
}

func (p *Processor) registrar() entity.Registrar {
	if p.exporter != nil {
		return p.exporter
	}
	return p.registry
}

// withdraw removes ctrl unless its handle belongs to another controller.
func (p *Processor) withdraw(ctrl *entity.Controller) {
	current, ok := p.registry.Resolve(ctrl.ID)
	if !ok || current != ctrl {
		return
	}
	if p.exporter != nil {
		if err := p.exporter.Withdraw(ctrl.ID); err != nil {
			p.baseLogger.Warn().Err(err).Str("controller", ctrl.Name).Msg("failed to withdraw home assistant discovery")
		}
	}
	p.registry.Remove(ctrl.ID)
}

// initExporter publishes to Home Assistant when MQTT is enabled. The
// exporter keeps its broker session across reloads.
func (p *Processor) initExporter(cfg config.MQTTConfig, transport homeassistant.Transport, runtime *runtimeState) error {
	if transport == nil {
		if !cfg.Enabled {
			return nil
		}
		dialed, err := homeassistant.Dial(cfg, homeassistant.AvailabilityTopic(cfg.TopicPrefix, runtime.ctrl.ID), runtime.logger)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		transport = dialed
	}
	exporter, err := homeassistant.New(p.registry, transport,
		homeassistant.WithLogger(runtime.logger),
		homeassistant.WithResolver(p.registry),
		homeassistant.WithPrefixes(cfg.DiscoveryPrefix, cfg.TopicPrefix),
	)
	if err != nil {
		transport.Close()
		return err
	}
	p.exporter = exporter
	return nil
}

func (p *Processor) closeExporter() {
	if p.exporter == nil {
		return
	}
	if err := p.exporter.Close(); err != nil {
		p.baseLogger.Warn().Err(err).Msg("failed to close home assistant exporter")
	}
	p.exporter = nil
}

func (p *Processor) loadDocument() (*config.Document, error) {
	if p.configPath == "" {
		return nil, errors.New("configuration path not configured")
	}
	return config.Load(p.configPath)
}

func (p *Processor) initWatcher(doc *config.Document) error {
	if p.configPath == "" || !doc.HotReload {
		p.watcher = nil
		return nil
	}
	if p.watcher == nil {
		watcher, err := reload.NewWatcher(p.configPath, doc)
		if err != nil {
			return err
		}
		p.watcher = watcher
		return nil
	}
	return p.watcher.Update(p.configPath, doc)
}

func (p *Processor) logger() *zerolog.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return &p.baseLogger
	}
	return &p.current.logger
}

func tickChannel(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
