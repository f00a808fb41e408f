package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Compilation results recorded by IncCompilation.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector captures telemetry events emitted while compiling and reloading
// sensor configurations.
//
// Hooks run inline with compilation and configuration reloads, so
// implementations should be inexpensive to call.
type Collector interface {
	IncCompilation(result string)
	SetEntities(kind string, count int)
	IncHotReload(file string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncCompilation(string)   {}
func (noopCollector) SetEntities(string, int) {}
func (noopCollector) IncHotReload(string)     {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	compilations *prometheus.CounterVec
	entities     *prometheus.GaugeVec
	hotReloads   *prometheus.CounterVec
}

var (
	metricsLock        sync.Mutex
	compilationCounter *prometheus.CounterVec
	entityGauge        *prometheus.GaugeVec
	hotReloadCounter   *prometheus.CounterVec
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics that are already registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsLock.Lock()
	defer metricsLock.Unlock()

	if compilationCounter == nil {
		counter, err := registerCounterVec(reg, prometheus.CounterOpts{
			Name: "ld2450_compilations_total",
			Help: "Number of sensor configuration compilations by result.",
		}, "result")
		if err != nil {
			return nil, err
		}
		compilationCounter = counter
	}

	if entityGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ld2450_compiled_entities",
			Help: "Number of entities in the last compiled graph by entity kind.",
		}, []string{"kind"})
		if err := reg.Register(gauge); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				return nil, err
			}
			gauge = existing
		}
		entityGauge = gauge
	}

	if hotReloadCounter == nil {
		counter, err := registerCounterVec(reg, prometheus.CounterOpts{
			Name: "ld2450_config_hot_reload_total",
			Help: "Number of hot reload operations triggered per configuration source file.",
		}, "file")
		if err != nil {
			return nil, err
		}
		hotReloadCounter = counter
	}

	return &PrometheusCollector{
		compilations: compilationCounter,
		entities:     entityGauge,
		hotReloads:   hotReloadCounter,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		return existing, nil
	}
	return counter, nil
}

// IncCompilation counts a finished compilation.
func (p *PrometheusCollector) IncCompilation(result string) {
	if p == nil || p.compilations == nil {
		return
	}
	p.compilations.WithLabelValues(result).Inc()
}

// SetEntities records the entity count of the last compiled graph.
func (p *PrometheusCollector) SetEntities(kind string, count int) {
	if p == nil || p.entities == nil {
		return
	}
	p.entities.WithLabelValues(kind).Set(float64(count))
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}

func resetForTest() {
	metricsLock.Lock()
	compilationCounter = nil
	entityGauge = nil
	hotReloadCounter = nil
	metricsLock.Unlock()
}
