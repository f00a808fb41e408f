package processor

import (
	"fmt"
	"strings"

	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
	"github.com/timzifer/ld2450/telemetry"
)

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}

var entityKinds = []entity.Kind{
	entity.KindSensor,
	entity.KindBinarySensor,
	entity.KindNumber,
	entity.KindButton,
	entity.KindSwitch,
}

func reportEntities(collector telemetry.Collector, ctrl *entity.Controller) {
	counts := make(map[entity.Kind]int, len(entityKinds))
	if ctrl != nil {
		for _, e := range ctrl.Entities() {
			counts[e.Kind()]++
		}
	}
	for _, kind := range entityKinds {
		collector.SetEntities(string(kind), counts[kind])
	}
}
