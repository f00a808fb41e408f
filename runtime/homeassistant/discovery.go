package homeassistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/timzifer/ld2450/entity"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadOn      = "ON"
	payloadOff     = "OFF"
	payloadPress   = "PRESS"

	deviceManufacturer = "Hi-Link"
	deviceModel        = "HLK-LD2450"
)

// topics holds the MQTT topics of a single published entity.
type topics struct {
	discovery string
	state     string
	command   string
}

func (e *Exporter) topicsFor(h entity.Handle, ent entity.Entity) topics {
	component := string(ent.Kind())
	node := sanitize(string(h))
	object := sanitize(ent.Metadata().ID)
	base := fmt.Sprintf("%s/%s/%s/%s", e.topicPrefix, node, component, object)
	t := topics{
		discovery: fmt.Sprintf("%s/%s/%s/%s/config", e.discoveryPrefix, component, node, object),
		state:     base + "/state",
	}
	switch ent.(type) {
	case *entity.Button, *entity.TrackingModeSwitch, *entity.MaxDistanceNumber:
		t.command = base + "/set"
	}
	if _, ok := ent.(*entity.Button); ok {
		t.state = ""
	}
	return t
}

func (e *Exporter) availabilityTopic(h entity.Handle) string {
	return AvailabilityTopic(e.topicPrefix, h)
}

// AvailabilityTopic is the topic carrying the online state of a controller.
// An empty prefix selects the default.
func AvailabilityTopic(topicPrefix string, h entity.Handle) string {
	if topicPrefix = strings.Trim(topicPrefix, "/"); topicPrefix == "" {
		topicPrefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s/%s/status", topicPrefix, sanitize(string(h)))
}

// discoveryPayload renders the Home Assistant discovery document of ent.
func (e *Exporter) discoveryPayload(ctrl *entity.Controller, ent entity.Entity, t topics) ([]byte, error) {
	meta := ent.Metadata()
	payload := map[string]any{
		"name":      meta.Name,
		"object_id": sanitize(meta.ID),
		"unique_id": meta.ID,
		"device": map[string]any{
			"identifiers":  []string{string(ctrl.ID)},
			"name":         ctrl.Name,
			"manufacturer": deviceManufacturer,
			"model":        deviceModel,
		},
		"availability_topic":    e.availabilityTopic(ctrl.ID),
		"payload_available":     payloadOnline,
		"payload_not_available": payloadOffline,
	}
	if t.state != "" {
		payload["state_topic"] = t.state
	}
	if t.command != "" {
		payload["command_topic"] = t.command
	}
	if meta.Icon != "" {
		payload["icon"] = meta.Icon
	}
	if meta.DeviceClass != "" {
		payload["device_class"] = meta.DeviceClass
	}
	if meta.EntityCategory != "" {
		payload["entity_category"] = meta.EntityCategory
	}
	if meta.DisabledByDefault {
		payload["enabled_by_default"] = false
	}

	switch v := ent.(type) {
	case *entity.PollingSensor:
		sensorFields(payload, &v.Sensor)
		if v.UpdateInterval > 0 {
			payload["expire_after"] = int((3 * v.UpdateInterval).Round(time.Second) / time.Second)
		}
	case *entity.Sensor:
		sensorFields(payload, v)
	case *entity.BinarySensor:
		payload["payload_on"] = payloadOn
		payload["payload_off"] = payloadOff
	case *entity.Button:
		payload["payload_press"] = payloadPress
	case *entity.TrackingModeSwitch:
		payload["payload_on"] = payloadOn
		payload["payload_off"] = payloadOff
	case *entity.MaxDistanceNumber:
		payload["min"] = v.Min
		payload["max"] = v.Max
		payload["step"] = v.Step
		if v.Unit != "" {
			payload["unit_of_measurement"] = v.Unit
		}
		if v.Mode != "" {
			payload["mode"] = v.Mode
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mqtt: encode home assistant discovery: %w", err)
	}
	return body, nil
}

func sensorFields(payload map[string]any, s *entity.Sensor) {
	if s.Unit != "" {
		payload["unit_of_measurement"] = s.Unit
	}
	if s.StateClass != "" {
		payload["state_class"] = s.StateClass
	}
	payload["suggested_display_precision"] = s.AccuracyDecimals
}

// sanitize maps an id onto the character set Home Assistant accepts in
// discovery topics.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
