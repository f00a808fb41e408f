package homeassistant

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/ld2450/compiler"
	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
	"github.com/timzifer/ld2450/runtime/registry"
)

type message struct {
	topic   string
	retain  bool
	payload string
}

type fakeTransport struct {
	mu        sync.Mutex
	messages  []message
	handlers  map[string]func([]byte)
	failTopic string
	closed    bool
	unsubbed  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]func([]byte))}
}

func (f *fakeTransport) Publish(topic string, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failTopic {
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, message{topic: topic, retain: retain, payload: string(payload)})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, topic := range topics {
		delete(f.handlers, topic)
	}
	f.unsubbed = append(f.unsubbed, topics...)
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeTransport) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[topic]
	f.mu.Unlock()
	require.True(t, ok, "no subscription for %s", topic)
	handler([]byte(payload))
}

func (f *fakeTransport) last(topic string) (message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].topic == topic {
			return f.messages[i], true
		}
	}
	return message{}, false
}

func (f *fakeTransport) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if len(m.topic) >= len(prefix) && m.topic[:len(prefix)] == prefix && m.payload != "" {
			n++
		}
	}
	return n
}

const radarYAML = `ld2450:
  id: radar
  name: Living Room
  max_detection_distance:
    name: Max Distance
    initial_value: 4m
    step: 0.5m
  restart_button: {}
  tracking_mode_switch:
    name: Multi Target
  targets:
    - target:
        id: t1
        x_position:
          id: t1_x
          name: X
        distance:
          id: t1_distance
          internal: true
  zones:
    - zone:
        id: couch
        name: Couch
        occupancy:
          id: couch_occupied
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
`

func compileRadar(t *testing.T) *entity.Controller {
	t.Helper()
	doc, err := config.Decode([]byte(radarYAML), "radar.yaml")
	require.NoError(t, err)
	ctrl, err := compiler.CompileDocument(doc)
	require.NoError(t, err)
	return ctrl
}

func newExporter(t *testing.T) (*Exporter, *fakeTransport, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	transport := newFakeTransport()
	exp, err := New(reg, transport, WithResolver(reg), WithPrefixes("/ha/", "sensors"))
	require.NoError(t, err)
	return exp, transport, reg
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(nil, newFakeTransport())
	require.Error(t, err)
	_, err = New(registry.New(), nil)
	require.Error(t, err)
	_, err = New(registry.New(), newFakeTransport(), WithResolver(nil))
	require.Error(t, err)
}

func TestExposePublishesDiscovery(t *testing.T) {
	exp, transport, reg := newExporter(t)
	ctrl := compileRadar(t)
	require.NoError(t, compiler.Expose(ctrl, exp))

	_, ok := reg.Resolve(ctrl.ID)
	require.True(t, ok, "calls must reach the wrapped registrar")

	status, ok := transport.last("sensors/radar/status")
	require.True(t, ok)
	require.Equal(t, payloadOnline, status.payload)
	require.True(t, status.retain)

	msg, ok := transport.last("ha/sensor/radar/t1_x/config")
	require.True(t, ok)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.payload), &doc))
	require.Equal(t, "X", doc["name"])
	require.Equal(t, "t1_x", doc["unique_id"])
	require.Equal(t, "sensors/radar/sensor/t1_x/state", doc["state_topic"])
	require.Equal(t, "sensors/radar/status", doc["availability_topic"])
	require.Equal(t, config.UnitMeter, doc["unit_of_measurement"])
	device := doc["device"].(map[string]any)
	require.Equal(t, "Living Room", device["name"])
	require.Equal(t, deviceModel, device["model"])

	_, ok = transport.last("ha/sensor/radar/t1_distance/config")
	require.False(t, ok, "internal entities are not published")

	_, ok = transport.last("ha/binary_sensor/radar/couch_occupied/config")
	require.True(t, ok)

	number, ok := transport.last("ha/number/radar/" + sanitize(ctrl.MaxDistanceNumber.ID) + "/config")
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(number.payload), &doc))
	require.Equal(t, 0.5, doc["step"])
	require.Equal(t, 6.0, doc["max"])

	state, ok := transport.last("sensors/radar/number/" + sanitize(ctrl.MaxDistanceNumber.ID) + "/state")
	require.True(t, ok)
	require.Equal(t, "4", state.payload)
}

func TestNumberCommandAppliesMaxDistance(t *testing.T) {
	exp, transport, _ := newExporter(t)
	ctrl := compileRadar(t)
	require.NoError(t, compiler.Expose(ctrl, exp))

	object := sanitize(ctrl.MaxDistanceNumber.ID)
	transport.deliver(t, "sensors/radar/number/"+object+"/set", "2.5")

	meters, ok := ctrl.EffectiveMaxDistance()
	require.True(t, ok)
	require.Equal(t, 2.5, meters)
	state, _ := transport.last("sensors/radar/number/" + object + "/state")
	require.Equal(t, "2.5", state.payload)

	transport.deliver(t, "sensors/radar/number/"+object+"/set", "9")
	meters, _ = ctrl.EffectiveMaxDistance()
	require.Equal(t, 2.5, meters, "out of range commands are rejected")

	transport.deliver(t, "sensors/radar/number/"+object+"/set", "far")
	meters, _ = ctrl.EffectiveMaxDistance()
	require.Equal(t, 2.5, meters)

	for _, payload := range []string{"NaN", "nan", "+Inf"} {
		transport.deliver(t, "sensors/radar/number/"+object+"/set", payload)
		meters, _ = ctrl.EffectiveMaxDistance()
		require.Equal(t, 2.5, meters, payload)
	}
	state, _ = transport.last("sensors/radar/number/" + object + "/state")
	require.Equal(t, "2.5", state.payload)
}

func TestSwitchAndButtonCommands(t *testing.T) {
	exp, transport, _ := newExporter(t)
	ctrl := compileRadar(t)
	require.NoError(t, compiler.Expose(ctrl, exp))

	switchObject := sanitize(ctrl.TrackingModeSwitch.ID)
	transport.deliver(t, "sensors/radar/switch/"+switchObject+"/set", "on")
	multi, applied := ctrl.TrackingMode()
	require.True(t, applied)
	require.True(t, multi)
	state, _ := transport.last("sensors/radar/switch/" + switchObject + "/state")
	require.Equal(t, payloadOn, state.payload)

	transport.deliver(t, "sensors/radar/switch/"+switchObject+"/set", "OFF")
	multi, _ = ctrl.TrackingMode()
	require.False(t, multi)

	buttonObject := sanitize(ctrl.RestartButton.ID)
	transport.deliver(t, "sensors/radar/button/"+buttonObject+"/set", payloadPress)
	transport.deliver(t, "sensors/radar/button/"+buttonObject+"/set", "HOLD")
	require.Equal(t, 1, exp.Presses(ctrl.ID, entity.ActionRestart))
}

func TestWithdrawClearsDiscovery(t *testing.T) {
	exp, transport, _ := newExporter(t)
	ctrl := compileRadar(t)
	require.NoError(t, compiler.Expose(ctrl, exp))
	published := transport.count("ha/")
	require.Greater(t, published, 0)

	require.NoError(t, exp.Withdraw(ctrl.ID))

	msg, ok := transport.last("ha/sensor/radar/t1_x/config")
	require.True(t, ok)
	require.Empty(t, msg.payload)
	require.True(t, msg.retain)
	status, _ := transport.last("sensors/radar/status")
	require.Equal(t, payloadOffline, status.payload)
	require.Len(t, transport.unsubbed, 3)

	require.NoError(t, exp.Withdraw(ctrl.ID), "withdrawing twice is a no-op")
	require.NoError(t, exp.Close())
	require.True(t, transport.closed)
}

func TestPublishFailureAbortsExposure(t *testing.T) {
	exp, transport, reg := newExporter(t)
	transport.failTopic = "ha/binary_sensor/radar/couch_occupied/config"
	ctrl := compileRadar(t)

	err := compiler.Expose(ctrl, exp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "register zone 0")

	_, ok := reg.Resolve(ctrl.ID)
	require.False(t, ok, "partial graph is removed from the registry")
	status, _ := transport.last("sensors/radar/status")
	require.Equal(t, payloadOffline, status.payload)
	msg, ok := transport.last("ha/sensor/radar/t1_x/config")
	require.True(t, ok)
	require.Empty(t, msg.payload)
}

func TestAvailabilityFailureRemovesController(t *testing.T) {
	exp, transport, reg := newExporter(t)
	transport.failTopic = "sensors/radar/status"
	ctrl := compileRadar(t)

	require.Error(t, exp.RegisterController(ctrl))
	_, ok := reg.Resolve(ctrl.ID)
	require.False(t, ok)
	require.Zero(t, exp.Presses(ctrl.ID, entity.ActionRestart))
}

func TestRegistrarErrorsSkipPublishing(t *testing.T) {
	exp, transport, reg := newExporter(t)
	ctrl := compileRadar(t)
	require.NoError(t, reg.RegisterController(ctrl))

	err := exp.RegisterController(ctrl)
	require.ErrorIs(t, err, registry.ErrDuplicate)
	_, ok := transport.last("sensors/radar/status")
	require.False(t, ok)
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "living_room_x", sanitize(" living room.x "))
	require.Equal(t, "a-b_c", sanitize("a-b_c"))
}
