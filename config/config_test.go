package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decodeString(t *testing.T, content string) (*Document, error) {
	t.Helper()
	return Decode([]byte(content), "test.yaml")
}

func TestDecodeMinimalDocument(t *testing.T) {
	doc, err := decodeString(t, "ld2450: {}\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sensor := doc.LD2450
	if sensor == nil {
		t.Fatalf("expected ld2450 section")
	}
	if sensor.DisplayName() != "LD2450" {
		t.Fatalf("expected default name, got %q", sensor.DisplayName())
	}
	if sensor.UARTBus() != DefaultUARTID {
		t.Fatalf("expected default uart id, got %q", sensor.UARTBus())
	}
	if sensor.TargetList() != nil || sensor.ZoneList() != nil {
		t.Fatalf("expected absent targets and zones")
	}
	if !sensor.DistanceMargin().Decimal().Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("expected default margin 0.25m, got %s", sensor.DistanceMargin())
	}
}

func TestDecodeRequiresSensorSection(t *testing.T) {
	_, err := decodeString(t, "hot_reload: true\n")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450: required")
}

func TestDecodeEmptyDocument(t *testing.T) {
	_, err := decodeString(t, "")
	require.ErrorIs(t, err, ErrShape)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  bogus: 1\n")
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "bogus")
}

func TestMaxDistanceScalarIsFixed(t *testing.T) {
	cases := map[string]string{
		"5m":    "5",
		"4.5":   "4.5",
		"250cm": "2.5",
	}
	for raw, want := range cases {
		doc, err := decodeString(t, "ld2450:\n  max_detection_distance: "+raw+"\n")
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		fixed, ok := doc.LD2450.MaxDetectionDistance.Fixed()
		if !ok {
			t.Fatalf("%q: expected fixed variant", raw)
		}
		if !fixed.Value.Decimal().Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%q: expected %s m, got %s", raw, want, fixed.Value)
		}
		if _, ok := doc.LD2450.MaxDetectionDistance.Adjustable(); ok {
			t.Fatalf("%q: scalar must not produce an adjustable variant", raw)
		}
	}
}

func TestMaxDistanceMappingIsAdjustable(t *testing.T) {
	doc, err := decodeString(t, `ld2450:
  max_detection_distance:
    name: Max distance
    mode: slider
`)
	require.NoError(t, err)
	adj, ok := doc.LD2450.MaxDetectionDistance.Adjustable()
	require.True(t, ok)
	name, _ := adj.OwnName()
	require.Equal(t, "Max distance", name)
	require.True(t, adj.Initial().Decimal().Equal(decimal.NewFromInt(6)))
	require.True(t, adj.StepSize().Decimal().Equal(decimal.RequireFromString("0.1")))
	require.True(t, adj.Restore())
	require.Equal(t, "m", adj.UnitOfMeasurement())
	require.Equal(t, "slider", adj.NumberMode())
}

func TestMaxDistanceAdjustableRequiresName(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  max_detection_distance:
    initial_value: 4m
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450.max_detection_distance.name: required")
}

func TestMaxDistanceAdjustableRejectsUnknownKeys(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  max_detection_distance:
    name: Max distance
    maximum: 9
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "maximum")
}

func TestMaxDistanceSequenceIsAmbiguous(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  max_detection_distance: [1, 2]\n")
	require.ErrorIs(t, err, ErrAmbiguousShape)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "ld2450.max_detection_distance", fe.Path)
}

func TestMaxDistanceStepMustBePositive(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  max_detection_distance:
    name: Max distance
    step: 0
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "step: must be greater than 0")
}

func TestDistanceBounds(t *testing.T) {
	accepted := []string{"0", "0m", "6", "6.0m", "600cm"}
	for _, raw := range accepted {
		if _, err := decodeString(t, "ld2450:\n  max_distance_margin: "+raw+"\n"); err != nil {
			t.Fatalf("%q should be accepted: %v", raw, err)
		}
	}
	rejected := []string{"6.01", "-0.1m", "601cm", "7m"}
	for _, raw := range rejected {
		_, err := decodeString(t, "ld2450:\n  max_distance_margin: "+raw+"\n")
		if !errors.Is(err, ErrShape) {
			t.Fatalf("%q should be rejected with ErrShape, got %v", raw, err)
		}
	}
}

func TestMaxDetectionDistanceBounds(t *testing.T) {
	shapes := map[string]func(raw string) string{
		"fixed": func(raw string) string {
			return "ld2450:\n  max_detection_distance: " + raw + "\n"
		},
		"adjustable": func(raw string) string {
			return "ld2450:\n  max_detection_distance:\n    name: Range\n    initial_value: " + raw + "\n"
		},
	}
	for shape, build := range shapes {
		for _, raw := range []string{"0", "0.0", "6", "6.0", "600cm"} {
			if _, err := decodeString(t, build(raw)); err != nil {
				t.Fatalf("%s %q should be accepted: %v", shape, raw, err)
			}
		}
		for _, raw := range []string{"7", "7.0", "6.01", "-0.5"} {
			_, err := decodeString(t, build(raw))
			if !errors.Is(err, ErrShape) {
				t.Fatalf("%s %q should be rejected with ErrShape, got %v", shape, raw, err)
			}
			if !strings.Contains(err.Error(), "ld2450.max_detection_distance") {
				t.Fatalf("%s %q: expected max_detection_distance path, got %v", shape, raw, err)
			}
		}
	}
}

func TestDecodeErrorsCarryFieldPath(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  zones:
    - zone:
        name: Couch
        margin: abc
        target_timeout: soon
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: nowhere}
          - point: {x: 1, y: 1}
`)
	require.ErrorIs(t, err, ErrShape)
	got := make(map[string]string)
	for _, fe := range FieldErrors(err) {
		got[fe.Path] = fe.Msg
	}
	require.Contains(t, got, "ld2450.zones[0].zone.margin")
	require.Equal(t, `line 5: invalid distance "abc"`, got["ld2450.zones[0].zone.margin"])
	require.Contains(t, got, "ld2450.zones[0].zone.target_timeout")
	require.Contains(t, got, "ld2450.zones[0].zone.polygon[1].point.y")
	require.NotContains(t, got, "test.yaml")
}

func TestDecodeErrorsLocateStrictStrings(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  targets:\n    - target:\n        name: true\n")
	require.ErrorIs(t, err, ErrShape)
	errs := FieldErrors(err)
	require.Len(t, errs, 1)
	require.Equal(t, "ld2450.targets[0].target.name", errs[0].Path)
}

func TestThreeTargetsAccepted(t *testing.T) {
	doc, err := decodeString(t, `ld2450:
  targets:
    - target: {}
    - target: {}
    - target: {}
`)
	require.NoError(t, err)
	require.Len(t, doc.LD2450.TargetList(), 3)
}

func TestParseDistance(t *testing.T) {
	cases := map[string]string{
		"25cm":   "0.25",
		"250mm":  "0.25",
		"6.0 m":  "6",
		"1.5":    "1.5",
		" 30CM ": "0.3",
	}
	for raw, want := range cases {
		d, err := ParseDistance(raw)
		require.NoError(t, err, raw)
		require.True(t, d.Decimal().Equal(decimal.RequireFromString(want)), "%q parsed as %s", raw, d)
	}
	for _, raw := range []string{"", "abc", "5km", "m"} {
		_, err := ParseDistance(raw)
		require.Error(t, err, raw)
	}
}

func TestDurationParsing(t *testing.T) {
	doc, err := decodeString(t, `ld2450:
  zones:
    - zone:
        name: A
        target_timeout: 1500
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
    - zone:
        name: B
        target_timeout: 10s
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
    - zone:
        name: C
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
`)
	require.NoError(t, err)
	zones := doc.LD2450.ZoneList()
	require.Len(t, zones, 3)
	require.Equal(t, 1500*time.Millisecond, zones[0].Zone.Timeout())
	require.Equal(t, 10*time.Second, zones[1].Zone.Timeout())
	require.Equal(t, DefaultTargetTimeout, zones[2].Zone.Timeout())
	require.True(t, zones[2].Zone.MarginOrDefault().Decimal().Equal(decimal.RequireFromString("0.25")))
}

func TestNamesMustBeStrings(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  name: 42\n")
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "expected a string")
}

func TestValidationReportsEveryViolation(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  targets:
    - target: {}
    - target: {}
    - target: {}
    - target: {}
  zones:
    - zone:
        name: Couch
        margin: 7m
        target_timeout: -1s
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
`)
	require.ErrorIs(t, err, ErrShape)
	paths := make(map[string]bool)
	for _, fe := range FieldErrors(err) {
		paths[fe.Path] = true
	}
	for _, want := range []string{
		"ld2450.targets",
		"ld2450.zones[0].zone.margin",
		"ld2450.zones[0].zone.target_timeout",
		"ld2450.zones[0].zone.polygon",
	} {
		if !paths[want] {
			t.Fatalf("expected violation at %s, got %v", want, err)
		}
	}
}

func TestValidationRejectsEmptyLists(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  targets: []\n  zones: []\n")
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450.targets: at least 1 target is required")
	require.Contains(t, err.Error(), "ld2450.zones: at least 1 zone is required")
}

func TestValidationZoneRequiresName(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  zones:
    - zone:
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450.zones[0].zone.name: required")
}

func TestValidationUnits(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  targets:
    - target:
        speed:
          unit_of_measurement: km/h
        x_position:
          unit_of_measurement: cm
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450.targets[0].target.speed.unit_of_measurement")
	require.NotContains(t, err.Error(), "x_position")
}

func TestValidationDuplicateIDs(t *testing.T) {
	_, err := decodeString(t, `ld2450:
  id: radar
  occupancy:
    id: radar
`)
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), `id "radar" already declared at ld2450.id`)
}

func TestValidationEntityCategory(t *testing.T) {
	_, err := decodeString(t, "ld2450:\n  restart_button:\n    entity_category: system\n")
	require.ErrorIs(t, err, ErrShape)
	require.Contains(t, err.Error(), "ld2450.restart_button.entity_category")
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.yaml")
	content := `ld2450:
  name: Living Room
  max_detection_distance: 5m
logging:
  level: debug
hot_reload: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.LD2450.DisplayName() != "Living Room" {
		t.Fatalf("unexpected name %q", doc.LD2450.DisplayName())
	}
	if doc.Logging.Level != "debug" || !doc.HotReload {
		t.Fatalf("ambient settings not decoded: %+v", doc)
	}
	sources := SourceFiles(doc)
	if len(sources) != 1 || sources[0] != path {
		t.Fatalf("unexpected sources %v", sources)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unsupported file extension"))
}

func TestLoadCUEPackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.cue")
	content := `package ld2450

config: ld2450: {
	name: "Living Room"
	max_detection_distance: "5m"
	zones: [{zone: {
		name: "Couch"
		target_timeout: "3s"
		polygon: [
			{point: {x: 0, y: 1}},
			{point: {x: 1, y: 1}},
			{point: {x: 1, y: 2}},
		]
	}}]
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Living Room", doc.LD2450.DisplayName())
	fixed, ok := doc.LD2450.MaxDetectionDistance.Fixed()
	require.True(t, ok)
	require.True(t, fixed.Value.Decimal().Equal(decimal.NewFromInt(5)))
	zones := doc.LD2450.ZoneList()
	require.Len(t, zones, 1)
	require.Equal(t, 3*time.Second, zones[0].Zone.Timeout())
	require.Equal(t, []string{path}, SourceFiles(doc))
}

func TestLoadCUERejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	content := `package ld2450

config: ld2450: {
	bogus: true
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "radar.cue"), []byte(content), 0o600))

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrShape)
}

func TestSchemaOverlayRegistered(t *testing.T) {
	ResetOverlaysForTest()
	t.Cleanup(ResetOverlaysForTest)

	overlays := ResolveOverlays("/base")
	if _, ok := overlays[filepath.Join("/base", SchemaOverlayPath)]; !ok {
		t.Fatalf("schema overlay %q not registered", SchemaOverlayPath)
	}
	require.Equal(t, []string{SchemaOverlayPath}, OverlayPaths())
}

func TestRegisterOverlayRejectsDuplicates(t *testing.T) {
	ResetOverlaysForTest()
	t.Cleanup(ResetOverlaysForTest)

	require.Error(t, RegisterOverlayString(SchemaOverlayPath, "package ld2450\n"))
	require.Error(t, RegisterOverlayString("", "package ld2450\n"))
	require.Error(t, RegisterOverlayString("/abs.cue", "package ld2450\n"))
	require.NoError(t, RegisterOverlayString("extra.cue", "package ld2450\n"))
	require.Len(t, OverlayPaths(), 2)
}

func TestMQTTSectionValidation(t *testing.T) {
	doc, err := decodeString(t, `ld2450: {}
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  qos: 0
  keep_alive: 30s
`)
	require.NoError(t, err)
	require.Equal(t, "tcp://localhost:1883", doc.MQTT.Broker)
	require.Equal(t, 30*time.Second, doc.MQTT.KeepAlive.Duration)

	_, err = decodeString(t, `ld2450: {}
mqtt:
  enabled: true
  qos: 3
  tls:
    cert_file: client.pem
`)
	require.ErrorIs(t, err, ErrShape)
	paths := make(map[string]bool)
	for _, fe := range FieldErrors(err) {
		paths[fe.Path] = true
	}
	require.True(t, paths["mqtt.broker"])
	require.True(t, paths["mqtt.qos"])
	require.True(t, paths["mqtt.tls"])

	_, err = decodeString(t, "ld2450: {}\nmqtt:\n  enabled: false\n  qos: 7\n")
	require.NoError(t, err, "disabled sections are not validated")
}
