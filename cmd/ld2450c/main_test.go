package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/ld2450/config"
)

func decode(t *testing.T, content string) *config.Document {
	t.Helper()
	doc, err := config.Decode([]byte(content), "check.yaml")
	require.NoError(t, err)
	return doc
}

func TestConfigCheckPrintsGraph(t *testing.T) {
	doc := decode(t, `ld2450:
  name: Living Room
  max_detection_distance: 4.5m
  occupancy: {}
  restart_button:
    internal: true
  targets:
    - target:
        distance:
          name: Depth
  zones:
    - zone:
        name: Couch
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
`)
	var out bytes.Buffer
	code := checkDocument(&out, doc)
	require.Equal(t, 0, code, out.String())

	report := out.String()
	require.Contains(t, report, `Controller "Living Room"`)
	require.Contains(t, report, "Max detection distance: 4.50m (fixed)")
	require.Contains(t, report, "Targets: 1")
	require.Contains(t, report, "Zones: 1")
	require.Contains(t, report, `binary_sensor "Living Room Occupancy"`)
	require.Contains(t, report, "(internal)")
	require.Contains(t, report, "Configuration check completed successfully.")
}

func TestConfigCheckReportsErrors(t *testing.T) {
	doc := decode(t, `ld2450:
  zones:
    - zone:
        name: Arrow
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 2, y: 0}
          - point: {x: 1, y: 1}
          - point: {x: 2, y: 2}
          - point: {x: 0, y: 2}
`)
	var out bytes.Buffer
	code := checkDocument(&out, doc)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "Configuration invalid:")
	require.Contains(t, out.String(), "ld2450.zones[0].zone.polygon")
}

func TestConfigCheckNilDocument(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, 1, checkDocument(&out, nil))
}

func TestConfigCheckListsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ld2450.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`ld2450:
  zones:
    - zone:
        name: Couch
        margin: abc
        polygon:
          - point: {x: 0, y: 0}
          - point: {x: 1, y: 0}
          - point: {x: 1, y: 1}
`), 0o600))

	var out bytes.Buffer
	require.Equal(t, 1, executeConfigCheck(&out, path))
	report := out.String()
	require.Contains(t, report, "Configuration invalid:")
	require.Contains(t, report, "  - ld2450.zones[0].zone.margin: line 5: invalid distance")

	valid := filepath.Join(t.TempDir(), "ok.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("ld2450:\n  name: Study\n"), 0o600))
	out.Reset()
	require.Equal(t, 0, executeConfigCheck(&out, valid), out.String())
	require.Contains(t, out.String(), "Configuration check completed successfully.")
}

func TestConfigCheckListsValidationErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ld2450.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`ld2450:
  max_distance_margin: 7m
  uart_id: "bad id"
`), 0o600))

	var out bytes.Buffer
	require.Equal(t, 1, executeConfigCheck(&out, path))
	require.Contains(t, out.String(), "  - ld2450.max_distance_margin:")
	require.Contains(t, out.String(), "  - ld2450.uart_id:")
	require.Equal(t, 1, executeConfigCheck(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.yaml")))
}
