package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures runtime telemetry exporters.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// MQTTTLSConfig configures TLS for the broker connection.
type MQTTTLSConfig struct {
	CAFile             string `yaml:"ca_file,omitempty"`
	CertFile           string `yaml:"cert_file,omitempty"`
	KeyFile            string `yaml:"key_file,omitempty"`
	ServerName         string `yaml:"server_name,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
}

// MQTTConfig configures Home Assistant discovery over MQTT.
type MQTTConfig struct {
	Enabled         bool           `yaml:"enabled"`
	Broker          string         `yaml:"broker,omitempty"`
	ClientID        string         `yaml:"client_id,omitempty"`
	Username        string         `yaml:"username,omitempty"`
	Password        string         `yaml:"password,omitempty"`
	DiscoveryPrefix string         `yaml:"discovery_prefix,omitempty"`
	TopicPrefix     string         `yaml:"topic_prefix,omitempty"`
	QoS             *int           `yaml:"qos,omitempty"`
	KeepAlive       *Duration      `yaml:"keep_alive,omitempty"`
	ConnectTimeout  *Duration      `yaml:"connect_timeout,omitempty"`
	TLS             *MQTTTLSConfig `yaml:"tls,omitempty"`
}

// Document is the root of a configuration file.
type Document struct {
	LD2450    *SensorConfig   `yaml:"ld2450"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty"`
	HotReload bool            `yaml:"hot_reload,omitempty"`
	// Sources lists the files the document was assembled from.
	Sources []string `yaml:"-"`
}

// Load reads and decodes the configuration at path. YAML files are decoded
// directly; a .cue file or a directory is evaluated as a CUE package first.
func Load(path string) (*Document, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	if info.IsDir() {
		return loadCUE(abs)
	}
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".cue":
		return loadCUE(filepath.Dir(abs))
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config %s: unsupported file extension", abs)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", abs, err)
	}
	doc, err := Decode(raw, abs)
	if err != nil {
		return nil, err
	}
	doc.Sources = []string{abs}
	return doc, nil
}

// Decode parses a YAML (or JSON) document and validates its shape. Unknown
// keys are rejected. All shape violations are reported together.
func Decode(raw []byte, source string) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, shapeError(source, "document is empty")
		}
		return nil, wrapDecodeError(source, raw, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// wrapDecodeError turns decoder errors into field errors. Positions are
// resolved to field paths against the parsed document; errors that cannot be
// located are reported against the source.
func wrapDecodeError(source string, raw []byte, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return err
	}
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		return shapeError(source, "%v", err)
	}

	var root yaml.Node
	located := yaml.Unmarshal(raw, &root) == nil
	errs := make([]error, 0, len(typeErr.Errors))
	for _, msg := range typeErr.Errors {
		line, column, text, ok := location(msg)
		if !ok {
			errs = append(errs, shapeError(source, "%s", msg))
			continue
		}
		path := source
		if located {
			if p, found := fieldPath(&root, line, column); found {
				path = p
			}
		}
		errs = append(errs, shapeError(path, "line %d: %s", line, text))
	}
	return errors.Join(errs...)
}
