package homeassistant

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/ld2450/config"
)

const (
	defaultClientID       = "ld2450"
	defaultConnectTimeout = 30 * time.Second
	publishTimeout        = 5 * time.Second
)

// Transport is the subset of an MQTT session the exporter needs.
type Transport interface {
	Publish(topic string, retain bool, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
	Unsubscribe(topics ...string) error
	Close()
}

type mqttTransport struct {
	client mqtt.Client
	qos    byte
	logger zerolog.Logger
}

// Dial connects to the broker described by cfg. The last will marks the
// device offline under willTopic when the session drops.
func Dial(cfg config.MQTTConfig, willTopic string, logger zerolog.Logger) (Transport, error) {
	client, err := buildClient(cfg, willTopic, logger)
	if err != nil {
		return nil, err
	}
	qos := byte(1)
	if cfg.QoS != nil {
		qos = byte(*cfg.QoS)
	}
	return &mqttTransport{client: client, qos: qos, logger: logger}, nil
}

func (t *mqttTransport) Publish(topic string, retain bool, payload []byte) error {
	token := t.client.Publish(topic, t.qos, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (t *mqttTransport) Subscribe(topic string, handler func(payload []byte)) error {
	token := t.client.Subscribe(topic, t.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, err)
	}
	return nil
}

func (t *mqttTransport) Unsubscribe(topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	token := t.client.Unsubscribe(topics...)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt: unsubscribe: timeout")
	}
	return token.Error()
}

func (t *mqttTransport) Close() {
	t.client.Disconnect(250)
}

func buildClient(cfg config.MQTTConfig, willTopic string, logger zerolog.Logger) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.KeepAlive != nil {
		opts.SetKeepAlive(cfg.KeepAlive.Duration)
	}
	timeout := defaultConnectTimeout
	if cfg.ConnectTimeout != nil {
		timeout = cfg.ConnectTimeout.Duration
	}
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)

	if cfg.TLS != nil {
		tlsConfig, err := buildTLSConfig(*cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	if willTopic != "" {
		opts.SetWill(willTopic, payloadOffline, 1, true)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt: connection lost")
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info().Msg("mqtt: reconnecting")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect failed: %w", err)
	}
	return client, nil
}

func buildTLSConfig(settings config.MQTTTLSConfig) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: settings.InsecureSkipVerify}
	if settings.ServerName != "" {
		cfg.ServerName = settings.ServerName
	}

	if settings.CAFile != "" {
		ca, err := os.ReadFile(settings.CAFile)
		if err != nil {
			return nil, fmt.Errorf("mqtt: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("mqtt: parse ca file %s", settings.CAFile)
		}
		cfg.RootCAs = pool
	}

	if settings.CertFile != "" && settings.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("mqtt: load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
