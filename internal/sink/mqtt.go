package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"hist-temps/internal/config"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// publisher is the subset of mqtt.Client the sink uses
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// mqttMessage is the JSON payload of one datapoint
type mqttMessage struct {
	Place       string    `json:"place"`
	Measurement string    `json:"measurement"`
	Timestamp   time.Time `json:"timestamp"`
	Value       float64   `json:"value"`
}

// MQTTSink publishes every datapoint as a JSON message on
// <prefix>/<place>/<measurement> with QoS 1
type MQTTSink struct {
	client publisher
	prefix string
	logger *slog.Logger
}

// NewMQTTSink connects to the broker in cfg, e.g. tcp://localhost:1883
func NewMQTTSink(cfg config.MQTTConfig, logger *slog.Logger) (*MQTTSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, errors.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to mqtt broker %s", cfg.Broker)
	}

	logger.Info("mqtt connected", "broker", cfg.Broker)

	return newMQTTSink(client, cfg.TopicPrefix, logger), nil
}

func newMQTTSink(client publisher, prefix string, logger *slog.Logger) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix, logger: logger}
}

func (s *MQTTSink) Write(ctx context.Context, series Series) error {
	topic := s.topic(series)

	for _, dp := range series.Points {
		payload, err := json.Marshal(mqttMessage{
			Place:       series.Place,
			Measurement: series.Measurement,
			Timestamp:   dp.Timestamp.UTC(),
			Value:       dp.Value,
		})
		if err != nil {
			return errors.Wrap(err, "failed to marshal datapoint")
		}

		token := s.client.Publish(topic, mqttQoS, false, payload)
		select {
		case <-token.Done():
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "publish to %s interrupted", topic)
		}
		if err := token.Error(); err != nil {
			return errors.Wrapf(err, "failed to publish to %s", topic)
		}
	}

	s.logger.Info("published datapoints", "topic", topic, "points", len(series.Points))
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(mqttQuiesceMillis)
	return nil
}

// topic builds the publish topic. Wildcard and level separator characters in
// the place name are replaced so that a place is always one topic level.
func (s *MQTTSink) topic(series Series) string {
	clean := strings.NewReplacer("/", "_", "+", "_", "#", "_")

	levels := []string{clean.Replace(series.Place), clean.Replace(series.Measurement)}
	if s.prefix != "" {
		levels = append([]string{s.prefix}, levels...)
	}
	return strings.Join(levels, "/")
}
