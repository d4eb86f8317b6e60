// Package kafka provides a destination plugin that produces sealed
// events to a Kafka topic using franz-go.
//
// Each event becomes one record: the value is the event JSON, the key
// defaults to the event ID (or a configured property, for partition
// affinity by user or tenant), and the event name travels as a record
// header. Produces are synchronous, so a broker failure surfaces as a
// delivery failure and the engine retries the event.
package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// Plugin produces events to Kafka at the destination stage.
type Plugin struct {
	topic       string
	keyProperty string
	client      atomic.Pointer[kgo.Client]
}

// New creates an unloaded kafka plugin. Configuration happens in Load.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "kafka"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StageDestination
}

// Load implements plugin.Plugin. Config keys:
//
//	brokers       []string  seed brokers (required)
//	topic         string    topic to produce to (required)
//	key_property  string    event property used as the record key
//	                        (default: the event ID)
//	tls           bool      dial with TLS
//	sasl          map       mechanism ("plain", "scram-sha-256",
//	                        "scram-sha-512"), user, password
//
// The client dials lazily; Load validates configuration but does not
// contact the brokers.
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	brokers := cfg.StringSlice("brokers", nil)
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: brokers is required")
	}
	topic := cfg.String("topic", "")
	if topic == "" {
		return fmt.Errorf("kafka: topic is required")
	}
	p.topic = topic
	p.keyProperty = cfg.String("key_property", "")

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	}

	if cfg.Bool("tls", false) {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		}))
	}

	if saslCfg := cfg.Sub("sasl"); len(saslCfg.Raw()) > 0 {
		mech, err := buildSASLMechanism(saslCfg)
		if err != nil {
			return err
		}
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafka: client: %w", err)
	}
	if old := p.client.Swap(client); old != nil {
		old.Close()
	}
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.client.Load() != nil
}

// Process implements plugin.Plugin. The produce is synchronous; the
// engine's retry policy owns redelivery.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	client := p.client.Load()
	if client == nil {
		return fmt.Errorf("kafka: not loaded")
	}

	rec, err := p.buildRecord(evt)
	if err != nil {
		return err
	}

	if err := client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %q: %w", p.topic, err)
	}
	return nil
}

// buildRecord maps an event to a Kafka record.
func (p *Plugin) buildRecord(evt *event.Event) (*kgo.Record, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("kafka: encode event: %w", err)
	}

	key := evt.ID()
	if p.keyProperty != "" {
		if v, ok := evt.Get(p.keyProperty); ok {
			key = fmt.Sprintf("%v", v)
		}
	}

	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_name", Value: []byte(evt.Name())},
		},
	}, nil
}

// Close releases the Kafka client. The plugin reports not ready after
// Close.
func (p *Plugin) Close() error {
	if client := p.client.Swap(nil); client != nil {
		client.Close()
	}
	return nil
}

var _ plugin.Plugin = (*Plugin)(nil)

// buildSASLMechanism constructs the configured SASL mechanism.
func buildSASLMechanism(cfg config.Config) (sasl.Mechanism, error) {
	user := cfg.String("user", "")
	password := cfg.String("password", "")

	switch mech := cfg.String("mechanism", ""); mech {
	case "plain":
		return plain.Auth{
			User: user,
			Pass: password,
		}.AsMechanism(), nil
	case "scram-sha-256":
		return scram.Auth{
			User: user,
			Pass: password,
		}.AsSha256Mechanism(), nil
	case "scram-sha-512":
		return scram.Auth{
			User: user,
			Pass: password,
		}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("kafka: unsupported SASL mechanism: %q", mech)
	}
}
