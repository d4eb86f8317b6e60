// Package mqtt provides a destination plugin that publishes sealed
// events to an MQTT broker.
//
// The connection is established at load time and maintained with
// automatic reconnect. Ready reports the live connection state, so
// under the engine's default not-ready policy a dropped broker
// connection pauses delivery instead of burning retry attempts.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// DefaultTimeout bounds connect and publish waits.
const DefaultTimeout = 10 * time.Second

// Plugin publishes events to an MQTT topic at the destination stage.
type Plugin struct {
	topic      string
	qos        byte
	retained   bool
	pubTimeout time.Duration
	client     paho.Client
}

// New creates an unloaded mqtt plugin. Configuration happens in Load.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "mqtt"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StageDestination
}

// Load implements plugin.Plugin. Config keys:
//
//	broker           string    broker URI, e.g. tcp://localhost:1883 (required)
//	topic            string    topic to publish to (required)
//	client_id        string    MQTT client ID (default "beacon")
//	qos              int       0, 1, or 2 (default 1)
//	retained         bool      publish with the retained flag
//	username         string    broker credentials
//	password         string
//	connect_timeout  duration  bound on the initial connect (default 10s)
//	publish_timeout  duration  bound on each publish (default 10s)
//
// Load connects to the broker; an unreachable broker fails the load.
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	broker := cfg.String("broker", "")
	if broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	topic := cfg.String("topic", "")
	if topic == "" {
		return fmt.Errorf("mqtt: topic is required")
	}
	qos := cfg.Int("qos", 1)
	if qos < 0 || qos > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1, or 2, got %d", qos)
	}

	p.topic = topic
	p.qos = byte(qos)
	p.retained = cfg.Bool("retained", false)
	p.pubTimeout = cfg.Duration("publish_timeout", DefaultTimeout)
	connTimeout := cfg.Duration("connect_timeout", DefaultTimeout)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.String("client_id", "beacon")).
		SetConnectTimeout(connTimeout).
		SetAutoReconnect(true)
	if user := cfg.String("username", ""); user != "" {
		opts.SetUsername(user)
		opts.SetPassword(cfg.String("password", ""))
	}

	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect(), connTimeout); err != nil {
		return fmt.Errorf("mqtt: connect %s: %w", broker, err)
	}
	p.client = client
	return nil
}

// Ready implements plugin.Plugin. It reports the live connection
// state, not just a loaded flag.
func (p *Plugin) Ready() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Process implements plugin.Plugin.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	if p.client == nil {
		return fmt.Errorf("mqtt: not loaded")
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("mqtt: encode event: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, p.retained, payload)
	if err := wait(ctx, token, p.pubTimeout); err != nil {
		return fmt.Errorf("mqtt: publish to %q: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight publishes a
// short grace period. The plugin reports not ready after Close.
func (p *Plugin) Close() error {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	return nil
}

var _ plugin.Plugin = (*Plugin)(nil)

// wait blocks on a paho token with both a context and a deadline,
// since the paho API predates context support.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-token.Done():
		return token.Error()
	}
}
