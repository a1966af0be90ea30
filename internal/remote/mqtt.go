// Package remote bridges the monitor to an MQTT broker: status snapshots are
// published retained, operator commands are read from a command topic.
package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	connectTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
)

// Bridge publishes status and forwards commands between a broker and the
// control loop
type Bridge struct {
	cfg      config.MQTTConfig
	clientID string
	commands chan<- event.Event
	log      *zerolog.Logger

	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	dropped   uint64

	closeOnce sync.Once
}

// NewBridge creates a bridge. A random client id is used when none is
// configured.
func NewBridge(cfg config.MQTTConfig, commands chan<- event.Event) *Bridge {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ptzview-" + uuid.NewString()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "ptzview"
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")

	return &Bridge{
		cfg:      cfg,
		clientID: clientID,
		commands: commands,
		log:      logger.WithComponent("mqtt"),
	}
}

// ClientID is the id presented to the broker
func (b *Bridge) ClientID() string {
	return b.clientID
}

// StatusTopic is where status snapshots are published
func (b *Bridge) StatusTopic() string {
	return b.cfg.TopicPrefix + "/status"
}

// CommandTopic is where operator commands are read from
func (b *Bridge) CommandTopic() string {
	return b.cfg.TopicPrefix + "/command"
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect dials the broker and subscribes to the command topic. The client
// reconnects on its own after a lost connection.
func (b *Bridge) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(b.cfg.Broker))
	opts.SetClientID(b.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWill(b.StatusTopic(), `{"online":false}`, 1, true)

	opts.OnConnect = func(c mqtt.Client) {
		b.setConnected(true)
		b.log.Info().
			Str("broker", b.cfg.Broker).
			Str("client_id", b.clientID).
			Msg("MQTT connection established")

		// subscriptions do not survive a reconnect with a clean session
		token := c.Subscribe(b.CommandTopic(), 1, b.onMessage)
		go func() {
			defer logger.Recover("mqtt")
			if !token.WaitTimeout(subscribeTimeout) {
				b.log.Warn().Str("topic", b.CommandTopic()).Msg("MQTT subscribe timeout")
				return
			}
			if err := token.Error(); err != nil {
				b.log.Warn().Err(err).Str("topic", b.CommandTopic()).Msg("MQTT subscribe failed")
			}
		}()
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		b.setConnected(false)
		b.log.Warn().
			Err(err).
			Str("broker", b.cfg.Broker).
			Msg("MQTT connection lost, will auto-reconnect")
	}

	b.client = mqtt.NewClient(opts)
	b.log.Info().Str("broker", b.cfg.Broker).Msg("Connecting to MQTT broker")

	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

// Connected reports whether the broker connection is up
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	b.handlePayload(msg.Payload())
}

// handlePayload decodes a command and queues it without blocking
func (b *Bridge) handlePayload(payload []byte) error {
	var cmd event.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.log.Warn().Err(err).Msg("Failed to parse MQTT command")
		return fmt.Errorf("invalid command payload: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		b.log.Warn().Err(err).Msg("Rejected MQTT command")
		return err
	}

	select {
	case b.commands <- cmd:
		b.log.Info().Str("kind", string(cmd.Kind)).Msg("MQTT command received")
		return nil
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		b.log.Warn().Str("kind", string(cmd.Kind)).Msg("Command queue full, dropping command")
		return fmt.Errorf("command queue full")
	}
}

type statusMessage struct {
	Online bool `json:"online"`
	event.Status
}

// PublishStatus implements event.StatusSink. It never waits on the broker.
func (b *Bridge) PublishStatus(st event.Status) {
	if b.client == nil || !b.Connected() {
		return
	}

	payload, err := json.Marshal(statusMessage{Online: true, Status: st})
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to marshal status")
		return
	}

	b.client.Publish(b.StatusTopic(), 1, true, payload)

	b.mu.Lock()
	b.published++
	b.mu.Unlock()
	b.log.Debug().Str("topic", b.StatusTopic()).Int("size", len(payload)).Msg("Status published")
}

// Close publishes an offline status and disconnects
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		if b.client == nil || !b.client.IsConnected() {
			return
		}
		b.client.Unsubscribe(b.CommandTopic()).WaitTimeout(time.Second)
		b.client.Publish(b.StatusTopic(), 1, true, []byte(`{"online":false}`)).WaitTimeout(time.Second)
		b.client.Disconnect(250)
		b.setConnected(false)
		b.log.Info().Msg("MQTT disconnected")
	})
	return nil
}
