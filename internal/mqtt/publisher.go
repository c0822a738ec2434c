// Package mqtt publishes reservation lifecycle notifications to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/room-reservation-manager/backend/internal/config"
	"github.com/room-reservation-manager/backend/internal/reservation"
	"github.com/room-reservation-manager/backend/internal/storage/models"
)

const connectTimeout = 10 * time.Second

// ErrConnectionFailed is returned when the broker cannot be reached at startup.
var ErrConnectionFailed = errors.New("mqtt connection failed")

// Client is the minimal broker surface the notifier needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Close()
}

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

// Event returns the retained status topic for an event.
func (t Topics) Event(eventID string) string {
	return t.Prefix + "/events/" + eventID
}

// Room returns the topic for room binding changes.
func (t Topics) Room(roomID string) string {
	return t.Prefix + "/rooms/" + roomID
}

// Schedule returns the topic for scheduler push outcomes.
func (t Topics) Schedule(eventID string) string {
	return t.Prefix + "/schedules/" + eventID
}

// Notifier publishes engine notifications as JSON.
type Notifier struct {
	client Client
	topics Topics
	qos    byte
	logger *slog.Logger
}

var _ reservation.Notifier = (*Notifier)(nil)

// NewNotifier wraps an existing client. logger may be nil.
func NewNotifier(client Client, prefix string, qos int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client: client,
		topics: Topics{Prefix: prefix},
		qos:    byte(qos),
		logger: logger,
	}
}

// Close disconnects from the broker.
func (n *Notifier) Close() {
	n.client.Close()
}

// EventChanged publishes the event's current state on its retained topic.
func (n *Notifier) EventChanged(change reservation.EventChange) {
	n.publish(n.topics.Event(change.Event.ID), true, change)
}

// RoomLinked publishes a room's new binding.
func (n *Notifier) RoomLinked(room models.Room) {
	n.publish(n.topics.Room(room.ID), true, room)
}

// SchedulePushed publishes the outcome of a scheduler call.
func (n *Notifier) SchedulePushed(outcome reservation.PushOutcome) {
	n.publish(n.topics.Schedule(outcome.EventID), false, outcome)
}

func (n *Notifier) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("encoding mqtt payload", "topic", topic, "error", err)
		return
	}
	if err := n.client.Publish(topic, n.qos, retained, payload); err != nil {
		n.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}

// pahoClient adapts paho to Client without waiting on delivery.
type pahoClient struct {
	cli    pahomqtt.Client
	logger *slog.Logger
}

// Connect dials the configured broker and returns a ready client.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	cli := pahomqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &pahoClient{cli: cli, logger: logger}, nil
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.cli.IsConnectionOpen() {
		return fmt.Errorf("publishing to %s: not connected", topic)
	}
	token := c.cli.Publish(topic, qos, retained, payload)
	go func() {
		if token.WaitTimeout(connectTimeout) && token.Error() != nil {
			c.logger.Warn("mqtt delivery failed", "topic", topic, "error", token.Error())
		}
	}()
	return nil
}

func (c *pahoClient) Close() {
	c.cli.Disconnect(250)
}
