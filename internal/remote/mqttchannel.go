package remote

import (
	"context"
	"fmt"

	"github.com/nerrad567/pickroute/internal/infrastructure/mqtt"
)

// MQTTBroker is the subset of *mqtt.Client used by MQTTChannel.
type MQTTBroker interface {
	PublishUpdate(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	QoS() byte
}

// MQTTChannel is the MQTT backend of the remote channel.
type MQTTChannel struct {
	broker MQTTBroker
	topics mqtt.Topics
}

// NewMQTTChannel creates a channel for the node described by topics.
func NewMQTTChannel(broker MQTTBroker, topics mqtt.Topics) *MQTTChannel {
	return &MQTTChannel{broker: broker, topics: topics}
}

// Name implements Channel.
func (c *MQTTChannel) Name() string { return "mqtt" }

// Write publishes u as a JSON object on the node's update topic.
func (c *MQTTChannel) Write(ctx context.Context, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := u.MarshalPayload()
	if err != nil {
		return fmt.Errorf("encoding update: %w", err)
	}
	if err := c.broker.PublishUpdate(c.topics.Update(), payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", c.topics.Update(), err)
	}
	return nil
}

// SubscribeDetection subscribes to the node's detection topic.
func (c *MQTTChannel) SubscribeDetection(_ context.Context, handler DetectionHandler) (func() error, error) {
	topic := c.topics.Detection()
	err := c.broker.Subscribe(topic, c.broker.QoS(), func(_ string, payload []byte) error {
		handler(payload)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return func() error {
		return c.broker.Unsubscribe(topic)
	}, nil
}
