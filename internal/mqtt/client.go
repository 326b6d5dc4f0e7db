// Package mqtt wraps the paho client with reconnect-safe subscriptions and
// an online/offline status topic.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxPayloadSize    = 1 << 20
)

var (
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidTopic     = errors.New("mqtt: invalid topic")
)

// Options configures the broker connection.
type Options struct {
	Broker      string // tcp://host:1883
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	StatusTopic string // retained online/offline status, empty disables it
}

// MessageHandler receives messages for a subscription.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	handler MessageHandler
}

// Client is a connected MQTT client. Safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	opts   Options

	subMu         sync.RWMutex
	subscriptions map[string]subscription
}

// Connect dials the broker and waits for the first connection. The client
// reconnects on its own afterwards and restores subscriptions.
func Connect(opts Options) (*Client, error) {
	c := &Client{
		opts:          opts,
		subscriptions: make(map[string]subscription),
	}

	po := pahomqtt.NewClientOptions()
	po.AddBroker(opts.Broker)
	po.SetClientID(opts.ClientID)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}
	po.SetCleanSession(true)
	po.SetAutoReconnect(true)
	po.SetConnectRetry(true)
	po.SetConnectTimeout(connectTimeout)
	po.SetKeepAlive(keepAlive)
	if opts.StatusTopic != "" {
		po.SetWill(opts.StatusTopic, "offline", opts.QoS, true)
	}

	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		log.Info().Str("broker", opts.Broker).Msg("Connected to MQTT broker")
		c.restoreSubscriptions()
		c.publishStatus("online")
	})
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", opts.Broker).Msg("Lost connection to MQTT broker")
	})

	c.client = pahomqtt.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Publish sends payload to topic with the configured QoS.
func (c *Client) Publish(topic string, retained bool, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, c.opts.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic (wildcards allowed). The
// subscription is restored after every reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, handler: handler}
	c.subMu.Unlock()

	if !c.IsConnected() {
		// Picked up by restoreSubscriptions on connect.
		return nil
	}

	token := c.client.Subscribe(topic, c.opts.QoS, c.wrap(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Close publishes the offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() && c.opts.StatusTopic != "" {
		c.client.Publish(c.opts.StatusTopic, c.opts.QoS, true, "offline").WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	return nil
}

func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, c.opts.QoS, c.wrap(sub.handler))
	}
}

func (c *Client) publishStatus(status string) {
	if c.opts.StatusTopic == "" {
		return
	}
	c.client.Publish(c.opts.StatusTopic, c.opts.QoS, true, status)
}

// wrap adapts a MessageHandler to paho with panic recovery.
func (c *Client) wrap(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("topic", msg.Topic()).Msg("MQTT handler panicked")
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("MQTT handler failed")
		}
	}
}
