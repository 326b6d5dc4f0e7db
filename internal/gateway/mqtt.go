package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/device"
	"github.com/dokzlo13/hueadapter/internal/eventbus"
	"github.com/dokzlo13/hueadapter/internal/mqtt"
)

const (
	descriptionSuffix = "$description"
	setSuffix         = "set"
	writeTimeout      = 10 * time.Second
)

// Publisher is the broker side of the gateway. *mqtt.Client implements it.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

// Setter applies host writes. *registry.Registry implements it.
type Setter interface {
	SetProperty(ctx context.Context, deviceID, name string, value any) (any, error)
}

// MQTTGateway publishes device descriptions and values as retained
// messages and accepts writes on <prefix>/<device>/<property>/set.
type MQTTGateway struct {
	pub    Publisher
	setter Setter
	prefix string

	mu  sync.Mutex
	ctx context.Context
}

// NewMQTTGateway creates a gateway publishing under prefix.
func NewMQTTGateway(pub Publisher, setter Setter, prefix string) *MQTTGateway {
	return &MQTTGateway{
		pub:    pub,
		setter: setter,
		prefix: strings.Trim(prefix, "/"),
		ctx:    context.Background(),
	}
}

// RegisterHandlers subscribes the gateway to device events on the bus.
func (g *MQTTGateway) RegisterHandlers(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeDeviceAdded, g.handleDeviceAdded)
	bus.Subscribe(eventbus.EventTypePropertyChanged, g.handlePropertyChanged)
}

// Start subscribes to write topics. Writes run under ctx.
func (g *MQTTGateway) Start(ctx context.Context) error {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()

	topic := g.prefix + "/+/+/" + setSuffix
	if err := g.pub.Subscribe(topic, g.handleSet); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.Info().Str("topic", topic).Msg("MQTT gateway listening for writes")
	return nil
}

// DescriptionTopic returns the retained description topic of a device.
func (g *MQTTGateway) DescriptionTopic(deviceID string) string {
	return g.prefix + "/" + deviceID + "/" + descriptionSuffix
}

// PropertyTopic returns the retained value topic of a property.
func (g *MQTTGateway) PropertyTopic(deviceID, name string) string {
	return g.prefix + "/" + deviceID + "/" + name
}

// ParseSetTopic extracts the device id and property name from a write
// topic.
func (g *MQTTGateway) ParseSetTopic(topic string) (deviceID, name string, ok bool) {
	rest, found := strings.CutPrefix(topic, g.prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != setSuffix || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (g *MQTTGateway) handleDeviceAdded(e eventbus.Event) {
	d, ok := e.Data[KeyDevice].(*device.Device)
	if !ok {
		return
	}

	desc := d.Describe()
	payload, err := json.Marshal(desc)
	if err != nil {
		log.Error().Err(err).Str("device", d.ID()).Msg("Failed to encode device description")
		return
	}
	if err := g.pub.Publish(g.DescriptionTopic(d.ID()), true, payload); err != nil {
		log.Warn().Err(err).Str("device", d.ID()).Msg("Failed to publish device description")
	}

	for _, p := range desc.Properties {
		g.publishValue(d, p.Name, p.Value)
	}
}

func (g *MQTTGateway) handlePropertyChanged(e eventbus.Event) {
	d, ok := e.Data[KeyDevice].(*device.Device)
	if !ok {
		return
	}
	name, _ := e.Data[KeyProperty].(string)

	// Bus workers may reorder events; the cached value is always the latest.
	value, ok := d.Value(name)
	if !ok {
		return
	}
	g.publishValue(d, name, value)
}

func (g *MQTTGateway) publishValue(d *device.Device, name string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("device", d.ID()).Str("property", name).Msg("Failed to encode property value")
		return
	}
	if err := g.pub.Publish(g.PropertyTopic(d.ID(), name), true, payload); err != nil {
		log.Warn().Err(err).Str("device", d.ID()).Str("property", name).Msg("Failed to publish property value")
	}
}

func (g *MQTTGateway) handleSet(topic string, payload []byte) error {
	deviceID, name, ok := g.ParseSetTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected write topic %q", topic)
	}

	g.mu.Lock()
	parent := g.ctx
	g.mu.Unlock()
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	value := decodeValue(payload)
	accepted, err := g.setter.SetProperty(ctx, deviceID, name, value)
	if err != nil {
		return fmt.Errorf("write %s.%s: %w", deviceID, name, err)
	}

	log.Debug().
		Str("device", deviceID).
		Str("property", name).
		Interface("requested", value).
		Interface("accepted", accepted).
		Msg("Applied write")
	return nil
}

// decodeValue reads a JSON value and falls back to the raw text, so both
// "#ff0000" and #ff0000 are accepted.
func decodeValue(payload []byte) any {
	raw := strings.TrimSpace(string(payload))
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
