// Package gateway connects devices to the outside world. BusHost receives
// device callbacks from bridge sessions and puts them on the event bus;
// MQTTGateway mirrors those events to an MQTT broker and routes writes back.
package gateway

import (
	"github.com/dokzlo13/hueadapter/internal/device"
	"github.com/dokzlo13/hueadapter/internal/eventbus"
)

// Event data keys.
const (
	KeyDevice   = "device"
	KeyProperty = "property"
	KeyValue    = "value"
)

// BusHost implements device.Host by publishing onto the event bus.
type BusHost struct {
	bus *eventbus.Bus
}

// NewBusHost creates a host that publishes to bus.
func NewBusHost(bus *eventbus.Bus) *BusHost {
	return &BusHost{bus: bus}
}

func (h *BusHost) AddDevice(d *device.Device) {
	h.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeDeviceAdded,
		Data: map[string]interface{}{KeyDevice: d},
	})
}

func (h *BusHost) PropertyChanged(d *device.Device, name string, value any) {
	h.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypePropertyChanged,
		Data: map[string]interface{}{
			KeyDevice:   d,
			KeyProperty: name,
			KeyValue:    value,
		},
	})
}
