// Package device aggregates properties into addressable lights and sensors
// and routes bridge state in and property writes out.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/property"
)

// ErrUnknownProperty is returned when a write names a property the device lacks.
var ErrUnknownProperty = errors.New("unknown property")

// Host is the gateway framework devices are registered with.
type Host interface {
	AddDevice(d *Device)
	PropertyChanged(d *Device, name string, value any)
}

// Writer sends light state patches to the bridge.
type Writer interface {
	WriteLightState(ctx context.Context, nativeID string, patch hue.StatePatch) error
}

// Class separates lights from sensors; they live in different bridge collections.
type Class string

const (
	ClassLight  Class = "lights"
	ClassSensor Class = "sensors"
)

// Description is a snapshot of a device for the host.
type Description struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Bridge     string                `json:"bridge"`
	NativeID   string                `json:"nativeId"`
	Class      Class                 `json:"class"`
	Kind       string                `json:"kind"`
	Type       string                `json:"type"`
	Types      []string              `json:"@type"`
	Properties []PropertyDescription `json:"properties"`
}

// PropertyDescription is property metadata plus its current value.
type PropertyDescription struct {
	property.Description
	Value any `json:"value"`
}

// Device is one light or sensor on a bridge. All access to its properties
// goes through the device lock.
type Device struct {
	id       string
	bridgeID string
	nativeID string
	title    string
	typeTag  string
	class    Class
	kind     string
	types    []string

	host   Host
	writer Writer

	mu              sync.Mutex
	props           []*property.Property
	byName          map[string]*property.Property
	sources         map[string]string // property name -> sibling native id
	recentlyUpdated bool
}

// LightID returns the device id for a light.
func LightID(bridgeID, nativeID string) string {
	return "philips-hue-" + bridgeID + "-" + strings.ReplaceAll(nativeID, "/", "-")
}

// SensorID returns the device id for a sensor.
func SensorID(bridgeID, nativeID string) string {
	return "philips-hue-" + bridgeID + "-sensors-" + strings.ReplaceAll(nativeID, "/", "-")
}

func newDevice(id, bridgeID, nativeID string, class Class, kind string, r *hue.Resource, host Host, w Writer) *Device {
	if host == nil {
		host = nopHost{}
	}
	return &Device{
		id:       id,
		bridgeID: bridgeID,
		nativeID: nativeID,
		title:    r.Name,
		typeTag:  r.Type,
		class:    class,
		kind:     kind,
		host:     host,
		writer:   w,
		byName:   make(map[string]*property.Property),
		sources:  make(map[string]string),
	}
}

func (d *Device) add(p *property.Property) bool {
	if _, exists := d.byName[p.Name()]; exists {
		return false
	}
	d.props = append(d.props, p)
	d.byName[p.Name()] = p
	return true
}

func (d *Device) addType(t string) {
	for _, existing := range d.types {
		if existing == t {
			return
		}
	}
	d.types = append(d.types, t)
}

// ID returns the globally unique device id.
func (d *Device) ID() string { return d.id }

// BridgeID returns the id of the owning bridge.
func (d *Device) BridgeID() string { return d.bridgeID }

// NativeID returns the bridge's id for the device.
func (d *Device) NativeID() string { return d.nativeID }

// Title returns the bridge-assigned name.
func (d *Device) Title() string { return d.title }

// Class returns whether the device is a light or a sensor.
func (d *Device) Class() Class { return d.class }

// Kind returns the variant the device was created as.
func (d *Device) Kind() string { return d.kind }

// Value returns the cached value of a property.
func (d *Device) Value(name string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return p.Value(), true
}

// Values returns all cached values by property name.
func (d *Device) Values() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]any, len(d.props))
	for _, p := range d.props {
		out[p.Name()] = p.Value()
	}
	return out
}

// PropertyNames returns property names in registration order.
func (d *Device) PropertyNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, len(d.props))
	for i, p := range d.props {
		names[i] = p.Name()
	}
	return names
}

// Describe returns a snapshot of the device and its properties.
func (d *Device) Describe() Description {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc := Description{
		ID:       d.id,
		Title:    d.title,
		Bridge:   d.bridgeID,
		NativeID: d.nativeID,
		Class:    d.class,
		Kind:     d.kind,
		Type:     d.typeTag,
		Types:    append([]string(nil), d.types...),
	}
	for _, p := range d.props {
		desc.Properties = append(desc.Properties, PropertyDescription{
			Description: p.Description(),
			Value:       p.Value(),
		})
	}
	return desc
}

// RecentlyUpdated reports whether the next poll will be skipped.
func (d *Device) RecentlyUpdated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recentlyUpdated
}

type change struct {
	name  string
	value any
}

// Apply feeds a polled snapshot to the device. If a write was sent since the
// last poll, the snapshot is dropped, the suppression flag cleared and false
// returned. Siblings are the other entries of the same collection; presence
// sensors read adopted properties from them.
func (d *Device) Apply(r hue.Resource, siblings hue.Resources) bool {
	d.mu.Lock()
	if d.recentlyUpdated {
		d.recentlyUpdated = false
		d.mu.Unlock()
		return false
	}
	changes := d.update(&r, siblings)
	d.mu.Unlock()

	for _, c := range changes {
		d.host.PropertyChanged(d, c.name, c.value)
	}
	return true
}

// update must be called with d.mu held.
func (d *Device) update(r *hue.Resource, siblings hue.Resources) []change {
	var changes []change
	for _, p := range d.props {
		src := r
		if sibID, ok := d.sources[p.Name()]; ok {
			sib, found := siblings[sibID]
			if !found {
				continue
			}
			src = &sib
		}
		if p.Update(src) {
			changes = append(changes, change{name: p.Name(), value: p.Value()})
		}
	}
	return changes
}

// SetProperty handles a write request from the host. The value is clamped
// and rounded, cached, and sent to the bridge as a single patch. Writes to
// read-only or unknown properties fail before anything is sent. The
// accepted value is returned even if sending fails.
func (d *Device) SetProperty(ctx context.Context, name string, value any) (any, error) {
	d.mu.Lock()
	p, ok := d.byName[name]
	if !ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownProperty, name, d.id)
	}

	accepted, err := p.Accept(value)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}

	changed := p.Set(accepted)
	accepted = p.Value()
	patch := d.patchFor(p, accepted)
	send := d.writer != nil && !patch.IsEmpty()
	if send {
		d.recentlyUpdated = true
	}
	d.mu.Unlock()

	if changed {
		d.host.PropertyChanged(d, name, accepted)
	}
	if !send {
		return accepted, nil
	}
	if err := d.writer.WriteLightState(ctx, d.nativeID, patch); err != nil {
		// Nothing reached the bridge, so the next poll is not an echo.
		d.mu.Lock()
		d.recentlyUpdated = false
		d.mu.Unlock()
		return accepted, err
	}
	return accepted, nil
}

// patchFor must be called with d.mu held. Turning a light on resends the
// cached color (or white point) and level so changes made while it was off
// take effect.
func (d *Device) patchFor(p *property.Property, value any) hue.StatePatch {
	if p.Name() != property.NameOn || value != true {
		return p.Patch(value)
	}

	var patch hue.StatePatch
	if src := d.colorSource(); src != nil {
		patch = patch.Merge(src.Patch(src.Value()))
	}
	if level, ok := d.byName[property.NameLevel]; ok {
		patch = patch.Merge(level.Patch(level.Value()))
	}
	patch.On = hue.Bool(true)
	return patch
}

func (d *Device) colorSource() *property.Property {
	ct, hasCT := d.byName[property.NameColorTemperature]
	col, hasColor := d.byName[property.NameColor]

	if hasCT && hasColor {
		if mode, ok := d.byName[property.NameColorMode]; ok && mode.Value() == property.ModeTemperature {
			return ct
		}
		return col
	}
	if hasColor {
		return col
	}
	if hasCT {
		return ct
	}
	return nil
}

type nopHost struct{}

func (nopHost) AddDevice(*Device)                    {}
func (nopHost) PropertyChanged(*Device, string, any) {}
