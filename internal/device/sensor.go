package device

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/property"
)

// SensorKind is the shape of a sensor device.
type SensorKind int

const (
	SensorPresence SensorKind = iota
	SensorSwitch
)

func (k SensorKind) String() string {
	switch k {
	case SensorPresence:
		return "presence"
	case SensorSwitch:
		return "switch"
	}
	return fmt.Sprintf("SensorKind(%d)", int(k))
}

// ClassifySensor maps a sensor type string to a device kind. ok is false for
// types that are not surfaced as devices.
func ClassifySensor(sensorType string) (kind SensorKind, ok bool) {
	switch sensorType {
	case "ZLLPresence", "CLIPPresence":
		return SensorPresence, true
	case "ZLLSwitch":
		return SensorSwitch, true
	}
	return 0, false
}

// Button matching policies.
const (
	ButtonPolicyCodes = "codes"
	ButtonPolicyRange = "range"
)

// SwitchButton is one physical button of a dimmer switch.
type SwitchButton struct {
	Name  string
	Title string
	Base  int // initial press code; hold, short and long release follow
}

// DimmerSwitchButtons is the fixed layout of the Hue dimmer switch.
var DimmerSwitchButtons = []SwitchButton{
	{Name: "buttonOn", Title: "On", Base: 1000},
	{Name: "buttonBrighten", Title: "Dim up", Base: 2000},
	{Name: "buttonDim", Title: "Dim down", Base: 3000},
	{Name: "buttonOff", Title: "Off", Base: 4000},
}

// Matcher returns the event matcher for the button under policy. The range
// policy only counts initial press and hold.
func (b SwitchButton) Matcher(policy string) property.Matcher {
	if policy == ButtonPolicyRange {
		return property.CodeRange{Start: b.Base, Off: b.Base + 2}
	}
	return property.CodeSet{b.Base, b.Base + 1, b.Base + 2, b.Base + 3}
}

// NewPresenceSensor creates a motion sensor. Temperature and light level
// entries whose uniqueid shares the sensor's hardware prefix are adopted as
// extra properties of the same device.
func NewPresenceSensor(bridgeID, nativeID string, r hue.Resource, siblings hue.Resources, host Host) *Device {
	d := newDevice(SensorID(bridgeID, nativeID), bridgeID, nativeID, ClassSensor, SensorPresence.String(), &r, host, nil)

	d.addType("MotionSensor")
	d.add(property.Presence())
	d.add(property.Battery())

	prefix, _, _ := strings.Cut(r.UniqueID, "-")
	if prefix != "" {
		for _, id := range siblings.IDs() {
			if id == nativeID {
				continue
			}
			sib := siblings[id]
			if !strings.HasPrefix(sib.UniqueID, prefix) {
				continue
			}
			d.adopt(id, sib)
		}
	}

	d.update(&r, siblings)
	return d
}

func (d *Device) adopt(siblingID string, sib hue.Resource) {
	var props []*property.Property
	switch sib.Type {
	case "ZLLLightLevel", "CLIPLightLevel":
		d.addType("MultiLevelSensor")
		props = []*property.Property{property.LightLevel(), property.Dark(), property.Daylight()}
	case "ZLLTemperature", "CLIPTemperature":
		d.addType("TemperatureSensor")
		props = []*property.Property{property.Temperature()}
	default:
		return
	}

	for _, p := range props {
		if !d.add(p) {
			continue
		}
		d.sources[p.Name()] = siblingID
		log.Debug().
			Str("device", d.id).
			Str("property", p.Name()).
			Str("native_id", siblingID).
			Msg("Adopted sibling sensor property")
	}
}

// NewSwitch creates a dimmer switch with four buttons and a last-updated
// timestamp.
func NewSwitch(bridgeID, nativeID string, r hue.Resource, buttonPolicy string, host Host) *Device {
	d := newDevice(SensorID(bridgeID, nativeID), bridgeID, nativeID, ClassSensor, SensorSwitch.String(), &r, host, nil)

	d.addType("PushButton")
	for _, b := range DimmerSwitchButtons {
		d.add(property.Button(b.Name, b.Title, b.Matcher(buttonPolicy)))
	}
	d.add(property.LastUpdated())

	d.update(&r, nil)
	return d
}
