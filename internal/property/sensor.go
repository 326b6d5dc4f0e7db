package property

import (
	"github.com/dokzlo13/hueadapter/internal/hue"
)

// Sensor property names.
const (
	NamePresence    = "presence"
	NameTemperature = "temperature"
	NameLightLevel  = "lightlevel"
	NameDark        = "dark"
	NameDaylight    = "daylight"
	NameBattery     = "battery"
	NameLastUpdated = "lastUpdated"
)

// LastUpdatedUnknown is reported until the bridge supplies a timestamp.
const LastUpdatedUnknown = "unknown"

func readOnly(name, title, atType string, kind Kind, typ ValueType, initial any, read ReadFunc) *Property {
	return newProperty(
		Description{
			Name:     name,
			Title:    title,
			AtType:   atType,
			Kind:     kind,
			Type:     typ,
			ReadOnly: true,
		},
		initial,
		read,
		nil,
	)
}

func stateBool(field string) ReadFunc {
	return func(r *hue.Resource) (any, bool) {
		return r.State.Bool(field)
	}
}

// Presence reports motion.
func Presence() *Property {
	return readOnly(NamePresence, "Motion", "MotionProperty", KindSensorReading, TypeBoolean, false, stateBool("presence"))
}

// Temperature is reported in degrees Celsius; the bridge sends hundredths.
func Temperature() *Property {
	p := readOnly(NameTemperature, "Temperature", "TemperatureProperty", KindSensorReading, TypeNumber, 0.0,
		func(r *hue.Resource) (any, bool) {
			centi, ok := r.State.Float("temperature")
			if !ok {
				return nil, false
			}
			return centi / 100, true
		})
	p.desc.Unit = "degree celsius"
	return p
}

// LightLevel is the raw bridge light level (10000*log10(lux)+1).
func LightLevel() *Property {
	p := readOnly(NameLightLevel, "Light Level", "LevelProperty", KindSensorReading, TypeInteger, 0,
		func(r *hue.Resource) (any, bool) {
			return r.State.Int("lightlevel")
		})
	p.desc.Bounds = &Bounds{Min: 0, Max: 65535}
	return p
}

// Dark reports the bridge's darkness threshold flag.
func Dark() *Property {
	return readOnly(NameDark, "Dark", "BooleanProperty", KindSensorReading, TypeBoolean, false, stateBool("dark"))
}

// Daylight reports the bridge's daylight threshold flag.
func Daylight() *Property {
	return readOnly(NameDaylight, "Daylight", "BooleanProperty", KindSensorReading, TypeBoolean, false, stateBool("daylight"))
}

// Battery is the battery charge in percent, read from the sensor config.
func Battery() *Property {
	p := readOnly(NameBattery, "Battery", "LevelProperty", KindSensorReading, TypeInteger, 0,
		func(r *hue.Resource) (any, bool) {
			return r.Config.Int("battery")
		})
	p.desc.Unit = "percent"
	p.desc.Bounds = &Bounds{Min: 0, Max: 100}
	return p
}

// LastUpdated is the bridge timestamp of the last sensor event.
func LastUpdated() *Property {
	return readOnly(NameLastUpdated, "Last Updated", "", KindMeta, TypeString, LastUpdatedUnknown,
		func(r *hue.Resource) (any, bool) {
			ts, ok := r.State.String("lastupdated")
			if !ok || ts == "" || ts == "none" {
				return nil, false
			}
			return ts, true
		})
}
