package models

import (
	"encoding/json"
	"strings"
)

// Property names a device characteristic that conditions can refer to
type Property string

const (
	PropBattery        Property = "battery"
	PropTemperature    Property = "temperature"
	PropHumidity       Property = "humidity"
	PropMotion         Property = "motion"
	PropContact        Property = "contact"
	PropSmoke          Property = "smoke"
	PropLeak           Property = "leak"
	PropCarbonMonoxide Property = "carbon_monoxide"
	PropCarbonDioxide  Property = "carbon_dioxide"
	PropAirQuality     Property = "air_quality"
	PropBrightness     Property = "brightness"
	PropPower          Property = "power"
	PropReachable      Property = "reachable"
)

// Keys are normalized: lower case with spaces, dashes and underscores removed.
var propertyAliases = map[string]Property{
	"battery":            PropBattery,
	"batterylevel":       PropBattery,
	"temperature":        PropTemperature,
	"temp":               PropTemperature,
	"currenttemperature": PropTemperature,
	"humidity":           PropHumidity,
	"relativehumidity":   PropHumidity,
	"motion":             PropMotion,
	"motiondetected":     PropMotion,
	"contact":            PropContact,
	"contactstate":       PropContact,
	"smoke":              PropSmoke,
	"smokedetected":      PropSmoke,
	"leak":               PropLeak,
	"leakdetected":       PropLeak,
	"co":                 PropCarbonMonoxide,
	"carbonmonoxide":     PropCarbonMonoxide,
	"co2":                PropCarbonDioxide,
	"carbondioxide":      PropCarbonDioxide,
	"airquality":         PropAirQuality,
	"brightness":         PropBrightness,
	"power":              PropPower,
	"on":                 PropPower,
	"reachable":          PropReachable,
	"reachability":       PropReachable,
}

func normalizePropertyName(name string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// ParseProperty resolves a property name case-insensitively, accepting common aliases
func ParseProperty(name string) (Property, bool) {
	p, ok := propertyAliases[normalizePropertyName(name)]
	return p, ok
}

// PropertySet is the full set of observed properties of one device
type PropertySet map[Property]Value

// Lookup returns the value of p, if present
func (ps PropertySet) Lookup(p Property) (Value, bool) {
	v, ok := ps[p]
	return v, ok && !v.IsZero()
}

// Clone returns a shallow copy
func (ps PropertySet) Clone() PropertySet {
	out := make(PropertySet, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// UnmarshalJSON accepts property names in any alias form and drops unknown ones
func (ps *PropertySet) UnmarshalJSON(data []byte) error {
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PropertySet, len(raw))
	for name, v := range raw {
		if p, ok := ParseProperty(name); ok {
			out[p] = v
		}
	}
	*ps = out
	return nil
}
