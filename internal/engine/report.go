package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"homecore/internal/models"
)

// StateReport is one decoded message from devices/<id>/state. Devices may
// publish properties at the top level or under "properties"; unknown keys
// are ignored.
type StateReport struct {
	Name       string
	Type       string
	Reachable  *bool
	Properties models.PropertySet
}

// ParseStateReport decodes a state payload
func ParseStateReport(payload []byte) (StateReport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return StateReport{}, fmt.Errorf("state payload: %w", err)
	}

	r := StateReport{Properties: make(models.PropertySet)}
	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &r.Name); err != nil {
				return StateReport{}, fmt.Errorf("state payload name: %w", err)
			}
		case "type":
			if err := json.Unmarshal(val, &r.Type); err != nil {
				return StateReport{}, fmt.Errorf("state payload type: %w", err)
			}
		case "properties":
			var nested models.PropertySet
			if err := json.Unmarshal(val, &nested); err != nil {
				return StateReport{}, fmt.Errorf("state payload properties: %w", err)
			}
			for p, v := range nested {
				r.Properties[p] = v
			}
		default:
			p, ok := models.ParseProperty(key)
			if !ok || bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
				continue
			}
			var v models.Value
			if err := json.Unmarshal(val, &v); err != nil {
				return StateReport{}, fmt.Errorf("state payload %s: %w", key, err)
			}
			r.Properties[p] = v
		}
	}

	if v, ok := r.Properties[models.PropReachable]; ok {
		reachable := v.Truthy()
		r.Reachable = &reachable
		delete(r.Properties, models.PropReachable)
	}
	return r, nil
}
