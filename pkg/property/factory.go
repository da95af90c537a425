package property

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/nsg-ethz/netdice/pkg/model"
)

// parseFlow reads the {"flow": {"src": ..., "dst": ...}} shape used by
// single-flow properties.
func parseFlow(data map[string]gojson.RawMessage, r *NameResolver) (model.Flow, error) {
	var raw struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	}
	flowData, ok := data["flow"]
	if !ok {
		return model.Flow{}, fmt.Errorf("property: missing \"flow\"")
	}
	if err := gojson.Unmarshal(flowData, &raw); err != nil {
		return model.Flow{}, fmt.Errorf("property: %w", err)
	}
	src, ok := r.IDForNodeName[raw.Src]
	if !ok {
		return model.Flow{}, fmt.Errorf("property: unknown node %q", raw.Src)
	}
	return model.Flow{Src: src, Dst: raw.Dst}, nil
}

// parseFlows reads the {"flows": [{"src", "dst", "volume"}, ...]} shape used
// by multi-flow properties, returning the flows and their parallel volumes.
func parseFlows(data map[string]gojson.RawMessage, r *NameResolver) ([]model.Flow, []float64, error) {
	var raw []struct {
		Src    string  `json:"src"`
		Dst    string  `json:"dst"`
		Volume float64 `json:"volume"`
	}
	flowsData, ok := data["flows"]
	if !ok {
		return nil, nil, fmt.Errorf("property: missing \"flows\"")
	}
	if err := gojson.Unmarshal(flowsData, &raw); err != nil {
		return nil, nil, fmt.Errorf("property: %w", err)
	}
	flows := make([]model.Flow, len(raw))
	volumes := make([]float64, len(raw))
	for i, f := range raw {
		src, ok := r.IDForNodeName[f.Src]
		if !ok {
			return nil, nil, fmt.Errorf("property: unknown node %q", f.Src)
		}
		flows[i] = model.Flow{Src: src, Dst: f.Dst}
		volumes[i] = f.Volume
	}
	return flows, volumes, nil
}

func nodeID(data map[string]gojson.RawMessage, key string, r *NameResolver) (int, error) {
	raw, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("property: missing %q", key)
	}
	var name string
	if err := gojson.Unmarshal(raw, &name); err != nil {
		return 0, fmt.Errorf("property: %w", err)
	}
	id, ok := r.IDForNodeName[name]
	if !ok {
		return 0, fmt.Errorf("property: unknown node %q", name)
	}
	return id, nil
}

// factories dispatches a property's JSON "type" tag to the constructor for
// that variant, replacing the Python from_data-by-reflection pattern
// (spec.md §9) with a plain lookup table.
var factories = map[string]func(map[string]gojson.RawMessage, *NameResolver) (Property, error){
	"Egress":      egressFromData,
	"Loop":        loopFromData,
	"Reachable":   reachableFromData,
	"PathLength":  pathLengthFromData,
	"Waypoint":    waypointFromData,
	"Congestion":  congestionFromData,
	"Balanced":    balancedFromData,
	"Isolation":   isolationFromData,
}

// FromData constructs a Property from one parsed property object, dispatched
// by its "type" field. An unsupported tag is reported by name (spec.md §7
// "unsupported property ... tag").
func FromData(raw gojson.RawMessage, r *NameResolver) (Property, error) {
	var data map[string]gojson.RawMessage
	if err := gojson.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	var tag string
	typeData, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"type\"")
	}
	if err := gojson.Unmarshal(typeData, &tag); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	ctor, ok := factories[tag]
	if !ok {
		return nil, fmt.Errorf("property: unknown property type %q", tag)
	}
	return ctor(data, r)
}

func egressFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flow, err := parseFlow(data, r)
	if err != nil {
		return nil, err
	}
	egress, err := nodeID(data, "egress", r)
	if err != nil {
		return nil, err
	}
	return &Egress{Flow: flow, Egress: egress}, nil
}

func loopFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flow, err := parseFlow(data, r)
	if err != nil {
		return nil, err
	}
	return &Loop{Flow: flow}, nil
}

func reachableFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flow, err := parseFlow(data, r)
	if err != nil {
		return nil, err
	}
	return &Reachable{Flow: flow}, nil
}

func pathLengthFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flow, err := parseFlow(data, r)
	if err != nil {
		return nil, err
	}
	lenData, ok := data["length"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"length\"")
	}
	var length int
	if err := gojson.Unmarshal(lenData, &length); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	return &PathLength{Flow: flow, Len: length}, nil
}

func waypointFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flow, err := parseFlow(data, r)
	if err != nil {
		return nil, err
	}
	wp, err := nodeID(data, "waypoint", r)
	if err != nil {
		return nil, err
	}
	return &Waypoint{Flow: flow, Waypoint: wp}, nil
}

func congestionFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flows, volumes, err := parseFlows(data, r)
	if err != nil {
		return nil, err
	}
	linkData, ok := data["link"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"link\"")
	}
	var link struct {
		U string `json:"u"`
		V string `json:"v"`
	}
	if err := gojson.Unmarshal(linkData, &link); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	u, ok := r.IDForNodeName[link.U]
	if !ok {
		return nil, fmt.Errorf("property: unknown node %q", link.U)
	}
	v, ok := r.IDForNodeName[link.V]
	if !ok {
		return nil, fmt.Errorf("property: unknown node %q", link.V)
	}
	var threshold float64
	thData, ok := data["threshold"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"threshold\"")
	}
	if err := gojson.Unmarshal(thData, &threshold); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	return &Congestion{InFlows: flows, Volumes: volumes, U: u, V: v, Threshold: threshold}, nil
}

func balancedFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flows, volumes, err := parseFlows(data, r)
	if err != nil {
		return nil, err
	}
	linksData, ok := data["links"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"links\"")
	}
	var raw []struct {
		U string `json:"u"`
		V string `json:"v"`
	}
	if err := gojson.Unmarshal(linksData, &raw); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	links := make([][2]int, len(raw))
	for i, l := range raw {
		u, ok := r.IDForNodeName[l.U]
		if !ok {
			return nil, fmt.Errorf("property: unknown node %q", l.U)
		}
		v, ok := r.IDForNodeName[l.V]
		if !ok {
			return nil, fmt.Errorf("property: unknown node %q", l.V)
		}
		links[i] = [2]int{u, v}
	}
	var delta float64
	deltaData, ok := data["delta"]
	if !ok {
		return nil, fmt.Errorf("property: missing \"delta\"")
	}
	if err := gojson.Unmarshal(deltaData, &delta); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	return &Balanced{InFlows: flows, Volumes: volumes, Links: links, Delta: delta}, nil
}

func isolationFromData(data map[string]gojson.RawMessage, r *NameResolver) (Property, error) {
	flows, _, err := parseFlows(data, r)
	if err != nil {
		return nil, err
	}
	return &Isolation{InFlows: flows}, nil
}
