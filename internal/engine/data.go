package engine

import (
	"fmt"

	"github.com/synckit/synckit/internal/dag"
	"github.com/synckit/synckit/internal/synckit"
)

// resolveInputs assembles the final input map for a node: port defaults,
// overlaid by the document's literal values, overlaid by connected upstream
// outputs. Literals for connected ports cannot exist; Build rejects them
// as DuplicateBinding.
func resolveInputs(g *dag.Graph, nodeID string, outputs map[string]map[string]any) map[string]any {
	spec := g.Node(nodeID)
	capability := g.Capability(nodeID)

	resolved := make(map[string]any)
	for _, port := range capability.Inputs() {
		if port.Default != nil {
			resolved[port.Name] = coerceValue(port.Type, port.Default)
		}
	}
	for _, port := range capability.Inputs() {
		if spec.Inputs == nil {
			break
		}
		if v, ok := spec.Inputs[port.Name]; ok {
			resolved[port.Name] = coerceValue(port.Type, v)
		}
	}
	for input, conn := range g.InboundPorts(nodeID) {
		upstream, ok := outputs[conn.From.Node]
		if !ok {
			continue
		}
		if v, ok := upstream[conn.From.Output]; ok {
			resolved[input] = coerceValue(portType(capability.Inputs(), input), v)
		}
	}
	return resolved
}

func portType(ports []synckit.InputPort, name string) synckit.PortType {
	for _, p := range ports {
		if p.Name == name {
			return p.Type
		}
	}
	return synckit.PortText
}

// coerceValue normalizes JSON-decoded values to the canonical in-memory
// shape for a port type, so downstream nodes and cache fingerprints see
// one representation per value.
func coerceValue(t synckit.PortType, v any) any {
	switch t {
	case synckit.PortNumber:
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		}
	case synckit.PortBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
	case synckit.PortPath, synckit.PortDirectory, synckit.PortText:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	case synckit.PortPathList:
		switch list := v.(type) {
		case []string:
			out := make([]any, len(list))
			for i, s := range list {
				out[i] = s
			}
			return out
		case []any:
			return list
		}
	}
	return v
}
