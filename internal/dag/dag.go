package dag

import (
	"fmt"
	"sort"

	"github.com/synckit/synckit/internal/nodes"
	"github.com/synckit/synckit/internal/synckit"
)

// Graph is a validated, acyclic execution graph. It is rebuilt fresh for
// every run and discarded afterwards.
type Graph struct {
	nodes    map[string]*synckit.NodeSpec
	caps     map[string]nodes.Capability
	children map[string][]string
	parents  map[string][]string
	inbound  map[string]map[string]synckit.Connection // node -> input port -> connection
	levels   [][]string
}

// Build validates a workflow document against the capability registry and
// produces an execution graph. All validation errors are collected and
// returned together; no partial graph is ever returned alongside an error.
func Build(wf *synckit.WorkflowDefinition, registry *nodes.Registry) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*synckit.NodeSpec),
		caps:     make(map[string]nodes.Capability),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
		inbound:  make(map[string]map[string]synckit.Connection),
	}
	var errs ValidationErrors

	for i := range wf.Nodes {
		n := &wf.Nodes[i]
		if _, seen := g.nodes[n.ID]; seen {
			errs = append(errs, ValidationError{
				Code: CodeDuplicateNode, Node: n.ID,
				Message: "node id declared more than once",
			})
			continue
		}
		g.nodes[n.ID] = n
		c, ok := registry.Get(n.Type)
		if !ok {
			errs = append(errs, ValidationError{
				Code: CodeUnknownNodeType, Node: n.ID,
				Message: fmt.Sprintf("unregistered node type %q", n.Type),
			})
			continue
		}
		g.caps[n.ID] = c
	}

	for _, conn := range wf.Connections {
		if _, ok := g.nodes[conn.From.Node]; !ok {
			errs = append(errs, ValidationError{
				Code: CodeUnknownNode, Node: conn.From.Node,
				Message: "connection references nonexistent source node",
			})
			continue
		}
		if _, ok := g.nodes[conn.To.Node]; !ok {
			errs = append(errs, ValidationError{
				Code: CodeUnknownNode, Node: conn.To.Node,
				Message: "connection references nonexistent destination node",
			})
			continue
		}
		if c, ok := g.caps[conn.From.Node]; ok && !hasOutput(c, conn.From.Output) {
			errs = append(errs, ValidationError{
				Code: CodeUnknownPort, Node: conn.From.Node, Port: conn.From.Output,
				Message: fmt.Sprintf("node has no output port %q", conn.From.Output),
			})
			continue
		}
		if c, ok := g.caps[conn.To.Node]; ok && !hasInput(c, conn.To.Input) {
			errs = append(errs, ValidationError{
				Code: CodeUnknownPort, Node: conn.To.Node, Port: conn.To.Input,
				Message: fmt.Sprintf("node has no input port %q", conn.To.Input),
			})
			continue
		}

		ports := g.inbound[conn.To.Node]
		if ports == nil {
			ports = make(map[string]synckit.Connection)
			g.inbound[conn.To.Node] = ports
		}
		if _, bound := ports[conn.To.Input]; bound {
			errs = append(errs, ValidationError{
				Code: CodeDuplicateBinding, Node: conn.To.Node, Port: conn.To.Input,
				Message: fmt.Sprintf("input port %q is bound by more than one connection", conn.To.Input),
			})
			continue
		}
		if dest := g.nodes[conn.To.Node]; dest.Inputs != nil {
			if _, literal := dest.Inputs[conn.To.Input]; literal {
				errs = append(errs, ValidationError{
					Code: CodeDuplicateBinding, Node: conn.To.Node, Port: conn.To.Input,
					Message: fmt.Sprintf("input port %q is bound by both a literal and a connection", conn.To.Input),
				})
				continue
			}
		}
		ports[conn.To.Input] = conn
		g.children[conn.From.Node] = append(g.children[conn.From.Node], conn.To.Node)
		g.parents[conn.To.Node] = append(g.parents[conn.To.Node], conn.From.Node)
	}

	// A required port with no default must be fed by a literal or a connection.
	for id, c := range g.caps {
		spec := g.nodes[id]
		for _, port := range c.Inputs() {
			if !port.Required || port.Default != nil {
				continue
			}
			if spec.Inputs != nil {
				if _, ok := spec.Inputs[port.Name]; ok {
					continue
				}
			}
			if _, ok := g.inbound[id][port.Name]; ok {
				continue
			}
			errs = append(errs, ValidationError{
				Code: CodeMissingInput, Node: id, Port: port.Name,
				Message: fmt.Sprintf("required input %q has no value and no incoming connection", port.Name),
			})
		}
	}

	levels, cycleErr := g.computeLevels()
	if cycleErr != nil {
		errs = append(errs, *cycleErr)
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool {
			if errs[i].Node != errs[j].Node {
				return errs[i].Node < errs[j].Node
			}
			return errs[i].Code < errs[j].Code
		})
		return nil, errs
	}
	g.levels = levels
	return g, nil
}

// computeLevels partitions nodes by dependency depth using repeated removal
// of zero-indegree nodes. Any node left unremoved indicates a cycle.
func (g *Graph) computeLevels() ([][]string, *ValidationError) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.parents[id])
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var levels [][]string
	removed := 0
	for len(ready) > 0 {
		level := ready
		ready = nil
		levels = append(levels, level)
		removed += len(level)
		for _, id := range level {
			for _, child := range g.children[id] {
				inDegree[child]--
				if inDegree[child] == 0 {
					ready = append(ready, child)
				}
			}
		}
		sort.Strings(ready)
	}

	if removed != len(g.nodes) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, &ValidationError{
			Code:    CodeCyclicGraph,
			Message: fmt.Sprintf("cycle involving nodes %v", stuck),
		}
	}
	return levels, nil
}

// Levels returns the execution levels in dependency order. Every dependency
// of a level-k node lies in an earlier level.
func (g *Graph) Levels() [][]string { return g.levels }

func (g *Graph) Node(id string) *synckit.NodeSpec      { return g.nodes[id] }
func (g *Graph) Capability(id string) nodes.Capability { return g.caps[id] }
func (g *Graph) Children(id string) []string           { return g.children[id] }
func (g *Graph) Parents(id string) []string            { return g.parents[id] }
func (g *Graph) NodeCount() int                        { return len(g.nodes) }

// Inbound returns the connection feeding the given input port, if any.
func (g *Graph) Inbound(nodeID, input string) (synckit.Connection, bool) {
	c, ok := g.inbound[nodeID][input]
	return c, ok
}

// InboundPorts returns all connected input ports of a node.
func (g *Graph) InboundPorts(nodeID string) map[string]synckit.Connection {
	return g.inbound[nodeID]
}

func hasInput(c nodes.Capability, name string) bool {
	for _, p := range c.Inputs() {
		if p.Name == name {
			return true
		}
	}
	return false
}

func hasOutput(c nodes.Capability, name string) bool {
	for _, p := range c.Outputs() {
		if p.Name == name {
			return true
		}
	}
	return false
}
