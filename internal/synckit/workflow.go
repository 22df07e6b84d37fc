package synckit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedWorkflow marks a workflow document whose shape is invalid
// before any graph building happens.
var ErrMalformedWorkflow = errors.New("malformed workflow")

// WorkflowDefinition is the persisted workflow document: a node set plus
// the connections between their ports.
type WorkflowDefinition struct {
	Version     string       `json:"version"`
	Metadata    Metadata     `json:"metadata,omitempty"`
	Nodes       []NodeSpec   `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Metadata is opaque document metadata, ignored by execution.
type Metadata map[string]any

// NodeSpec describes one node instance in a workflow document.
// Inputs maps port names to literal values; ports fed by connections are
// left unbound here. Position is UI metadata and has no execution meaning.
type NodeSpec struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Inputs   map[string]any `json:"inputs,omitempty"`
	Position map[string]any `json:"position,omitempty"`
}

// SourceEndpoint names a node output port.
type SourceEndpoint struct {
	Node   string `json:"node"`
	Output string `json:"output"`
}

// DestEndpoint names a node input port.
type DestEndpoint struct {
	Node  string `json:"node"`
	Input string `json:"input"`
}

// Connection routes one node's output port into another node's input port.
type Connection struct {
	From SourceEndpoint `json:"from"`
	To   DestEndpoint   `json:"to"`
}

// ParseWorkflow decodes and shape-checks a workflow document.
func ParseWorkflow(data []byte) (*WorkflowDefinition, error) {
	var wf WorkflowDefinition
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkflow, err)
	}
	if wf.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedWorkflow)
	}
	if len(wf.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedWorkflow)
	}
	for i, n := range wf.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrMalformedWorkflow, i)
		}
		if n.Type == "" {
			return nil, fmt.Errorf("%w: node %q has no type", ErrMalformedWorkflow, n.ID)
		}
	}
	for i, c := range wf.Connections {
		if c.From.Node == "" || c.From.Output == "" || c.To.Node == "" || c.To.Input == "" {
			return nil, fmt.Errorf("%w: connection %d is incomplete", ErrMalformedWorkflow, i)
		}
	}
	return &wf, nil
}

// LoadWorkflow reads and parses a workflow document from disk.
func LoadWorkflow(path string) (*WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	return ParseWorkflow(data)
}
