package nodes

import (
	"context"

	"github.com/synckit/synckit/internal/synckit"
)

// Capability is the contract every node type implements. The engine is
// agnostic to what Execute does internally; it relies only on the declared
// ports and the single entry point.
type Capability interface {
	// Type is the registered capability name referenced by workflow documents.
	Type() string
	Description() string
	// Category groups capabilities for listing (input, video, storage, api, utility).
	Category() string
	Inputs() []synckit.InputPort
	Outputs() []synckit.OutputPort
	// Execute runs the node with fully resolved inputs and returns its outputs.
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// ExecuteFunc adapts a plain function into a Capability. Tests use it to
// substitute canned outputs or errors for real external services.
type ExecuteFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// FuncCapability is a Capability built from declared ports and a function.
type FuncCapability struct {
	TypeName    string
	Desc        string
	Cat         string
	InputPorts  []synckit.InputPort
	OutputPorts []synckit.OutputPort
	Fn          ExecuteFunc
}

func (f *FuncCapability) Type() string                    { return f.TypeName }
func (f *FuncCapability) Description() string             { return f.Desc }
func (f *FuncCapability) Category() string                { return f.Cat }
func (f *FuncCapability) Inputs() []synckit.InputPort     { return f.InputPorts }
func (f *FuncCapability) Outputs() []synckit.OutputPort   { return f.OutputPorts }
func (f *FuncCapability) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return f.Fn(ctx, inputs)
}
