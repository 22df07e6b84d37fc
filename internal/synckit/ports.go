package synckit

// PortType tags the kind of value a port carries between nodes.
type PortType string

const (
	PortPath      PortType = "path"      // single file path
	PortDirectory PortType = "directory" // directory path
	PortText      PortType = "text"      // free-form string
	PortNumber    PortType = "number"    // numeric value
	PortBoolean   PortType = "boolean"   // true/false
	PortRecord    PortType = "record"    // structured JSON record
	PortPathList  PortType = "path_list" // list of file paths
)

// InputPort declares a named, typed input on a node capability.
// Required inputs with no default must be bound by a literal or a connection
// before the workflow validates.
type InputPort struct {
	Name        string   `json:"name"`
	Type        PortType `json:"type"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
}

// OutputPort declares a named, typed output on a node capability.
type OutputPort struct {
	Name        string   `json:"name"`
	Type        PortType `json:"type"`
	Description string   `json:"description,omitempty"`
}
