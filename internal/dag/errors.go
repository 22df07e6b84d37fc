package dag

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a workflow validation failure.
type ErrorCode string

const (
	CodeUnknownNodeType  ErrorCode = "UnknownNodeType"
	CodeUnknownNode      ErrorCode = "UnknownNode"
	CodeDuplicateNode    ErrorCode = "DuplicateNode"
	CodeUnknownPort      ErrorCode = "UnknownPort"
	CodeMissingInput     ErrorCode = "MissingInput"
	CodeDuplicateBinding ErrorCode = "DuplicateBinding"
	CodeCyclicGraph      ErrorCode = "CyclicGraph"
)

// ValidationError is one problem found while building the execution graph.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Node    string    `json:"node,omitempty"`
	Port    string    `json:"port,omitempty"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: node %q: %s", e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationErrors collects every problem found in a single validation pass
// rather than stopping at the first.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(e), strings.Join(msgs, "; "))
}
