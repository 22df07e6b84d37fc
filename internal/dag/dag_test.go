package dag

import (
	"context"
	"testing"

	"github.com/synckit/synckit/internal/nodes"
	"github.com/synckit/synckit/internal/synckit"
)

func testRegistry() *nodes.Registry {
	r := nodes.NewRegistry()
	r.Register(&nodes.FuncCapability{
		TypeName: "source",
		OutputPorts: []synckit.OutputPort{
			{Name: "path", Type: synckit.PortPath},
		},
		Fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"path": "/tmp/a"}, nil
		},
	})
	r.Register(&nodes.FuncCapability{
		TypeName: "transform",
		InputPorts: []synckit.InputPort{
			{Name: "video_path", Type: synckit.PortPath, Required: true},
		},
		OutputPorts: []synckit.OutputPort{
			{Name: "path", Type: synckit.PortPath},
		},
		Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
			return map[string]any{"path": in["video_path"]}, nil
		},
	})
	return r
}

func conn(fromNode, output, toNode, input string) synckit.Connection {
	return synckit.Connection{
		From: synckit.SourceEndpoint{Node: fromNode, Output: output},
		To:   synckit.DestEndpoint{Node: toNode, Input: input},
	}
}

func TestBuild_LevelsFollowDependencyDepth(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "a", Type: "source"},
			{ID: "b", Type: "source"},
			{ID: "c", Type: "transform"},
			{ID: "d", Type: "transform"},
		},
		Connections: []synckit.Connection{
			conn("a", "path", "c", "video_path"),
			conn("c", "path", "d", "video_path"),
		},
	}

	g, err := Build(wf, testRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	levels := g.Levels()
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	// Independent roots share level 0, sorted for determinism.
	if levels[0][0] != "a" || levels[0][1] != "b" {
		t.Fatalf("level 0 = %v, want [a b]", levels[0])
	}
	if levels[1][0] != "c" || levels[2][0] != "d" {
		t.Fatalf("levels = %v", levels)
	}
}

func TestBuild_CyclicGraph(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "x", Type: "transform"},
			{ID: "y", Type: "transform"},
		},
		Connections: []synckit.Connection{
			conn("x", "path", "y", "video_path"),
			conn("y", "path", "x", "video_path"),
		},
	}

	g, err := Build(wf, testRegistry())
	if g != nil {
		t.Fatal("expected nil graph for cyclic workflow")
	}
	verrs := mustValidationErrors(t, err)
	if !hasCode(verrs, CodeCyclicGraph) {
		t.Fatalf("expected CyclicGraph, got %v", verrs)
	}
}

func TestBuild_DuplicateNodeID(t *testing.T) {
	// Three declared nodes sharing one id must not collapse into a single
	// executable node.
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "n", Type: "source"},
			{ID: "n", Type: "source"},
			{ID: "n", Type: "source"},
		},
	}

	g, err := Build(wf, testRegistry())
	if g != nil {
		t.Fatal("expected nil graph for duplicate node ids")
	}
	verrs := mustValidationErrors(t, err)
	dupes := 0
	for _, ve := range verrs {
		if ve.Code == CodeDuplicateNode && ve.Node == "n" {
			dupes++
		}
	}
	// One error per repeated declaration.
	if dupes != 2 {
		t.Fatalf("expected 2 DuplicateNode errors, got %v", verrs)
	}
}

func TestBuild_UnknownNodeType(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes:   []synckit.NodeSpec{{ID: "n1", Type: "does_not_exist"}},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if len(verrs) != 1 || verrs[0].Code != CodeUnknownNodeType || verrs[0].Node != "n1" {
		t.Fatalf("got %v", verrs)
	}
}

func TestBuild_UnknownNodeInConnection(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes:   []synckit.NodeSpec{{ID: "a", Type: "source"}},
		Connections: []synckit.Connection{
			conn("a", "path", "ghost", "video_path"),
		},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if !hasCode(verrs, CodeUnknownNode) {
		t.Fatalf("expected UnknownNode, got %v", verrs)
	}
}

func TestBuild_UnknownPort(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "a", Type: "source"},
			{ID: "b", Type: "transform"},
		},
		Connections: []synckit.Connection{
			conn("a", "nope", "b", "video_path"),
		},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if !hasCode(verrs, CodeUnknownPort) {
		t.Fatalf("expected UnknownPort, got %v", verrs)
	}
}

func TestBuild_DuplicateBindingTwoConnections(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "a", Type: "source"},
			{ID: "b", Type: "source"},
			{ID: "x", Type: "transform"},
		},
		Connections: []synckit.Connection{
			conn("a", "path", "x", "video_path"),
			conn("b", "path", "x", "video_path"),
		},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	found := false
	for _, ve := range verrs {
		if ve.Code == CodeDuplicateBinding && ve.Node == "x" && ve.Port == "video_path" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected DuplicateBinding on x.video_path, got %v", verrs)
	}
}

func TestBuild_DuplicateBindingLiteralAndConnection(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "a", Type: "source"},
			{ID: "x", Type: "transform", Inputs: map[string]any{"video_path": "/tmp/literal.mp4"}},
		},
		Connections: []synckit.Connection{
			conn("a", "path", "x", "video_path"),
		},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if !hasCode(verrs, CodeDuplicateBinding) {
		t.Fatalf("expected DuplicateBinding, got %v", verrs)
	}
}

func TestBuild_MissingInput(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes:   []synckit.NodeSpec{{ID: "x", Type: "transform"}},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if len(verrs) != 1 || verrs[0].Code != CodeMissingInput || verrs[0].Port != "video_path" {
		t.Fatalf("got %v", verrs)
	}
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "bad", Type: "does_not_exist"},
			{ID: "x", Type: "transform"}, // missing required video_path
		},
		Connections: []synckit.Connection{
			conn("ghost", "path", "x", "video_path"),
		},
	}

	_, err := Build(wf, testRegistry())
	verrs := mustValidationErrors(t, err)
	if len(verrs) < 3 {
		t.Fatalf("expected all errors reported together, got %v", verrs)
	}
	if !hasCode(verrs, CodeUnknownNodeType) || !hasCode(verrs, CodeUnknownNode) || !hasCode(verrs, CodeMissingInput) {
		t.Fatalf("missing expected codes in %v", verrs)
	}
}

func TestBuild_RequiredPortFedByConnectionIsSatisfied(t *testing.T) {
	wf := &synckit.WorkflowDefinition{
		Version: "1",
		Nodes: []synckit.NodeSpec{
			{ID: "a", Type: "source"},
			{ID: "x", Type: "transform"},
		},
		Connections: []synckit.Connection{
			conn("a", "path", "x", "video_path"),
		},
	}

	g, err := Build(wf, testRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := g.Inbound("x", "video_path"); !ok {
		t.Fatal("expected inbound connection on x.video_path")
	}
	if got := g.Parents("x"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("parents = %v, want [a]", got)
	}
}

func mustValidationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	return verrs
}

func hasCode(errs ValidationErrors, code ErrorCode) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}
