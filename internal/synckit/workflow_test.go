package synckit

import (
	"errors"
	"testing"
)

func TestParseWorkflow_Valid(t *testing.T) {
	doc := []byte(`{
		"version": "1.0",
		"nodes": [
			{"id": "load", "type": "load_directory", "inputs": {"path": "/media/in"}},
			{"id": "extract", "type": "extract_audio"}
		],
		"connections": [
			{"from": {"node": "load", "output": "directory"},
			 "to": {"node": "extract", "input": "video_directory"}}
		]
	}`)

	wf, err := ParseWorkflow(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(wf.Nodes) != 2 || len(wf.Connections) != 1 {
		t.Fatalf("got %d nodes, %d connections", len(wf.Nodes), len(wf.Connections))
	}
	if wf.Nodes[0].Inputs["path"] != "/media/in" {
		t.Fatalf("literal input not preserved: %v", wf.Nodes[0].Inputs)
	}
	c := wf.Connections[0]
	if c.From.Node != "load" || c.From.Output != "directory" || c.To.Node != "extract" || c.To.Input != "video_directory" {
		t.Fatalf("connection mis-parsed: %+v", c)
	}
}

func TestParseWorkflow_Malformed(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing version", `{"nodes": [{"id": "a", "type": "t"}]}`},
		{"no nodes", `{"version": "1", "nodes": []}`},
		{"node without id", `{"version": "1", "nodes": [{"type": "t"}]}`},
		{"node without type", `{"version": "1", "nodes": [{"id": "a"}]}`},
		{"incomplete connection", `{
			"version": "1",
			"nodes": [{"id": "a", "type": "t"}],
			"connections": [{"from": {"node": "a"}, "to": {"node": "a", "input": "x"}}]
		}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseWorkflow([]byte(tc.doc))
			if !errors.Is(err, ErrMalformedWorkflow) {
				t.Fatalf("expected ErrMalformedWorkflow, got %v", err)
			}
		})
	}
}

func TestParseWorkflow_PositionIgnoredButPreserved(t *testing.T) {
	doc := []byte(`{
		"version": "1",
		"nodes": [{"id": "a", "type": "t", "position": {"x": 120, "y": 40}}]
	}`)
	wf, err := ParseWorkflow(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if wf.Nodes[0].Position["x"] != float64(120) {
		t.Fatalf("position dropped: %v", wf.Nodes[0].Position)
	}
}

func TestNodeStatus_Terminal(t *testing.T) {
	terminal := []NodeStatus{StatusSuccess, StatusFailed, StatusSkippedCached, StatusSkippedDepFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []NodeStatus{StatusPending, StatusRunning} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestNodeStatus_BlocksDependents(t *testing.T) {
	blocking := map[NodeStatus]bool{
		StatusFailed:           true,
		StatusCancelled:        true,
		StatusSkippedDepFailed: true,
		StatusSuccess:          false,
		StatusSkippedCached:    false,
		StatusPending:          false,
		StatusRunning:          false,
	}
	for s, want := range blocking {
		if got := s.BlocksDependents(); got != want {
			t.Errorf("%s.BlocksDependents() = %v, want %v", s, got, want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID("run")
	b := GenerateID("run")
	if a == b {
		t.Fatal("ids should be unique")
	}
	if len(a) != len("run-")+16 {
		t.Fatalf("unexpected id shape: %q", a)
	}
}
