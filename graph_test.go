package main

import "testing"

func newTestGraph() *GraphStore {
	g := NewGraphStore()
	g.AddNode(GraphNode{ID: "p1", Kind: NodePrompt, Label: "a red fox", Text: "a red fox"})
	g.AddNode(GraphNode{ID: "p2", Kind: NodePrompt, Label: "a blue bird", Text: "a blue bird"})
	g.AddNode(GraphNode{ID: "wf", Kind: NodeWorkflow, Label: "generate"})
	g.AddNode(GraphNode{ID: "ctl", Kind: NodeControlImage, Label: "pose"})
	g.AddNode(GraphNode{ID: "out", Kind: NodeOutputImage, Label: "result"})
	g.AddNode(GraphNode{ID: "txt", Kind: NodeOutputText, Label: "caption"})
	return g
}

func TestAddEdgeSuppressesDuplicates(t *testing.T) {
	g := newTestGraph()
	if !g.AddEdge(GraphEdge{From: "p1", To: "wf", ToHandle: HandlePrompt}) {
		t.Fatal("first add should succeed")
	}
	if g.AddEdge(GraphEdge{From: "p1", To: "wf", ToHandle: HandlePrompt}) {
		t.Error("duplicate triple should be suppressed")
	}
	if len(g.Edges()) != 1 {
		t.Errorf("expected 1 edge, got %d", len(g.Edges()))
	}
	// Same pair, different handle is a distinct edge.
	if !g.AddEdge(GraphEdge{From: "ctl", To: "wf", ToHandle: HandleControl}) {
		t.Error("different handle should not be treated as duplicate")
	}
}

func TestValidateEdgeRejectsSelf(t *testing.T) {
	g := newTestGraph()
	if err := g.ValidateEdge("wf", "wf", HandlePrompt); err == nil {
		t.Error("self edge should be rejected")
	}
}

func TestValidateEdgeTargetMustBeWorkflow(t *testing.T) {
	g := newTestGraph()
	if err := g.ValidateEdge("p1", "out", HandlePrompt); err == nil {
		t.Error("edges must target a workflow")
	}
}

func TestValidateEdgePromptHandleAcceptsOnlyPrompts(t *testing.T) {
	g := newTestGraph()
	if err := g.ValidateEdge("out", "wf", HandlePrompt); err == nil {
		t.Error("output image into prompt handle should be rejected")
	}
	if err := g.ValidateEdge("p1", "wf", HandlePrompt); err != nil {
		t.Errorf("prompt into prompt handle should pass: %v", err)
	}
}

func TestValidateEdgePromptHandleSingleCardinality(t *testing.T) {
	g := newTestGraph()
	g.AddEdge(GraphEdge{From: "p1", To: "wf", ToHandle: HandlePrompt})
	if err := g.ValidateEdge("p2", "wf", HandlePrompt); err == nil {
		t.Error("second prompt edge should be rejected")
	}
}

func TestValidateEdgeImageHandles(t *testing.T) {
	g := newTestGraph()
	if err := g.ValidateEdge("ctl", "wf", HandleControl); err != nil {
		t.Errorf("control image into control handle should pass: %v", err)
	}
	if err := g.ValidateEdge("out", "wf", HandleReference); err != nil {
		t.Errorf("output image into reference handle should pass: %v", err)
	}
	if err := g.ValidateEdge("txt", "wf", HandleControl); err == nil {
		t.Error("text node into control handle should be rejected")
	}
	if err := g.ValidateEdge("p1", "wf", "bogus"); err == nil {
		t.Error("unknown handle should be rejected")
	}
}

func TestRemoveNodeGuardedByEdges(t *testing.T) {
	g := newTestGraph()
	g.AddEdge(GraphEdge{From: "p1", To: "wf", ToHandle: HandlePrompt})
	if err := g.RemoveNode("p1"); err == nil {
		t.Error("node with edges should not be removable")
	}
	g.RemoveEdge("p1", "wf", HandlePrompt)
	if err := g.RemoveNode("p1"); err != nil {
		t.Errorf("node without edges should be removable: %v", err)
	}
	if _, ok := g.Node("p1"); ok {
		t.Error("p1 should be gone")
	}
}

func TestIncomingEdgesPreserveOrder(t *testing.T) {
	g := newTestGraph()
	g.AddNode(GraphNode{ID: "ref", Kind: NodeReferenceImage})
	g.AddEdge(GraphEdge{From: "ctl", To: "wf", ToHandle: HandleControl})
	g.AddEdge(GraphEdge{From: "ref", To: "wf", ToHandle: HandleReference})
	g.AddEdge(GraphEdge{From: "p1", To: "wf", ToHandle: HandlePrompt})
	in := g.IncomingEdges("wf")
	if len(in) != 3 {
		t.Fatalf("expected 3 incoming edges, got %d", len(in))
	}
	if in[0].From != "ctl" || in[1].From != "ref" || in[2].From != "p1" {
		t.Errorf("insertion order not preserved: %v", in)
	}
}

func TestHandleAnchorsStackTopToBottom(t *testing.T) {
	n := GraphNode{X: 0, Y: 0, Width: 100, Height: 100}
	p := handleAnchor(n, HandlePrompt)
	c := handleAnchor(n, HandleControl)
	r := handleAnchor(n, HandleReference)
	if !(p.Y < c.Y && c.Y < r.Y) {
		t.Errorf("handles out of order: %f %f %f", p.Y, c.Y, r.Y)
	}
	if p.X != 0 || c.X != 0 || r.X != 0 {
		t.Error("input handles sit on the left edge")
	}
}

func TestSampleCurveEndpoints(t *testing.T) {
	p0 := Point{0, 0}
	p3 := Point{100, 50}
	pts := sampleCurve(p0, Point{50, 0}, Point{50, 50}, p3, 10)
	if len(pts) != 11 {
		t.Fatalf("expected 11 samples, got %d", len(pts))
	}
	if pts[0] != p0 || pts[10] != p3 {
		t.Errorf("curve should interpolate endpoints: %v .. %v", pts[0], pts[10])
	}
}
