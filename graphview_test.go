package main

import (
	"strings"
	"testing"
)

func newStageFixture() (*GraphStore, *GraphBuilder, *GraphStage) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	return g, b, NewGraphStage(g, b)
}

func TestConnectTargetResolvesNearestHandle(t *testing.T) {
	g, _, stage := newStageFixture()
	g.AddNode(GraphNode{ID: "wf", Kind: NodeWorkflow, X: 100, Y: 100, Width: 190, Height: 100})

	// Near the top of the left edge: the prompt handle at 25% height.
	id, handle, ok := stage.ConnectTarget(Point{98, 122}, 1.0)
	if !ok || id != "wf" || handle != HandlePrompt {
		t.Errorf("expected prompt handle, got %q %q %v", id, handle, ok)
	}

	// Near the bottom: the reference handle at 75% height.
	_, handle, ok = stage.ConnectTarget(Point{98, 178}, 1.0)
	if !ok || handle != HandleReference {
		t.Errorf("expected reference handle, got %q %v", handle, ok)
	}

	// Far from any workflow: no target.
	if _, _, ok := stage.ConnectTarget(Point{500, 500}, 1.0); ok {
		t.Error("open space should not resolve to a handle")
	}
}

func TestConnectTargetIgnoresNonWorkflows(t *testing.T) {
	g, _, stage := newStageFixture()
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt, X: 0, Y: 0, Width: 170, Height: 80})
	if _, _, ok := stage.ConnectTarget(Point{5, 40}, 1.0); ok {
		t.Error("prompt nodes take no incoming handles")
	}
}

func TestHitTestFindsOutputConnector(t *testing.T) {
	g, _, stage := newStageFixture()
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt, X: 0, Y: 0, Width: 170, Height: 80})

	hit := stage.HitTest(Point{172, 40}, 1.0)
	if hit.Kind != HitConnector || hit.ID != "p" {
		t.Errorf("expected connector hit, got %+v", hit)
	}

	hit = stage.HitTest(Point{50, 40}, 1.0)
	if hit.Kind != HitBody {
		t.Errorf("expected body hit, got %+v", hit)
	}
}

func TestCompleteEdgeValidates(t *testing.T) {
	g, _, stage := newStageFixture()
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt, X: 0, Y: 0})
	g.AddNode(GraphNode{ID: "out", Kind: NodeOutputImage, X: 0, Y: 200})
	g.AddNode(GraphNode{ID: "wf", Kind: NodeWorkflow, X: 400, Y: 0})

	if err := stage.CompleteEdge("out", "", "wf", HandlePrompt); err == nil {
		t.Error("image into prompt handle should fail validation")
	}
	if len(g.Edges()) != 0 {
		t.Error("failed validation must not add an edge")
	}

	if err := stage.CompleteEdge("p", "", "wf", HandlePrompt); err != nil {
		t.Fatalf("valid edge rejected: %v", err)
	}
	if !g.HasEdge("p", "wf", HandlePrompt) {
		t.Error("edge should exist after CompleteEdge")
	}
	if g.Edges()[0].Color != edgeColorPrompt {
		t.Errorf("edge should carry the handle color, got %q", g.Edges()[0].Color)
	}
}

func TestMoveByPinsPosition(t *testing.T) {
	g, b, stage := newStageFixture()
	b.Rebuild([]Generation{makeGen("a red fox in snow", nil, nil)})

	var promptID string
	for _, n := range g.Nodes() {
		if n.Kind == NodePrompt {
			promptID = n.ID
		}
	}
	stage.MoveBy([]string{promptID}, Point{111, 222})
	moved, _ := g.Node(promptID)

	// The drag is echoed into the builder, so a rebuild keeps it.
	b.Rebuild([]Generation{makeGen("a red fox in snow", nil, nil)})
	after, _ := g.Node(promptID)
	if after.X != moved.X || after.Y != moved.Y {
		t.Errorf("dragged position lost: %+v vs %+v", after, moved)
	}
}

func TestRemoveSelectedSkipsConnectedNodes(t *testing.T) {
	g, _, stage := newStageFixture()
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt})
	g.AddNode(GraphNode{ID: "wf", Kind: NodeWorkflow})
	g.AddNode(GraphNode{ID: "lone", Kind: NodePrompt})
	g.AddEdge(GraphEdge{From: "p", To: "wf", ToHandle: HandlePrompt})

	stage.SetSelection([]string{"p", "lone"}, false)
	removed, err := stage.RemoveSelected()
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if err == nil {
		t.Error("connected node should report a refusal")
	}
	if _, ok := g.Node("p"); !ok {
		t.Error("connected node must survive")
	}
	if _, ok := g.Node("lone"); ok {
		t.Error("lone node should be removed")
	}
}

func TestRenderGraphShowsNodes(t *testing.T) {
	g, _, _ := newStageFixture()
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt, Label: "a red fox", X: 5, Y: 5, Width: 60, Height: 20})
	lines := renderGraph(g, NewViewport(), 100, 40, Point{}, Point{}, false, Rect{}, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "a red fox") {
		t.Error("node label should be rendered")
	}
	if len(lines) != 40 {
		t.Errorf("expected 40 rows, got %d", len(lines))
	}
}

func TestHistoryStageRejectsDrawnEdges(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutChronological)
	stage := NewHistoryStage(g, b)
	g.AddNode(GraphNode{ID: "p", Kind: NodePrompt, X: 0, Y: 0})
	g.AddNode(GraphNode{ID: "wf", Kind: NodeWorkflow, X: 400, Y: 0})

	err := stage.CompleteEdge("p", "", "wf", HandlePrompt)
	if err == nil {
		t.Fatal("merged-history stage should refuse edge creation")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error should say the view is read-only, got %q", err)
	}
	if len(g.Edges()) != 0 {
		t.Errorf("no edge may be recorded, got %d", len(g.Edges()))
	}
}
