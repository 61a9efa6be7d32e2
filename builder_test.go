package main

import "testing"

func makeGen(prompt string, inputs []ImageRef, outputs []string) Generation {
	g := NewGeneration(prompt, GenerationParams{Model: "m1"}, inputs)
	g.Outputs = outputs
	g.Status = GenerationCompleted
	return g
}

func nodesOfKind(g *GraphStore, kind NodeKind) []GraphNode {
	var out []GraphNode
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestRebuildSynthesizesTile(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gen := makeGen("a red fox in snow", []ImageRef{{ID: "img1", Role: "control"}}, []string{"out1"})
	b.Rebuild([]Generation{gen})

	if len(nodesOfKind(g, NodePrompt)) != 1 {
		t.Error("expected one prompt node")
	}
	if len(nodesOfKind(g, NodeWorkflow)) != 1 {
		t.Error("expected one workflow node")
	}
	if len(nodesOfKind(g, NodeControlImage)) != 1 {
		t.Error("control role should map to a control-image node")
	}
	if len(nodesOfKind(g, NodeOutputImage)) != 1 {
		t.Error("expected one output node")
	}
	// prompt->wf, ctl->wf, wf->out
	if len(g.Edges()) != 3 {
		t.Errorf("expected 3 edges, got %d", len(g.Edges()))
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gens := []Generation{
		makeGen("a red fox in snow", nil, []string{"out1"}),
		makeGen("a blue bird", nil, nil),
	}
	b.Rebuild(gens)
	nodes, edges := len(g.Nodes()), len(g.Edges())
	b.Rebuild(gens)
	if len(g.Nodes()) != nodes || len(g.Edges()) != edges {
		t.Errorf("rebuild not idempotent: %d/%d -> %d/%d", nodes, edges, len(g.Nodes()), len(g.Edges()))
	}
}

func TestSharedPromptCollapsesToOneNode(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	g1 := makeGen("a red fox in snow", nil, []string{"out1"})
	g2 := NewGeneration("a red fox in snow", GenerationParams{Model: "m2"}, nil)
	g2.Outputs = []string{"out2"}
	b.Rebuild([]Generation{g1, g2})

	if n := len(nodesOfKind(g, NodePrompt)); n != 1 {
		t.Errorf("identical prompts should share one node, got %d", n)
	}
	if n := len(nodesOfKind(g, NodeWorkflow)); n != 2 {
		t.Errorf("different params mean distinct workflows, got %d", n)
	}
}

func TestEmptyPromptGetsPlaceholder(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	b.Rebuild([]Generation{makeGen("", nil, nil)})
	prompts := nodesOfKind(g, NodePrompt)
	if len(prompts) != 1 {
		t.Fatalf("empty prompt should still produce a node, got %d", len(prompts))
	}
	if prompts[0].Label != promptPlaceholder {
		t.Errorf("expected placeholder label, got %q", prompts[0].Label)
	}
}

func TestNoOutputsNoOutputNodes(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gen := makeGen("pending work", nil, nil)
	gen.Status = GenerationPending
	b.Rebuild([]Generation{gen})
	if len(nodesOfKind(g, NodeOutputImage)) != 0 {
		t.Error("pending generation should have no output nodes")
	}
	wf := nodesOfKind(g, NodeWorkflow)[0]
	if wf.Status != GenerationPending {
		t.Errorf("workflow should carry status, got %q", wf.Status)
	}
}

func TestNodeIDsStableAcrossRebuilds(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gens := []Generation{makeGen("a red fox in snow", nil, []string{"out1"})}
	b.Rebuild(gens)
	var before string
	for _, n := range g.Nodes() {
		if n.Kind == NodePrompt {
			before = n.ID
		}
	}
	gens = append(gens, makeGen("a blue bird", nil, nil))
	b.Rebuild(gens)
	for _, n := range g.Nodes() {
		if n.Kind == NodePrompt && n.Text == "a red fox in snow" {
			if n.ID != before {
				t.Errorf("prompt node id changed across rebuilds: %q -> %q", before, n.ID)
			}
		}
	}
}

func TestManualPositionsSurviveRebuild(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gens := []Generation{makeGen("a red fox in snow", nil, nil)}
	b.Rebuild(gens)

	var promptID string
	for _, n := range g.Nodes() {
		if n.Kind == NodePrompt {
			promptID = n.ID
		}
	}
	g.UpdateNode(promptID, func(n *GraphNode) { n.X, n.Y = 777, 888 })
	b.NotePosition(promptID, Point{777, 888})

	gens = append(gens, makeGen("a blue bird", nil, nil))
	b.Rebuild(gens)

	n, ok := g.Node(promptID)
	if !ok {
		t.Fatal("prompt node vanished")
	}
	if n.X != 777 || n.Y != 888 {
		t.Errorf("dragged position should stick, got (%f, %f)", n.X, n.Y)
	}
}

func TestStandaloneNodesSurviveRebuild(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	id := b.AddStandaloneNode(NodePrompt, "sketchy idea", "sketchy idea", Point{0, 0})
	b.Rebuild([]Generation{makeGen("a red fox in snow", nil, nil)})
	if _, ok := g.Node(id); !ok {
		t.Error("standalone node should survive rebuild")
	}
}

func TestUserDrawnEdgesSurviveRebuild(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	gens := []Generation{makeGen("a red fox in snow", nil, []string{"out1"})}
	b.Rebuild(gens)

	var wfID, outID string
	for _, n := range g.Nodes() {
		switch n.Kind {
		case NodeWorkflow:
			wfID = n.ID
		case NodeOutputImage:
			outID = n.ID
		}
	}
	// User routes the output back in as a reference input.
	if err := g.ValidateEdge(outID, wfID, HandleReference); err != nil {
		t.Fatalf("edge should validate: %v", err)
	}
	g.AddEdge(GraphEdge{From: outID, To: wfID, ToHandle: HandleReference})

	b.Rebuild(gens)
	if !g.HasEdge(outID, wfID, HandleReference) {
		t.Error("user-drawn edge should survive rebuild")
	}
}

func TestChronologicalLayoutStacksVertically(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutChronological)
	b.Rebuild([]Generation{
		makeGen("first", nil, nil),
		makeGen("second", nil, nil),
	})
	wfs := nodesOfKind(g, NodeWorkflow)
	if len(wfs) != 2 {
		t.Fatalf("expected 2 workflows, got %d", len(wfs))
	}
	if wfs[0].X != wfs[1].X {
		t.Errorf("chronological layout keeps one column: %f vs %f", wfs[0].X, wfs[1].X)
	}
	if wfs[0].Y == wfs[1].Y {
		t.Error("rows should not overlap")
	}
}

func TestTruncateLabel(t *testing.T) {
	if got := truncateLabel("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateLabel("a very long prompt indeed", 10); got != "a very ..." {
		t.Errorf("got %q", got)
	}
	if got := truncateLabel("line\nbreak", 20); got != "line break" {
		t.Errorf("newlines should flatten, got %q", got)
	}
}

func TestSessionGridWrapsBelowTallestRowTile(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)

	// First tile stacks six inputs, so it is far taller than its neighbor.
	tallInputs := []ImageRef{
		{ID: "i1", Role: "reference"}, {ID: "i2", Role: "reference"},
		{ID: "i3", Role: "reference"}, {ID: "i4", Role: "reference"},
		{ID: "i5", Role: "reference"}, {ID: "i6", Role: "reference"},
	}
	g1 := makeGen("tall", tallInputs, []string{"o1"})
	g2 := makeGen("neighbor", nil, nil)
	g3 := makeGen("wrapped", nil, nil)
	b.Rebuild([]Generation{g1, g2, g3})

	var row1Bottom float64
	for _, n := range g.Nodes() {
		if n.GenerationID == g1.ID && n.Y+n.Height > row1Bottom {
			row1Bottom = n.Y + n.Height
		}
	}
	for _, n := range g.Nodes() {
		if n.GenerationID == g3.ID && n.Y < row1Bottom {
			t.Fatalf("second row starts at %.0f, inside the first row (bottom %.0f)", n.Y, row1Bottom)
		}
	}
}
