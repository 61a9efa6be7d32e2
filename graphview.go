package main

import "fmt"

// GraphStage adapts the provenance graph to the pointer state machine.
// Moves are echoed into the builder so manual positions survive the
// next rebuild.
type GraphStage struct {
	graph    *GraphStore
	builder  *GraphBuilder
	editable bool
	dirty    bool
}

func NewGraphStage(graph *GraphStore, builder *GraphBuilder) *GraphStage {
	return &GraphStage{graph: graph, builder: builder, editable: true}
}

// NewHistoryStage wraps a merged, derived graph: gestures work for
// browsing, but drawn edges would be discarded on the next merge, so
// edge creation is rejected instead of silently lost.
func NewHistoryStage(graph *GraphStore, builder *GraphBuilder) *GraphStage {
	return &GraphStage{graph: graph, builder: builder}
}

// HitTest checks, topmost-first: the output connector glyph on the
// right edge, then the node body. Workflow input handles are only
// targets, resolved by ConnectTarget while an edge is being drawn.
func (gs *GraphStage) HitTest(world Point, zoom float64) Hit {
	if zoom <= 0 {
		zoom = 1.0
	}
	hot := handleHitSize / zoom
	nodes := gs.graph.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Kind != NodeWorkflow {
			anchor := outputAnchor(n)
			if world.X >= anchor.X-hot/2 && world.X <= anchor.X+hot &&
				world.Y >= anchor.Y-hot && world.Y <= anchor.Y+hot {
				return Hit{Kind: HitConnector, ID: n.ID, Handle: ""}
			}
		}
		if n.Bounds().Contains(world) {
			return Hit{Kind: HitBody, ID: n.ID}
		}
	}
	return Hit{Kind: HitNone}
}

func (gs *GraphStage) IsSelected(id string) bool {
	n, ok := gs.graph.Node(id)
	return ok && n.Selected
}

func (gs *GraphStage) SetSelection(ids []string, additive bool) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	nodes := gs.graph.Nodes()
	for i := range nodes {
		id := nodes[i].ID
		gs.graph.UpdateNode(id, func(n *GraphNode) {
			if additive {
				if want[id] {
					n.Selected = !n.Selected
				}
			} else {
				n.Selected = want[id]
			}
		})
	}
}

func (gs *GraphStage) ClearSelection() {
	for _, n := range gs.graph.Nodes() {
		gs.graph.UpdateNode(n.ID, func(n *GraphNode) { n.Selected = false })
	}
}

func (gs *GraphStage) SelectionIDs() []string {
	var ids []string
	for _, n := range gs.graph.Nodes() {
		if n.Selected {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (gs *GraphStage) SelectInRect(r Rect, additive bool) {
	var ids []string
	for _, n := range gs.graph.Nodes() {
		if r.Contains(n.Bounds().Center()) {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 && !additive {
		gs.ClearSelection()
		return
	}
	gs.SetSelection(ids, additive)
}

func (gs *GraphStage) MoveBy(ids []string, delta Point) {
	for _, id := range ids {
		gs.graph.UpdateNode(id, func(n *GraphNode) {
			n.X += delta.X
			n.Y += delta.Y
			gs.builder.NotePosition(n.ID, Point{n.X, n.Y})
		})
	}
}

func (gs *GraphStage) ResizeTo(id string, width, height float64) {
	if width < minEntitySize {
		width = minEntitySize
	}
	if height < minEntitySize {
		height = minEntitySize
	}
	gs.graph.UpdateNode(id, func(n *GraphNode) {
		n.Width = width
		n.Height = height
	})
}

func (gs *GraphStage) ItemBounds(id string) (Rect, bool) {
	n, ok := gs.graph.Node(id)
	if !ok {
		return Rect{}, false
	}
	return n.Bounds(), true
}

// ConnectTarget resolves a drop point to a workflow input handle. The
// nearest handle anchor within the hotspot wins.
func (gs *GraphStage) ConnectTarget(world Point, zoom float64) (string, string, bool) {
	if zoom <= 0 {
		zoom = 1.0
	}
	hot := handleHitSize / zoom
	nodes := gs.graph.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Kind != NodeWorkflow {
			continue
		}
		grown := Rect{X: n.X - hot, Y: n.Y, Width: n.Width + hot, Height: n.Height}
		if !grown.Contains(world) {
			continue
		}
		best, bestDist := "", 0.0
		for _, handle := range []string{HandlePrompt, HandleControl, HandleReference} {
			a := handleAnchor(n, handle)
			dx, dy := world.X-a.X, world.Y-a.Y
			dist := dx*dx + dy*dy
			if best == "" || dist < bestDist {
				best, bestDist = handle, dist
			}
		}
		return n.ID, best, true
	}
	return "", "", false
}

func (gs *GraphStage) CompleteEdge(fromID, fromHandle, toID, toHandle string) error {
	if !gs.editable {
		return fmt.Errorf("the merged history is read-only")
	}
	if err := gs.graph.ValidateEdge(fromID, toID, toHandle); err != nil {
		return err
	}
	gs.graph.AddEdge(GraphEdge{From: fromID, To: toID, ToHandle: toHandle, Color: edgeColor(toHandle)})
	return nil
}

func (gs *GraphStage) Commit() {
	gs.dirty = true
}

func (gs *GraphStage) TakeDirty() bool {
	d := gs.dirty
	gs.dirty = false
	return d
}

// RemoveSelected deletes selected nodes, skipping any that still have
// edges. Returns how many were removed and the first refusal, if any.
func (gs *GraphStage) RemoveSelected() (int, error) {
	removed := 0
	var firstErr error
	for _, id := range gs.SelectionIDs() {
		if err := gs.graph.RemoveNode(id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// ── cell-grid rendering ──

func nodeGlyph(kind NodeKind) rune {
	switch kind {
	case NodePrompt:
		return '¶'
	case NodeWorkflow:
		return '⚙'
	case NodeControlImage, NodeReferenceImage, NodeOutputImage:
		return '▦'
	case NodeOutputText:
		return '✎'
	}
	return '?'
}

func statusBadge(s GenerationStatus) string {
	switch s {
	case GenerationPending:
		return "…"
	case GenerationFailed:
		return "✗"
	case GenerationCompleted:
		return "✓"
	}
	return ""
}

func drawConnector(grid *cellGrid, view Viewport, from, to GraphNode, toHandle string) {
	p0, p1, p2, p3 := connectorCurve(from, to, toHandle)
	screenLen := (p3.X - p0.X) * view.Zoom
	if screenLen < 0 {
		screenLen = -screenLen
	}
	steps := int(screenLen)
	if steps < 8 {
		steps = 8
	}
	for _, p := range sampleCurve(p0, p1, p2, p3, steps) {
		s := view.WorldToScreen(p)
		grid.set(int(s.X), int(s.Y), '·')
	}
	end := view.WorldToScreen(p3)
	grid.set(int(end.X), int(end.Y), '‹')
}

// renderGraph paints nodes, connectors and, while an edge is being
// drawn, the live preview from the source anchor to the pointer.
func renderGraph(graph *GraphStore, view Viewport, width, height int, previewFrom, previewTo Point, hasPreview bool, marquee Rect, hasMarquee bool) []string {
	grid := newCellGrid(width, height)

	for _, e := range graph.Edges() {
		from, okF := graph.Node(e.From)
		to, okT := graph.Node(e.To)
		if !okF || !okT {
			continue
		}
		drawConnector(grid, view, from, to, e.ToHandle)
	}

	if hasPreview {
		midX := (previewFrom.X + previewTo.X) / 2
		for _, p := range sampleCurve(previewFrom,
			Point{midX, previewFrom.Y},
			Point{midX, previewTo.Y},
			previewTo, 24) {
			s := view.WorldToScreen(p)
			grid.set(int(s.X), int(s.Y), '∙')
		}
	}

	for _, n := range graph.Nodes() {
		topLeft := view.WorldToScreen(Point{n.X, n.Y})
		x := int(topLeft.X)
		y := int(topLeft.Y)
		w := int(n.Width * view.Zoom)
		h := int(n.Height * view.Zoom)
		if w < 2 {
			w = 2
		}
		if h < 2 {
			h = 2
		}
		grid.drawFrame(x, y, w, h, n.Selected)

		caption := fmt.Sprintf("%c %s", nodeGlyph(n.Kind), n.Label)
		if n.Kind == NodeWorkflow {
			caption = fmt.Sprintf("%c %s %s", nodeGlyph(n.Kind), statusBadge(n.Status), n.Label)
		}
		if w > 4 {
			caption = clipCells(caption, w-2)
		}
		grid.text(x+1, y+1, caption)

		if n.Kind == NodeWorkflow {
			for _, handle := range []string{HandlePrompt, HandleControl, HandleReference} {
				a := view.WorldToScreen(handleAnchor(n, handle))
				grid.set(int(a.X), int(a.Y), '○')
			}
		} else {
			a := view.WorldToScreen(outputAnchor(n))
			grid.set(int(a.X), int(a.Y), '●')
		}

		if n.Selected {
			grid.set(x+w-1, y+h-1, '◢')
		}
	}

	if hasMarquee {
		a := view.WorldToScreen(Point{marquee.X, marquee.Y})
		b := view.WorldToScreen(Point{marquee.X + marquee.Width, marquee.Y + marquee.Height})
		grid.drawMarquee(int(a.X), int(a.Y), int(b.X-a.X), int(b.Y-a.Y))
	}

	return grid.lines()
}
