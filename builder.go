package main

import "strings"

type LayoutMode int

const (
	// LayoutSessionGrid tiles generations row-major, for a single
	// session's graph.
	LayoutSessionGrid LayoutMode = iota
	// LayoutChronological stacks one generation per row, for the
	// cross-session view where nodes dedup across the whole set.
	LayoutChronological
)

// GraphBuilder derives the provenance graph from generation history.
// Nodes are grouped by a content-identity key so repeated prompts,
// reused images and identical parameter tuples collapse onto shared
// nodes instead of visual duplicates. Rebuilds are idempotent.
type GraphBuilder struct {
	graph *GraphStore
	mode  LayoutMode

	identity map[string]string // identity key -> node id
	keyByID  map[string]string // node id -> identity key
	prevIDs  map[string]string // last rebuild's identity map, for id stability
	pinned   map[string]Point  // identity key -> user-set position
}

func NewGraphBuilder(graph *GraphStore, mode LayoutMode) *GraphBuilder {
	return &GraphBuilder{
		graph:    graph,
		mode:     mode,
		identity: make(map[string]string),
		keyByID:  make(map[string]string),
		prevIDs:  make(map[string]string),
		pinned:   make(map[string]Point),
	}
}

func promptKey(text string) string { return "prompt:" + text }
func imageKey(id string) string    { return "image:" + id }
func textKey(text string) string   { return "outtext:" + text }

func workflowKey(gen Generation) string {
	parts := []string{gen.Prompt, gen.Params.identity()}
	for _, ref := range gen.Inputs {
		parts = append(parts, ref.ID)
	}
	return "workflow:" + strings.Join(parts, "|")
}

// NotePosition records a node position the user set by dragging, keyed
// by the node's identity so it survives the next full rebuild.
func (b *GraphBuilder) NotePosition(nodeID string, pos Point) {
	if key, ok := b.keyByID[nodeID]; ok {
		b.pinned[key] = pos
	}
}

// Rebuild re-derives the graph from the generation list. Standalone
// nodes are kept as-is; derived nodes keep a stable id per identity
// key, so user-drawn edges survive the rebuild. Positions the user has
// set are sticky; only newly appearing nodes get layout positions.
func (b *GraphBuilder) Rebuild(gens []Generation) {
	// Pin every current derived position before discarding the nodes.
	for _, n := range b.graph.nodes {
		if key, ok := b.keyByID[n.ID]; ok {
			b.pinned[key] = Point{n.X, n.Y}
		}
	}

	b.prevIDs = b.identity
	oldEdges := b.graph.edges

	var standalone []GraphNode
	for _, n := range b.graph.nodes {
		if n.Standalone {
			standalone = append(standalone, n)
		}
	}
	b.graph.nodes = standalone
	b.graph.edges = nil
	b.identity = make(map[string]string, len(b.prevIDs))
	b.keyByID = make(map[string]string, len(b.prevIDs))

	yCursor, rowMax := 0.0, 0.0
	for i, gen := range gens {
		b.placeGeneration(i, gen, &yCursor, &rowMax)
	}

	// Re-apply surviving edges (interactively drawn ones in particular);
	// AddEdge suppresses any the synthesis above already produced.
	for _, e := range oldEdges {
		if _, ok := b.graph.Node(e.From); !ok {
			continue
		}
		if _, ok := b.graph.Node(e.To); !ok {
			continue
		}
		b.graph.AddEdge(e)
	}
}

// ensureNode returns the node id for an identity key, creating the
// node at pos when the key is unseen. Previously assigned ids are
// reused so edges stay valid across rebuilds.
func (b *GraphBuilder) ensureNode(key string, pos Point, build func() GraphNode) string {
	if id, ok := b.identity[key]; ok {
		return id
	}
	n := build()
	if prev, ok := b.prevIDs[key]; ok && prev != "" {
		n.ID = prev
	}
	if n.ID == "" {
		n.ID = newNodeID()
	}
	if pin, ok := b.pinned[key]; ok {
		n.X, n.Y = pin.X, pin.Y
	} else {
		n.X, n.Y = pos.X, pos.Y
	}
	b.graph.AddNode(n)
	b.identity[key] = n.ID
	b.keyByID[n.ID] = key
	return n.ID
}

func stackHeight(count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(count)*graphNodeHeight + float64(count-1)*graphRowGap
}

func (b *GraphBuilder) placeGeneration(index int, gen Generation, yCursor, rowMax *float64) {
	inputs := gen.Inputs
	outputs := len(gen.Outputs) + len(gen.OutputTexts)

	tileHeight := workflowNodeHeight
	if h := stackHeight(len(inputs)); h > tileHeight {
		tileHeight = h
	}
	if h := stackHeight(outputs); h > tileHeight {
		tileHeight = h
	}

	tileWidth := 3*(graphNodeWidth+graphColumnGap) + workflowNodeWidth

	var originX, originY float64
	switch b.mode {
	case LayoutChronological:
		originX = 0
		originY = *yCursor
		*yCursor += tileHeight + graphTileGapY
	default:
		col := index % graphTilesPerRow
		originX = float64(col) * (tileWidth + graphTileGapX)
		// Wrap by the tallest tile of the finished row, not this one's.
		if col == 0 && index > 0 {
			*yCursor += *rowMax + graphTileGapY
			*rowMax = 0
		}
		if tileHeight > *rowMax {
			*rowMax = tileHeight
		}
		originY = *yCursor
	}

	centerY := originY + tileHeight/2
	colPrompt := originX
	colImages := originX + graphNodeWidth + graphColumnGap
	colWorkflow := originX + 2*(graphNodeWidth+graphColumnGap)
	colOutputs := colWorkflow + workflowNodeWidth + graphColumnGap

	// Workflow node: one per distinct (prompt, params, inputs) tuple.
	wfID := b.ensureNode(workflowKey(gen), Point{colWorkflow, centerY - workflowNodeHeight/2}, func() GraphNode {
		return GraphNode{
			Kind:         NodeWorkflow,
			Label:        workflowLabel(gen),
			Width:        workflowNodeWidth,
			Height:       workflowNodeHeight,
			GenerationID: gen.ID,
			Params:       gen.Params,
			Status:       gen.Status,
		}
	})
	// A re-run of the same tuple carries the freshest status.
	b.graph.UpdateNode(wfID, func(n *GraphNode) { n.Status = gen.Status })

	// Prompt node. An empty prompt still gets a node, with a
	// placeholder label, so no generation vanishes from the graph.
	label := truncateLabel(gen.Prompt, 42)
	if gen.Prompt == "" {
		label = promptPlaceholder
	}
	prompt := gen.Prompt
	genID := gen.ID
	promptID := b.ensureNode(promptKey(gen.Prompt), Point{colPrompt, centerY - graphNodeHeight/2}, func() GraphNode {
		return GraphNode{Kind: NodePrompt, Label: label, Text: prompt, GenerationID: genID}
	})
	b.graph.AddEdge(GraphEdge{From: promptID, To: wfID, ToHandle: HandlePrompt, Color: edgeColorPrompt})

	// Input image column, stacked and centered on the workflow midline.
	inputY := centerY - stackHeight(len(inputs))/2
	for _, ref := range inputs {
		kind := NodeReferenceImage
		handle := HandleReference
		if ref.Role == "control" {
			kind = NodeControlImage
			handle = HandleControl
		}
		ref := ref
		imgID := b.ensureNode(imageKey(ref.ID), Point{colImages, inputY}, func() GraphNode {
			return GraphNode{Kind: kind, Label: shortID(ref.ID), ImageID: ref.ID}
		})
		b.graph.AddEdge(GraphEdge{From: imgID, To: wfID, ToHandle: handle, Color: edgeColor(handle)})
		inputY += graphNodeHeight + graphRowGap
	}

	// Output column. A generation with no outputs yields no output
	// nodes; a failed one still occupies its workflow position.
	outY := centerY - stackHeight(outputs)/2
	for _, out := range gen.Outputs {
		out := out
		outID := b.ensureNode(imageKey(out), Point{colOutputs, outY}, func() GraphNode {
			return GraphNode{Kind: NodeOutputImage, Label: shortID(out), ImageID: out, GenerationID: genID}
		})
		b.graph.AddEdge(GraphEdge{From: wfID, To: outID, Color: edgeColorOutput})
		outY += graphNodeHeight + graphRowGap
	}
	for _, text := range gen.OutputTexts {
		text := text
		outID := b.ensureNode(textKey(text), Point{colOutputs, outY}, func() GraphNode {
			return GraphNode{Kind: NodeOutputText, Label: truncateLabel(text, 42), Text: text, GenerationID: genID}
		})
		b.graph.AddEdge(GraphEdge{From: wfID, To: outID, Color: edgeColorOutput})
		outY += graphNodeHeight + graphRowGap
	}
}

// AddStandaloneNode creates a node authored directly in the graph view,
// placed clear of existing nodes.
func (b *GraphBuilder) AddStandaloneNode(kind NodeKind, label, text string, near Point) string {
	width, height := graphNodeWidth, graphNodeHeight
	if kind == NodeWorkflow {
		width, height = workflowNodeWidth, workflowNodeHeight
	}
	occupied := make([]Rect, 0, len(b.graph.nodes))
	for _, n := range b.graph.nodes {
		occupied = append(occupied, n.Bounds())
	}
	x, y := findFreePlacement(near.X, near.Y, width, height, occupied)
	n := GraphNode{
		ID:         newNodeID(),
		Kind:       kind,
		Label:      label,
		Text:       text,
		X:          x,
		Y:          y,
		Width:      width,
		Height:     height,
		Standalone: true,
	}
	b.graph.AddNode(n)
	return n.ID
}

func workflowLabel(gen Generation) string {
	if gen.Params.Model != "" {
		return gen.Params.Model
	}
	return "generate"
}

func truncateLabel(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
