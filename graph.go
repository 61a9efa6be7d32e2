package main

import (
	"fmt"

	"github.com/google/uuid"
)

type NodeKind string

const (
	NodePrompt         NodeKind = "prompt"
	NodeWorkflow       NodeKind = "workflow"
	NodeControlImage   NodeKind = "control-image"
	NodeReferenceImage NodeKind = "reference-image"
	NodeOutputImage    NodeKind = "output-image"
	NodeOutputText     NodeKind = "output-text"
)

// Input handle names on a workflow node.
const (
	HandlePrompt    = "prompt"
	HandleControl   = "control"
	HandleReference = "reference"
)

func isImageKind(k NodeKind) bool {
	switch k {
	case NodeControlImage, NodeReferenceImage, NodeOutputImage:
		return true
	}
	return false
}

// GraphNode is a node in the provenance graph view. It mirrors the
// shape of a canvas entity but has its own lifecycle.
type GraphNode struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Selected bool `json:"-"`

	GenerationID string `json:"generationId,omitempty"`
	Standalone   bool   `json:"standalone,omitempty"`

	// kind payloads
	ImageID string           `json:"imageId,omitempty"` // image kinds
	Text    string           `json:"text,omitempty"`    // prompt / output-text
	Params  GenerationParams `json:"params,omitempty"`  // workflow
	Status  GenerationStatus `json:"status,omitempty"`  // workflow
}

func (n GraphNode) Bounds() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// GraphEdge is a directed connection. Edges into a workflow node carry
// the input handle they attach to; output edges leave ToHandle empty.
type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	ToHandle string `json:"toHandle,omitempty"`
	Color    string `json:"color,omitempty"`
}

func newNodeID() string {
	return uuid.NewString()
}

// GraphStore owns the node/edge collections for one graph view.
type GraphStore struct {
	nodes []GraphNode
	edges []GraphEdge
}

func NewGraphStore() *GraphStore {
	return &GraphStore{}
}

func (g *GraphStore) Nodes() []GraphNode { return g.nodes }
func (g *GraphStore) Edges() []GraphEdge { return g.edges }

func (g *GraphStore) Node(id string) (GraphNode, bool) {
	for _, n := range g.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

func (g *GraphStore) UpdateNode(id string, fn func(*GraphNode)) bool {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			fn(&g.nodes[i])
			return true
		}
	}
	return false
}

// AddNode appends a node; an id collision is silently skipped.
func (g *GraphStore) AddNode(n GraphNode) {
	if n.ID == "" {
		n.ID = newNodeID()
	}
	for _, existing := range g.nodes {
		if existing.ID == n.ID {
			return
		}
	}
	if n.Width <= 0 {
		n.Width = graphNodeWidth
	}
	if n.Height <= 0 {
		n.Height = graphNodeHeight
	}
	g.nodes = append(g.nodes, n)
}

func (g *GraphStore) HasEdge(from, to, toHandle string) bool {
	for _, e := range g.edges {
		if e.From == from && e.To == to && e.ToHandle == toHandle {
			return true
		}
	}
	return false
}

// AddEdge appends an edge unless the same (from, to, toHandle) triple
// already exists. Dedup across generations makes re-synthesis of the
// same edge routine, so the duplicate is suppressed, not an error.
func (g *GraphStore) AddEdge(e GraphEdge) bool {
	if g.HasEdge(e.From, e.To, e.ToHandle) {
		return false
	}
	g.edges = append(g.edges, e)
	return true
}

// RemoveNode deletes a node. Nodes with incident edges are kept:
// deleting them would silently orphan provenance history.
func (g *GraphStore) RemoveNode(id string) error {
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			return fmt.Errorf("node has connections; remove its edges first")
		}
	}
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (g *GraphStore) RemoveEdge(from, to, toHandle string) {
	for i := range g.edges {
		e := g.edges[i]
		if e.From == from && e.To == to && e.ToHandle == toHandle {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

// IncomingEdges returns edges into a node in insertion order, which is
// the order the trigger adapter preserves for image inputs.
func (g *GraphStore) IncomingEdges(id string) []GraphEdge {
	var in []GraphEdge
	for _, e := range g.edges {
		if e.To == id {
			in = append(in, e)
		}
	}
	return in
}

func (g *GraphStore) OutgoingEdges(id string) []GraphEdge {
	var out []GraphEdge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// ValidateEdge checks an interactively drawn edge against the handle
// ruleset. The edge set is left untouched; callers add on nil error.
func (g *GraphStore) ValidateEdge(fromID, toID, toHandle string) error {
	if fromID == toID {
		return fmt.Errorf("cannot connect a node to itself")
	}
	from, ok := g.Node(fromID)
	if !ok {
		return fmt.Errorf("source node not found")
	}
	to, ok := g.Node(toID)
	if !ok {
		return fmt.Errorf("target node not found")
	}
	if to.Kind != NodeWorkflow {
		return fmt.Errorf("edges can only target a workflow input")
	}
	switch toHandle {
	case HandlePrompt:
		if from.Kind != NodePrompt {
			return fmt.Errorf("the prompt input accepts only prompt nodes")
		}
		for _, e := range g.IncomingEdges(toID) {
			if e.ToHandle == HandlePrompt {
				return fmt.Errorf("workflow already has a prompt connected")
			}
		}
	case HandleControl, HandleReference:
		if !isImageKind(from.Kind) {
			return fmt.Errorf("the %s input accepts only image nodes", toHandle)
		}
	default:
		return fmt.Errorf("unknown input %q", toHandle)
	}
	return nil
}

func edgeColor(toHandle string) string {
	switch toHandle {
	case HandlePrompt:
		return edgeColorPrompt
	case HandleControl:
		return edgeColorControl
	case HandleReference:
		return edgeColorReference
	}
	return edgeColorOutput
}

// handleAnchor returns the world point where an input handle sits on
// the left edge of a workflow node. Handles are stacked top to bottom:
// prompt, control, reference.
func handleAnchor(n GraphNode, handle string) Point {
	frac := 0.5
	switch handle {
	case HandlePrompt:
		frac = 0.25
	case HandleControl:
		frac = 0.5
	case HandleReference:
		frac = 0.75
	}
	return Point{n.X, n.Y + n.Height*frac}
}

// outputAnchor is the right-center point edges leave a node from.
func outputAnchor(n GraphNode) Point {
	return Point{n.X + n.Width, n.Y + n.Height/2}
}

// connectorCurve returns the cubic bezier control points for an edge.
// Control points sit at the horizontal midpoint so the curve reads
// left to right regardless of vertical offset.
func connectorCurve(from, to GraphNode, toHandle string) (p0, p1, p2, p3 Point) {
	p0 = outputAnchor(from)
	if to.Kind == NodeWorkflow && toHandle != "" {
		p3 = handleAnchor(to, toHandle)
	} else {
		p3 = Point{to.X, to.Y + to.Height/2}
	}
	midX := (p0.X + p3.X) / 2
	p1 = Point{midX, p0.Y}
	p2 = Point{midX, p3.Y}
	return p0, p1, p2, p3
}

// sampleCurve evaluates the bezier at n+1 evenly spaced parameters,
// for cell-grid rendering of the connector.
func sampleCurve(p0, p1, p2, p3 Point, n int) []Point {
	if n < 1 {
		n = 1
	}
	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t
		points = append(points, Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return points
}
