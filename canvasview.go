package main

import (
	"fmt"
	"strings"
)

// CanvasStage adapts the entity store to the pointer state machine.
type CanvasStage struct {
	store *EntityStore
	dirty bool
}

func NewCanvasStage(store *EntityStore) *CanvasStage {
	return &CanvasStage{store: store}
}

// HitTest checks topmost-first: the resize hotspot of a selected
// entity wins over its body. The hotspot is a fixed screen size, so it
// is divided by zoom to get world units.
func (cs *CanvasStage) HitTest(world Point, zoom float64) Hit {
	if zoom <= 0 {
		zoom = 1.0
	}
	hot := handleHitSize / zoom
	entities := cs.store.All()
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		b := e.Bounds()
		if e.Selected {
			corner := Rect{X: b.X + b.Width - hot, Y: b.Y + b.Height - hot, Width: hot, Height: hot}
			if corner.Contains(world) {
				return Hit{Kind: HitResizeHandle, ID: e.ID}
			}
		}
		if b.Contains(world) {
			return Hit{Kind: HitBody, ID: e.ID}
		}
	}
	return Hit{Kind: HitNone}
}

func (cs *CanvasStage) IsSelected(id string) bool {
	e, ok := cs.store.Get(id)
	return ok && e.Selected
}

func (cs *CanvasStage) SetSelection(ids []string, additive bool) {
	cs.store.SetSelection(ids, additive)
}

func (cs *CanvasStage) ClearSelection() {
	cs.store.ClearSelection()
}

func (cs *CanvasStage) SelectionIDs() []string {
	return cs.store.SelectedIDs()
}

func (cs *CanvasStage) SelectInRect(r Rect, additive bool) {
	cs.store.SelectInRect(r, additive)
}

func (cs *CanvasStage) MoveBy(ids []string, delta Point) {
	cs.store.MoveBy(ids, delta)
}

func (cs *CanvasStage) ResizeTo(id string, width, height float64) {
	cs.store.ResizeTo(id, width, height)
}

func (cs *CanvasStage) ItemBounds(id string) (Rect, bool) {
	e, ok := cs.store.Get(id)
	if !ok {
		return Rect{}, false
	}
	return e.Bounds(), true
}

// The free canvas has no connection handles; edge drawing never starts
// here and never completes here.
func (cs *CanvasStage) ConnectTarget(world Point, zoom float64) (string, string, bool) {
	return "", "", false
}

func (cs *CanvasStage) CompleteEdge(fromID, fromHandle, toID, toHandle string) error {
	return fmt.Errorf("the canvas has no connections")
}

func (cs *CanvasStage) Commit() {
	cs.dirty = true
}

// TakeDirty reports and clears the pending-persist flag.
func (cs *CanvasStage) TakeDirty() bool {
	d := cs.dirty
	cs.dirty = false
	return d
}

// ── cell-grid rendering ──

type cellGrid struct {
	cells  [][]rune
	width  int
	height int
}

func newCellGrid(width, height int) *cellGrid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = make([]rune, width)
		for j := range cells[i] {
			cells[i][j] = ' '
		}
	}
	return &cellGrid{cells: cells, width: width, height: height}
}

func (g *cellGrid) set(x, y int, r rune) {
	if y >= 0 && y < g.height && x >= 0 && x < g.width {
		g.cells[y][x] = r
	}
}

func (g *cellGrid) text(x, y int, s string) {
	for i, r := range s {
		g.set(x+i, y, r)
	}
}

func (g *cellGrid) lines() []string {
	out := make([]string, g.height)
	for i, row := range g.cells {
		out[i] = string(row)
	}
	return out
}

// drawFrame draws a box border. Selected frames use '#', plain ones '+-|'.
func (g *cellGrid) drawFrame(x, y, w, h int, selected bool) {
	if w < 2 || h < 2 {
		g.set(x, y, '▪')
		return
	}
	corner, horiz, vert := '+', '-', '|'
	if selected {
		corner, horiz, vert = '#', '#', '#'
	}
	for cx := x; cx < x+w; cx++ {
		g.set(cx, y, horiz)
		g.set(cx, y+h-1, horiz)
	}
	for cy := y; cy < y+h; cy++ {
		g.set(x, cy, vert)
		g.set(x+w-1, cy, vert)
	}
	g.set(x, y, corner)
	g.set(x+w-1, y, corner)
	g.set(x, y+h-1, corner)
	g.set(x+w-1, y+h-1, corner)
}

// drawMarquee draws the rubber-band rectangle in screen coordinates.
func (g *cellGrid) drawMarquee(x, y, w, h int) {
	if w < 1 || h < 1 {
		return
	}
	for cx := x; cx <= x+w; cx++ {
		g.set(cx, y, '─')
		g.set(cx, y+h, '─')
	}
	for cy := y; cy <= y+h; cy++ {
		g.set(x, cy, '│')
		g.set(x+w, cy, '│')
	}
	g.set(x, y, '┌')
	g.set(x+w, y, '┐')
	g.set(x, y+h, '└')
	g.set(x+w, y+h, '┘')
}

func entityGlyph(kind EntityKind) rune {
	switch kind {
	case EntityImage:
		return '▦'
	case EntityText:
		return '¶'
	case EntityBoard:
		return '░'
	case EntityModel3D:
		return '◇'
	case EntityVideo:
		return '▶'
	}
	return '?'
}

func entityCaption(e CanvasEntity, images ImageStore) string {
	switch e.Kind {
	case EntityText:
		return firstLine(e.Text)
	case EntityBoard:
		return "board"
	case EntityImage:
		if meta, ok := images.Meta(e.ImageID); ok {
			return meta.Filename
		}
		if e.ImageID == "" {
			return "image"
		}
		return "missing " + shortID(e.ImageID)
	case EntityVideo, EntityModel3D:
		if e.SourceName != "" {
			return e.SourceName
		}
		return string(e.Kind)
	}
	return string(e.Kind)
}

// clipCells trims a caption to a cell budget by rune, so a cut never
// lands inside a multi-byte glyph.
func clipCells(s string, max int) string {
	r := []rune(s)
	if max < 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// renderCanvas paints the entity collection through the viewport into
// a width x height cell grid.
func renderCanvas(store *EntityStore, view Viewport, width, height int, images ImageStore, marquee Rect, hasMarquee bool) []string {
	grid := newCellGrid(width, height)

	for _, e := range store.All() {
		topLeft := view.WorldToScreen(Point{e.X, e.Y})
		x := int(topLeft.X)
		y := int(topLeft.Y)
		w := int(e.Width * view.Zoom)
		h := int(e.Height * view.Zoom)
		if w < 2 {
			w = 2
		}
		if h < 2 {
			h = 2
		}
		grid.drawFrame(x, y, w, h, e.Selected)

		caption := fmt.Sprintf("%c %s", entityGlyph(e.Kind), entityCaption(e, images))
		if w > 4 {
			caption = clipCells(caption, w-2)
		}
		grid.text(x+1, y+1, caption)

		if e.Kind == EntityText && h > 3 {
			body := strings.Split(e.Text, "\n")
			for i, line := range body {
				if i+2 >= h-1 {
					break
				}
				if w > 4 {
					line = clipCells(line, w-2)
				}
				grid.text(x+1, y+2+i, line)
			}
		}

		if e.Selected {
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
