package main

// The pointer state machine drives every direct-manipulation gesture on
// both the canvas and the graph view: pan, drag, resize, rubber-band
// select and edge drawing. Exactly one state is active at a time, so a
// single mutation path touches the underlying store per event.

type PointerState int

const (
	StateIdle PointerState = iota
	StatePanning
	StateDraggingSelection
	StateResizingEntity
	StateBoxSelecting
	StateDrawingEdge
)

type PointerButton int

const (
	ButtonLeft PointerButton = iota
	ButtonMiddle
	ButtonRight
)

// PointerEvent is a normalized pointer sample in screen coordinates.
type PointerEvent struct {
	Screen   Point
	Button   PointerButton
	Additive bool // ctrl/cmd held: multi-select
	PanMod   bool // shift held: pan with the primary button
}

type HitKind int

const (
	HitNone HitKind = iota
	HitBody
	HitResizeHandle
	HitConnector
)

// Hit describes what a pointer-down landed on.
type Hit struct {
	Kind   HitKind
	ID     string
	Handle string
}

// Stage is the surface a pointer machine manipulates. The canvas and
// the graph view each provide one; the graph adds edge drawing, the
// canvas reports no connector hits.
type Stage interface {
	HitTest(world Point, zoom float64) Hit
	IsSelected(id string) bool
	SetSelection(ids []string, additive bool)
	ClearSelection()
	SelectionIDs() []string
	SelectInRect(r Rect, additive bool)
	MoveBy(ids []string, delta Point)
	ResizeTo(id string, width, height float64)
	ItemBounds(id string) (Rect, bool)

	// Edge drawing; stages without connectors reject.
	ConnectTarget(world Point, zoom float64) (id, handle string, ok bool)
	CompleteEdge(fromID, fromHandle, toID, toHandle string) error

	// Commit is called when a mutating gesture ends.
	Commit()
}

// Pointer is the finite-state controller for one view.
type Pointer struct {
	stage Stage
	view  *Viewport

	state PointerState

	anchorScreen Point
	anchorWorld  Point
	lastWorld    Point
	panStart     Point

	dragIDs []string

	resizeID    string
	resizeStart Rect

	boxAdditive bool
	marquee     Rect

	edgeFromID     string
	edgeFromHandle string
	edgeTo         Point
}

func NewPointer(stage Stage, view *Viewport) *Pointer {
	return &Pointer{stage: stage, view: view}
}

func (p *Pointer) State() PointerState {
	return p.state
}

// Marquee returns the current rubber-band rectangle in world space.
func (p *Pointer) Marquee() (Rect, bool) {
	return p.marquee, p.state == StateBoxSelecting
}

// EdgePreview returns the in-progress edge endpoints in world space.
func (p *Pointer) EdgePreview() (from Point, to Point, ok bool) {
	if p.state != StateDrawingEdge {
		return Point{}, Point{}, false
	}
	start := p.edgeTo
	if b, found := p.stage.ItemBounds(p.edgeFromID); found {
		start = Point{b.X + b.Width, b.Y + b.Height/2}
	}
	return start, p.edgeTo, true
}

func (p *Pointer) Down(ev PointerEvent) {
	if p.state != StateIdle {
		return
	}
	world := p.view.ScreenToWorld(ev.Screen)
	p.lastWorld = world

	if ev.Button == ButtonMiddle || (ev.Button == ButtonLeft && ev.PanMod) {
		p.state = StatePanning
		p.anchorScreen = ev.Screen
		p.panStart = p.view.Pan
		return
	}
	if ev.Button != ButtonLeft {
		return
	}

	hit := p.stage.HitTest(world, p.view.Zoom)
	switch hit.Kind {
	case HitNone:
		// Clearing on press rather than release feels more responsive.
		if !ev.Additive {
			p.stage.ClearSelection()
		}
		p.state = StateBoxSelecting
		p.anchorWorld = world
		p.boxAdditive = ev.Additive
		p.marquee = rectBetween(world, world)

	case HitConnector:
		p.state = StateDrawingEdge
		p.edgeFromID = hit.ID
		p.edgeFromHandle = hit.Handle
		p.edgeTo = world

	case HitResizeHandle:
		if bounds, ok := p.stage.ItemBounds(hit.ID); ok {
			if !p.stage.IsSelected(hit.ID) {
				p.stage.SetSelection([]string{hit.ID}, false)
			}
			p.state = StateResizingEntity
			p.resizeID = hit.ID
			p.resizeStart = bounds
			p.anchorWorld = world
		}

	case HitBody:
		if ev.Additive {
			p.stage.SetSelection([]string{hit.ID}, true)
		} else if !p.stage.IsSelected(hit.ID) {
			// Dragging an unselected entity re-selects to just that one.
			p.stage.SetSelection([]string{hit.ID}, false)
		}
		if !p.stage.IsSelected(hit.ID) {
			// An additive click can deselect; nothing to drag then.
			return
		}
		p.state = StateDraggingSelection
		p.dragIDs = p.stage.SelectionIDs()
		p.anchorWorld = world
	}
}

func (p *Pointer) Move(ev PointerEvent) {
	world := p.view.ScreenToWorld(ev.Screen)

	switch p.state {
	case StatePanning:
		p.view.Pan = p.panStart.Add(ev.Screen.Sub(p.anchorScreen))
	case StateDraggingSelection:
		p.stage.MoveBy(p.dragIDs, world.Sub(p.lastWorld))
	case StateResizingEntity:
		p.stage.ResizeTo(p.resizeID,
			p.resizeStart.Width+(world.X-p.anchorWorld.X),
			p.resizeStart.Height+(world.Y-p.anchorWorld.Y))
	case StateBoxSelecting:
		p.marquee = rectBetween(p.anchorWorld, world)
	case StateDrawingEdge:
		p.edgeTo = world
	}
	p.lastWorld = world
}

// Up ends the active gesture. The returned error is a user-visible
// validation failure (edge drawing only); all other paths return nil.
func (p *Pointer) Up(ev PointerEvent) error {
	world := p.view.ScreenToWorld(ev.Screen)
	state := p.state
	p.state = StateIdle

	switch state {
	case StateDraggingSelection, StateResizingEntity:
		p.stage.Commit()
	case StateBoxSelecting:
		p.stage.SelectInRect(rectBetween(p.anchorWorld, world), p.boxAdditive)
	case StateDrawingEdge:
		fromID, fromHandle := p.edgeFromID, p.edgeFromHandle
		p.edgeFromID, p.edgeFromHandle = "", ""
		if toID, toHandle, ok := p.stage.ConnectTarget(world, p.view.Zoom); ok {
			if err := p.stage.CompleteEdge(fromID, fromHandle, toID, toHandle); err != nil {
				return err
			}
			p.stage.Commit()
		}
	}
	return nil
}

// Leave cancels the active gesture as if the pointer was released:
// there is no pointer-capture guarantee, so no state may outlive a
// lost pointer.
func (p *Pointer) Leave() {
	switch p.state {
	case StateDraggingSelection, StateResizingEntity:
		p.stage.Commit()
	case StateBoxSelecting:
		p.stage.SelectInRect(p.marquee, p.boxAdditive)
	}
	p.edgeFromID, p.edgeFromHandle = "", ""
	p.state = StateIdle
}
