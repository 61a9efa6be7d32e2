package main

import "github.com/google/uuid"

type EntityKind string

const (
	EntityImage   EntityKind = "image"
	EntityText    EntityKind = "text"
	EntityBoard   EntityKind = "board"
	EntityModel3D EntityKind = "model3d"
	EntityVideo   EntityKind = "video"
)

// TextStyle carries the typography of a text entity.
type TextStyle struct {
	Size   float64 `json:"size"`
	Weight string  `json:"weight,omitempty"`
	Style  string  `json:"style,omitempty"`
	Family string  `json:"family,omitempty"`
}

// CanvasEntity is a positioned item on the free-form canvas. The kind
// discriminant decides which payload fields are meaningful.
type CanvasEntity struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Intrinsic size, used to preserve aspect ratio on resize.
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`

	Selected bool `json:"-"`

	// Set when the entity was produced by a generation.
	GenerationID string `json:"generationId,omitempty"`

	// image payload
	ImageID       string `json:"imageId,omitempty"`
	ExtractedText string `json:"extractedText,omitempty"`

	// text payload
	Text      string    `json:"text,omitempty"`
	TextStyle TextStyle `json:"textStyle,omitempty"`

	// board payload
	Background string `json:"background,omitempty"`

	// model3d / video payload, opaque to geometry logic
	ThumbnailID string `json:"thumbnailId,omitempty"`
	SourceName  string `json:"sourceName,omitempty"`
}

func (e CanvasEntity) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// keepsAspect reports whether resizing should preserve the intrinsic
// aspect ratio. Text and boards resize freely.
func (e CanvasEntity) keepsAspect() bool {
	switch e.Kind {
	case EntityImage, EntityVideo, EntityModel3D:
		return true
	}
	return false
}

func newEntityID() string {
	return uuid.NewString()
}

// EntityStore owns the mutable entity collection for one canvas. All
// geometry and selection mutations go through it; renderers treat the
// returned slices as immutable snapshots.
type EntityStore struct {
	entities []CanvasEntity
}

func NewEntityStore() *EntityStore {
	return &EntityStore{}
}

// Add appends an entity. A colliding id is a harmless re-derivation and
// is silently skipped.
func (s *EntityStore) Add(e CanvasEntity) {
	if e.ID == "" {
		e.ID = newEntityID()
	}
	for _, existing := range s.entities {
		if existing.ID == e.ID {
			return
		}
	}
	if e.Width <= 0 {
		e.Width = minEntitySize
	}
	if e.Height <= 0 {
		e.Height = minEntitySize
	}
	if e.OriginalWidth <= 0 {
		e.OriginalWidth = e.Width
	}
	if e.OriginalHeight <= 0 {
		e.OriginalHeight = e.Height
	}
	s.entities = append(s.entities, e)
}

func (s *EntityStore) Get(id string) (CanvasEntity, bool) {
	for _, e := range s.entities {
		if e.ID == id {
			return e, true
		}
	}
	return CanvasEntity{}, false
}

// Update applies fn to the matching entity. A missing id is a no-op,
// not an error: async image loads may complete after deletion.
func (s *EntityStore) Update(id string, fn func(*CanvasEntity)) bool {
	for i := range s.entities {
		if s.entities[i].ID == id {
			fn(&s.entities[i])
			return true
		}
	}
	return false
}

func (s *EntityStore) Remove(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.entities[:0]
	for _, e := range s.entities {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	s.entities = kept
}

// All returns the entities in paint order.
func (s *EntityStore) All() []CanvasEntity {
	return s.entities
}

func (s *EntityStore) Len() int {
	return len(s.entities)
}

// EntityAt returns the topmost entity containing the world point.
func (s *EntityStore) EntityAt(p Point) (string, bool) {
	for i := len(s.entities) - 1; i >= 0; i-- {
		if s.entities[i].Bounds().Contains(p) {
			return s.entities[i].ID, true
		}
	}
	return "", false
}

// SetSelection updates selection state. With additive false the given
// ids become the entire selection; with additive true membership is
// toggled for the given ids and everything else is left alone.
func (s *EntityStore) SetSelection(ids []string, additive bool) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.entities {
		if additive {
			if want[s.entities[i].ID] {
				s.entities[i].Selected = !s.entities[i].Selected
			}
		} else {
			s.entities[i].Selected = want[s.entities[i].ID]
		}
	}
}

func (s *EntityStore) ClearSelection() {
	for i := range s.entities {
		s.entities[i].Selected = false
	}
}

func (s *EntityStore) SelectedIDs() []string {
	var ids []string
	for _, e := range s.entities {
		if e.Selected {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// SelectInRect selects the entities whose center point lies within the
// rectangle. Center containment, not bounds overlap: a box that merely
// clips an entity's corner must not surprise-select it.
func (s *EntityStore) SelectInRect(r Rect, additive bool) {
	for i := range s.entities {
		inside := r.Contains(s.entities[i].Bounds().Center())
		if additive {
			if inside {
				s.entities[i].Selected = true
			}
		} else {
			s.entities[i].Selected = inside
		}
	}
}

func (s *EntityStore) MoveBy(ids []string, delta Point) {
	move := make(map[string]bool, len(ids))
	for _, id := range ids {
		move[id] = true
	}
	for i := range s.entities {
		if move[s.entities[i].ID] {
			s.entities[i].X += delta.X
			s.entities[i].Y += delta.Y
		}
	}
}

// ResizeTo sets a new size, clamped to the minimum and, for raster
// kinds, locked to the intrinsic aspect ratio driven by width.
func (s *EntityStore) ResizeTo(id string, width, height float64) {
	s.Update(id, func(e *CanvasEntity) {
		if width < minEntitySize {
			width = minEntitySize
		}
		if height < minEntitySize {
			height = minEntitySize
		}
		if e.keepsAspect() && e.OriginalWidth > 0 {
			ratio := e.OriginalHeight / e.OriginalWidth
			height = width * ratio
			if height < minEntitySize {
				height = minEntitySize
				width = height / ratio
			}
		}
		e.Width = width
		e.Height = height
	})
}

// PlaceFree finds a position near (x, y) that avoids existing entities.
func (s *EntityStore) PlaceFree(x, y, width, height float64) (float64, float64) {
	occupied := make([]Rect, 0, len(s.entities))
	for _, e := range s.entities {
		occupied = append(occupied, e.Bounds())
	}
	return findFreePlacement(x, y, width, height, occupied)
}

// Reset replaces the collection wholesale, used when loading a session.
func (s *EntityStore) Reset(entities []CanvasEntity) {
	s.entities = append([]CanvasEntity(nil), entities...)
	for i := range s.entities {
		s.entities[i].Selected = false
	}
}
