package main

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f}
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Center() Point {
	return Point{r.X + r.Width/2, r.Y + r.Height/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height && r.Y+r.Height > o.Y
}

// rectBetween builds a normalized rectangle from two corner points.
func rectBetween(a, b Point) Rect {
	x := math.Min(a.X, b.X)
	y := math.Min(a.Y, b.Y)
	return Rect{X: x, Y: y, Width: math.Abs(a.X - b.X), Height: math.Abs(a.Y - b.Y)}
}

// finiteOr replaces NaN and infinities with a fallback so bad input
// events can never poison the viewport.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Viewport maps between screen (terminal cell) coordinates and world
// coordinates. Pan is in screen units, Zoom is a positive scalar.
type Viewport struct {
	Pan  Point   `json:"pan"`
	Zoom float64 `json:"zoom"`
}

func NewViewport() Viewport {
	return Viewport{Zoom: 1.0}
}

func (v Viewport) ScreenToWorld(p Point) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1.0
	}
	return Point{(p.X - v.Pan.X) / zoom, (p.Y - v.Pan.Y) / zoom}
}

func (v Viewport) WorldToScreen(p Point) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1.0
	}
	return Point{p.X*zoom + v.Pan.X, p.Y*zoom + v.Pan.Y}
}

func (v *Viewport) PanBy(delta Point) {
	v.Pan.X = finiteOr(v.Pan.X+delta.X, v.Pan.X)
	v.Pan.Y = finiteOr(v.Pan.Y+delta.Y, v.Pan.Y)
}

// SetZoom clamps the requested zoom into [minZoom, maxZoom].
func (v *Viewport) SetZoom(zoom float64) {
	zoom = finiteOr(zoom, v.Zoom)
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	v.Zoom = zoom
}

// ZoomAt changes zoom while keeping the world point under focus (a
// screen position) stationary.
func (v *Viewport) ZoomAt(focus Point, zoom float64) {
	world := v.ScreenToWorld(focus)
	v.SetZoom(zoom)
	// Re-anchor pan so world maps back onto focus.
	v.Pan.X = finiteOr(focus.X-world.X*v.Zoom, v.Pan.X)
	v.Pan.Y = finiteOr(focus.Y-world.Y*v.Zoom, v.Pan.Y)
}

// findFreePlacement nudges a candidate rectangle by a fixed diagonal
// step while it overlaps any occupied rectangle. After maxPlacementTries
// the last candidate is accepted; overlap is tolerable, looping is not.
func findFreePlacement(x, y, width, height float64, occupied []Rect) (float64, float64) {
	candidate := Rect{X: x, Y: y, Width: width, Height: height}
	for attempt := 0; attempt < maxPlacementTries; attempt++ {
		clear := true
		for _, r := range occupied {
			if candidate.Intersects(r) {
				clear = false
				break
			}
		}
		if clear {
			break
		}
		candidate.X += placementStep
		candidate.Y += placementStep
	}
	return candidate.X, candidate.Y
}
