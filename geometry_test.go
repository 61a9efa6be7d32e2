package main

import (
	"math"
	"testing"
)

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{Pan: Point{37, -12}, Zoom: 1.5}
	world := Point{100, 250}
	back := v.ScreenToWorld(v.WorldToScreen(world))
	if math.Abs(back.X-world.X) > 1e-9 || math.Abs(back.Y-world.Y) > 1e-9 {
		t.Errorf("round trip drifted: got (%f, %f), want (%f, %f)", back.X, back.Y, world.X, world.Y)
	}
}

func TestSetZoomClamps(t *testing.T) {
	v := NewViewport()
	v.SetZoom(5.0)
	if v.Zoom != maxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", maxZoom, v.Zoom)
	}
	v.SetZoom(-1.0)
	if v.Zoom != minZoom {
		t.Errorf("expected zoom clamped to %f, got %f", minZoom, v.Zoom)
	}
}

func TestSetZoomRejectsNaN(t *testing.T) {
	v := NewViewport()
	v.SetZoom(0.7)
	v.SetZoom(math.NaN())
	if v.Zoom != 0.7 {
		t.Errorf("NaN zoom should keep previous value, got %f", v.Zoom)
	}
	v.SetZoom(math.Inf(1))
	if v.Zoom != 0.7 {
		t.Errorf("Inf zoom should keep previous value, got %f", v.Zoom)
	}
}

func TestZoomAtKeepsFocusStationary(t *testing.T) {
	v := Viewport{Pan: Point{10, 20}, Zoom: 1.0}
	focus := Point{40, 30}
	worldBefore := v.ScreenToWorld(focus)
	v.ZoomAt(focus, 1.6)
	worldAfter := v.ScreenToWorld(focus)
	if math.Abs(worldBefore.X-worldAfter.X) > 1e-9 || math.Abs(worldBefore.Y-worldAfter.Y) > 1e-9 {
		t.Errorf("focus world point moved: before (%f, %f), after (%f, %f)",
			worldBefore.X, worldBefore.Y, worldAfter.X, worldAfter.Y)
	}
}

func TestPanByIgnoresNaN(t *testing.T) {
	v := Viewport{Pan: Point{5, 5}, Zoom: 1.0}
	v.PanBy(Point{math.NaN(), 3})
	if v.Pan.X != 5 {
		t.Errorf("NaN pan delta should be rejected, got X=%f", v.Pan.X)
	}
	if v.Pan.Y != 8 {
		t.Errorf("finite pan delta should apply, got Y=%f", v.Pan.Y)
	}
}

func TestRectBetweenNormalizes(t *testing.T) {
	r := rectBetween(Point{10, 20}, Point{-5, 4})
	if r.X != -5 || r.Y != 4 || r.Width != 15 || r.Height != 16 {
		t.Errorf("unexpected rect: %+v", r)
	}
}

func TestFindFreePlacementAvoidsOccupied(t *testing.T) {
	occupied := []Rect{{X: 0, Y: 0, Width: 100, Height: 100}}
	x, y := findFreePlacement(0, 0, 50, 50, occupied)
	candidate := Rect{X: x, Y: y, Width: 50, Height: 50}
	if candidate.Intersects(occupied[0]) {
		t.Errorf("placement still overlaps: (%f, %f)", x, y)
	}
}

func TestFindFreePlacementGivesUpEventually(t *testing.T) {
	// A wall of occupied space longer than the nudge budget: the last
	// candidate is accepted instead of looping.
	occupied := []Rect{{X: -1e6, Y: -1e6, Width: 2e6, Height: 2e6}}
	x, y := findFreePlacement(0, 0, 10, 10, occupied)
	want := placementStep * maxPlacementTries
	if x != want || y != want {
		t.Errorf("expected last candidate (%f, %f), got (%f, %f)", want, want, x, y)
	}
}
