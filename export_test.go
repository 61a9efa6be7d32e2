package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExportCanvasPNG(t *testing.T) {
	store := NewEntityStore()
	store.Add(CanvasEntity{ID: "a", Kind: EntityText, X: 0, Y: 0, Width: 200, Height: 100, Text: "a red fox in snow"})
	store.Add(CanvasEntity{ID: "b", Kind: EntityBoard, X: 300, Y: 50, Width: 150, Height: 150})

	path := filepath.Join(t.TempDir(), "canvas.png")
	if err := ExportCanvasPNG(store, newMemImageStore(), path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("exported file is empty")
	}
}

func TestExportCanvasPNGEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := ExportCanvasPNG(NewEntityStore(), newMemImageStore(), path); err == nil {
		t.Error("empty canvas should refuse to export")
	}
}

func TestExportGraphPNG(t *testing.T) {
	g := NewGraphStore()
	b := NewGraphBuilder(g, LayoutSessionGrid)
	b.Rebuild([]Generation{makeGen("a red fox in snow", []ImageRef{{ID: "img1", Role: "control"}}, []string{"out1"})})

	path := filepath.Join(t.TempDir(), "graph.png")
	if err := ExportGraphPNG(g, path); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("expected a non-empty file, err=%v", err)
	}
}

func TestHexRGB(t *testing.T) {
	r, g, b := hexRGB("#ff0080")
	if r != 1.0 || g != 0.0 || b < 0.5 || b > 0.51 {
		t.Errorf("got %f %f %f", r, g, b)
	}
	r, g, b = hexRGB("garbage")
	if r != 0.25 || g != 0.25 || b != 0.25 {
		t.Errorf("fallback should be gray, got %f %f %f", r, g, b)
	}
}
