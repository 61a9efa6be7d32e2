package main

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const exportMargin = 40.0

func exportFace(size float64) (font.Face, error) {
	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %v", err)
	}
	return truetype.NewFace(ttfFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func contentBounds(rects []Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.Width)
		maxY = math.Max(maxY, r.Y+r.Height)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

func newExportContext(content Rect) (*gg.Context, error) {
	w := int(content.Width + 2*exportMargin)
	h := int(content.Height + 2*exportMargin)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("nothing to export")
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	face, err := exportFace(13)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)
	return dc, nil
}

// ExportCanvasPNG renders every entity at world scale into a PNG.
// Image entities are composited from the store; the rest are drawn as
// labeled frames.
func ExportCanvasPNG(store *EntityStore, images ImageStore, filename string) error {
	var rects []Rect
	for _, e := range store.All() {
		rects = append(rects, e.Bounds())
	}
	content, ok := contentBounds(rects)
	if !ok {
		return fmt.Errorf("nothing to export")
	}
	dc, err := newExportContext(content)
	if err != nil {
		return err
	}

	for _, e := range store.All() {
		x := e.X - content.X + exportMargin
		y := e.Y - content.Y + exportMargin

		if e.Kind == EntityImage && e.ImageID != "" {
			if data, err := images.Load(e.ImageID); err == nil {
				if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
					drawScaledImage(dc, img, x, y, e.Width, e.Height)
					continue
				}
			}
		}

		dc.SetRGB(0.97, 0.97, 0.97)
		dc.DrawRectangle(x, y, e.Width, e.Height)
		dc.Fill()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawRectangle(x, y, e.Width, e.Height)
		dc.Stroke()
		dc.DrawString(entityCaption(e, images), x+8, y+18)
		if e.Kind == EntityText {
			drawWrappedText(dc, e.Text, x+8, y+36, e.Width-16)
		}
	}

	return dc.SavePNG(filename)
}

// ExportGraphPNG renders the provenance graph with the same cubic
// bezier connectors the terminal view samples.
func ExportGraphPNG(graph *GraphStore, filename string) error {
	var rects []Rect
	for _, n := range graph.Nodes() {
		rects = append(rects, n.Bounds())
	}
	content, ok := contentBounds(rects)
	if !ok {
		return fmt.Errorf("nothing to export")
	}
	dc, err := newExportContext(content)
	if err != nil {
		return err
	}

	offset := Point{exportMargin - content.X, exportMargin - content.Y}

	for _, e := range graph.Edges() {
		from, okF := graph.Node(e.From)
		to, okT := graph.Node(e.To)
		if !okF || !okT {
			continue
		}
		p0, p1, p2, p3 := connectorCurve(from, to, e.ToHandle)
		r, g, b := hexRGB(e.Color)
		dc.SetRGB(r, g, b)
		dc.SetLineWidth(2)
		dc.MoveTo(p0.X+offset.X, p0.Y+offset.Y)
		dc.CubicTo(p1.X+offset.X, p1.Y+offset.Y, p2.X+offset.X, p2.Y+offset.Y, p3.X+offset.X, p3.Y+offset.Y)
		dc.Stroke()
	}

	for _, n := range graph.Nodes() {
		x := n.X + offset.X
		y := n.Y + offset.Y
		dc.SetRGB(1, 1, 1)
		dc.DrawRoundedRectangle(x, y, n.Width, n.Height, 6)
		dc.Fill()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawRoundedRectangle(x, y, n.Width, n.Height, 6)
		dc.Stroke()
		label := n.Label
		if n.Kind == NodeWorkflow {
			label = statusBadge(n.Status) + " " + label
		}
		dc.DrawString(label, x+8, y+18)

		if n.Kind == NodeWorkflow {
			for _, handle := range []string{HandlePrompt, HandleControl, HandleReference} {
				a := handleAnchor(n, handle)
				r, g, b := hexRGB(edgeColor(handle))
				dc.SetRGB(r, g, b)
				dc.DrawCircle(a.X+offset.X, a.Y+offset.Y, 4)
				dc.Fill()
			}
		} else {
			a := outputAnchor(n)
			dc.SetRGB(0.4, 0.4, 0.4)
			dc.DrawCircle(a.X+offset.X, a.Y+offset.Y, 4)
			dc.Fill()
		}
	}

	return dc.SavePNG(filename)
}

func drawScaledImage(dc *gg.Context, img image.Image, x, y, w, h float64) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	dc.Push()
	dc.Translate(x, y)
	dc.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()
}

func drawWrappedText(dc *gg.Context, text string, x, y, width float64) {
	if width < 20 {
		return
	}
	dc.SetRGB(0.1, 0.1, 0.1)
	lineY := y
	for _, line := range dc.WordWrap(text, width) {
		dc.DrawString(line, x, lineY)
		lineY += 16
	}
}

// hexRGB parses "#rrggbb"; unknown input falls back to dark gray.
func hexRGB(hex string) (float64, float64, float64) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0.25, 0.25, 0.25
	}
	val := func(c byte) int {
		switch {
		case c >= '0' && c <= '9':
			return int(c - '0')
		case c >= 'a' && c <= 'f':
			return int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			return int(c-'A') + 10
		}
		return 0
	}
	r := val(hex[1])*16 + val(hex[2])
	g := val(hex[3])*16 + val(hex[4])
	b := val(hex[5])*16 + val(hex[6])
	return float64(r) / 255, float64(g) / 255, float64(b) / 255
}
