package main

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

type stubGenerator struct{}

func (stubGenerator) GenerateImage(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return &GenerateResult{}, nil
}

func (stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func newTestApp(t *testing.T) appModel {
	t.Helper()
	config := &Config{DataDirectory: t.TempDir(), Model: "m1", AspectRatio: "1:1", Steps: 30}
	return newAppModel(config, openTestStore(t), newMemImageStore(), stubGenerator{})
}

func TestSaveSnapshotIgnoresLaterEdits(t *testing.T) {
	m := newTestApp(t)
	m.adoptSession(NewSession("fox studies"))
	m.entities.Add(CanvasEntity{ID: "e1", Kind: EntityText, X: 10, Y: 20, Width: 200, Height: 80, Text: "a red fox"})

	cmd := m.saveSession()

	// Edits landing between the snapshot and the write must not leak in.
	m.entities.MoveBy([]string{"e1"}, Point{50, 50})
	m.session.Generations = append(m.session.Generations,
		NewGeneration("later", GenerationParams{Model: "m1"}, nil))

	msg, ok := cmd().(sessionSavedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("save failed: %+v", msg)
	}

	loaded, err := m.sessions.Load(context.Background(), m.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Entities) != 1 || loaded.Entities[0].X != 10 {
		t.Errorf("saved snapshot carried a post-save move: %+v", loaded.Entities)
	}
	if len(loaded.Generations) != 0 {
		t.Errorf("saved snapshot carried a post-save generation: %d", len(loaded.Generations))
	}
}

func TestInputKeyHandlesMultiByteRunes(t *testing.T) {
	key := func(m appModel, msg tea.KeyMsg) appModel {
		next, _ := m.updateInputKey(msg)
		return next.(appModel)
	}

	m := appModel{mode: ModeTitle}
	m = key(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("né")})
	m = key(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("⚙")})
	if m.input != "né⚙" || m.inputCursor != 3 {
		t.Fatalf("got %q cursor %d", m.input, m.inputCursor)
	}

	// Cursor moves and deletes count runes, not bytes.
	m = key(m, tea.KeyMsg{Type: tea.KeyLeft})
	m = key(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.input != "n⚙" || m.inputCursor != 1 {
		t.Errorf("backspace should remove the whole rune, got %q cursor %d", m.input, m.inputCursor)
	}
	if strings.ContainsRune(m.input, utf8.RuneError) {
		t.Errorf("input corrupted: %q", m.input)
	}
}

func TestStatusBarTruncatesWholeGlyphs(t *testing.T) {
	m := newTestApp(t)
	m.width, m.height = 12, 10
	m.view = ViewCanvas
	m.errorMessage = strings.Repeat("⚙", 40)

	bar := m.renderStatusBar()
	if strings.ContainsRune(bar, utf8.RuneError) {
		t.Errorf("status bar cut inside a glyph: %q", bar)
	}
}
