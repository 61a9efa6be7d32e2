package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

var (
	statusBarStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pickerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type sessionListMsg struct {
	infos []SessionInfo
	err   error
}

type sessionOpenedMsg struct {
	session *Session
	err     error
}

type sessionSavedMsg struct {
	err error
}

type historyMsg struct {
	gens []Generation
	err  error
}

type generationDoneMsg struct {
	genID   string
	result  *GenerateResult
	elapsed time.Duration
	err     error
}

type appModel struct {
	width  int
	height int

	config    *Config
	sessions  SessionStore
	images    ImageStore
	generator Generator

	session  *Session
	entities *EntityStore
	graph    *GraphStore
	builder  *GraphBuilder

	canvasStage *CanvasStage
	graphStage  *GraphStage
	canvasView  *Viewport
	graphView   *Viewport
	canvasPtr   *Pointer
	graphPtr    *Pointer

	// all-sessions provenance view, built on demand
	historyGraph   *GraphStore
	historyBuilder *GraphBuilder
	historyStage   *GraphStage
	historyView    *Viewport
	historyPtr     *Pointer

	view View
	mode Mode

	sessionList  []SessionInfo
	sessionIndex int

	input        string
	inputCursor  int
	editEntityID string
	editNodeID   string
	fileOp       FileOperation
	confirm      ConfirmAction

	pending int

	errorMessage   string
	successMessage string
}

func newAppModel(config *Config, sessions SessionStore, images ImageStore, generator Generator) appModel {
	entities := NewEntityStore()
	graph := NewGraphStore()
	builder := NewGraphBuilder(graph, LayoutSessionGrid)
	canvasView := NewViewport()
	graphView := NewViewport()
	canvasStage := NewCanvasStage(entities)
	graphStage := NewGraphStage(graph, builder)

	m := appModel{
		config:      config,
		sessions:    sessions,
		images:      images,
		generator:   generator,
		entities:    entities,
		graph:       graph,
		builder:     builder,
		canvasStage: canvasStage,
		graphStage:  graphStage,
		canvasView:  &canvasView,
		graphView:   &graphView,
		view:        ViewSessions,
		mode:        ModeNormal,
	}
	m.canvasPtr = NewPointer(canvasStage, m.canvasView)
	m.graphPtr = NewPointer(graphStage, m.graphView)

	historyGraph := NewGraphStore()
	historyView := NewViewport()
	m.historyGraph = historyGraph
	m.historyBuilder = NewGraphBuilder(historyGraph, LayoutChronological)
	m.historyStage = NewHistoryStage(historyGraph, m.historyBuilder)
	m.historyView = &historyView
	m.historyPtr = NewPointer(m.historyStage, m.historyView)
	return m
}

func (m appModel) Init() tea.Cmd {
	return m.loadSessionList()
}

// ── commands ──

func (m appModel) loadSessionList() tea.Cmd {
	store := m.sessions
	return func() tea.Msg {
		infos, err := store.List(context.Background())
		return sessionListMsg{infos: infos, err: err}
	}
}

func (m appModel) openSession(id string) tea.Cmd {
	store := m.sessions
	return func() tea.Msg {
		s, err := store.Load(context.Background(), id)
		return sessionOpenedMsg{session: s, err: err}
	}
}

// saveSession snapshots the live state into the session record and
// hands the write to a command. The entity and generation slices are
// cloned here, on the update loop, so the command's goroutine never
// reads memory the next gesture is mutating.
func (m *appModel) saveSession() tea.Cmd {
	if m.session == nil {
		return nil
	}
	m.session.Entities = append([]CanvasEntity(nil), m.entities.All()...)
	m.session.View = *m.canvasView

	snapshot := *m.session
	snapshot.Generations = append([]Generation(nil), m.session.Generations...)
	store := m.sessions
	return func() tea.Msg {
		return sessionSavedMsg{err: store.Save(context.Background(), &snapshot)}
	}
}

func (m appModel) loadHistory() tea.Cmd {
	store := m.sessions
	return func() tea.Msg {
		gens, err := store.LoadAllGenerations(context.Background())
		return historyMsg{gens: gens, err: err}
	}
}

func (m appModel) runGeneration(genID string, req *GenerateRequest) tea.Cmd {
	gen := m.generator
	return func() tea.Msg {
		start := time.Now()
		result, err := gen.GenerateImage(context.Background(), *req)
		return generationDoneMsg{genID: genID, result: result, elapsed: time.Since(start), err: err}
	}
}

// ── update ──

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionListMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.sessionList = msg.infos
		if m.sessionIndex >= len(m.sessionList) {
			m.sessionIndex = len(m.sessionList) - 1
		}
		if m.sessionIndex < 0 {
			m.sessionIndex = 0
		}
		return m, nil

	case sessionOpenedMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.adoptSession(msg.session)
		return m, nil

	case sessionSavedMsg:
		if msg.err != nil {
			m.errorMessage = "save failed: " + msg.err.Error()
		}
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.historyBuilder.Rebuild(msg.gens)
		m.view = ViewHistory
		return m, nil

	case generationDoneMsg:
		return m.finishGeneration(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *appModel) adoptSession(s *Session) {
	m.session = s
	m.entities.Reset(s.Entities)
	*m.canvasView = s.View
	m.canvasView.SetZoom(s.View.Zoom)
	*m.graphView = NewViewport()
	m.builder.Rebuild(s.Generations)
	m.view = ViewCanvas
	m.mode = ModeNormal
	m.errorMessage = ""
	m.successMessage = ""
}

func (m appModel) activePointer() (*Pointer, *Viewport) {
	switch m.view {
	case ViewGraph:
		return m.graphPtr, m.graphView
	case ViewHistory:
		return m.historyPtr, m.historyView
	}
	return m.canvasPtr, m.canvasView
}

func (m appModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeNormal || m.view == ViewSessions {
		return m, nil
	}
	ptr, view := m.activePointer()
	screen := Point{float64(msg.X), float64(msg.Y)}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		view.ZoomAt(screen, view.Zoom+zoomStep)
		return m, nil
	case tea.MouseButtonWheelDown:
		view.ZoomAt(screen, view.Zoom-zoomStep)
		return m, nil
	}

	ev := PointerEvent{
		Screen:   screen,
		Additive: msg.Ctrl || msg.Alt,
		PanMod:   msg.Shift,
	}
	switch msg.Button {
	case tea.MouseButtonMiddle:
		ev.Button = ButtonMiddle
	case tea.MouseButtonRight:
		ev.Button = ButtonRight
	default:
		ev.Button = ButtonLeft
	}

	switch msg.Action {
	case tea.MouseActionPress:
		m.errorMessage = ""
		ptr.Down(ev)
	case tea.MouseActionMotion:
		ptr.Move(ev)
	case tea.MouseActionRelease:
		if err := ptr.Up(ev); err != nil {
			m.errorMessage = err.Error()
		}
	}
	return m, m.collectDirty()
}

// collectDirty schedules a save when a gesture mutated either session
// stage. History gestures are drained but not persisted: node moves
// there are view adjustments, pinned in the history builder only.
func (m *appModel) collectDirty() tea.Cmd {
	m.historyStage.TakeDirty()
	if m.canvasStage.TakeDirty() || m.graphStage.TakeDirty() {
		return m.saveSession()
	}
	return nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeNormal:
		if m.view == ViewSessions {
			return m.updateSessionPickerKey(msg)
		}
		return m.updateNormalKey(msg)
	case ModePrompt, ModeText, ModeFile, ModeTitle:
		return m.updateInputKey(msg)
	case ModeConfirm:
		return m.updateConfirmKey(msg)
	}
	return m, nil
}

func (m appModel) updateSessionPickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.sessionIndex < len(m.sessionList)-1 {
			m.sessionIndex++
		}
		return m, nil
	case "k", "up":
		if m.sessionIndex > 0 {
			m.sessionIndex--
		}
		return m, nil
	case "enter":
		if m.sessionIndex >= 0 && m.sessionIndex < len(m.sessionList) {
			return m, m.openSession(m.sessionList[m.sessionIndex].ID)
		}
		return m, nil
	case "n":
		m.mode = ModeTitle
		m.input = ""
		m.inputCursor = 0
		return m, nil
	case "d":
		if m.sessionIndex >= 0 && m.sessionIndex < len(m.sessionList) {
			m.mode = ModeConfirm
			m.confirm = ConfirmDeleteSession
		}
		return m, nil
	}
	return m, nil
}

func (m appModel) updateNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, view := m.activePointer()

	panStep := 2.0
	if strings.HasPrefix(msg.String(), "shift+") {
		panStep = 6.0
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Sequence(m.saveSession(), tea.Quit)
	case "esc":
		m.canvasPtr.Leave()
		m.graphPtr.Leave()
		m.historyPtr.Leave()
		m.canvasStage.ClearSelection()
		m.graphStage.ClearSelection()
		m.historyStage.ClearSelection()
		m.errorMessage = ""
		return m, nil
	case "tab":
		if m.view == ViewCanvas {
			m.view = ViewGraph
		} else {
			m.view = ViewCanvas
		}
		return m, nil
	case "a":
		if m.view == ViewHistory {
			m.view = ViewGraph
			return m, nil
		}
		if m.view == ViewGraph {
			return m, m.loadHistory()
		}
		return m, nil
	case "o":
		cmd := m.saveSession()
		m.view = ViewSessions
		return m, tea.Sequence(cmd, m.loadSessionList())
	case "s":
		m.successMessage = "saved"
		return m, m.saveSession()
	case "r":
		m.mode = ModeTitle
		m.input = m.session.Title
		m.inputCursor = utf8.RuneCountInString(m.input)
		return m, nil

	case "h", "left", "shift+h", "shift+left":
		view.PanBy(Point{panStep, 0})
		return m, nil
	case "l", "right", "shift+l", "shift+right":
		view.PanBy(Point{-panStep, 0})
		return m, nil
	case "k", "up", "shift+k", "shift+up":
		view.PanBy(Point{0, panStep})
		return m, nil
	case "j", "down", "shift+j", "shift+down":
		view.PanBy(Point{0, -panStep})
		return m, nil
	case "+", "=":
		view.ZoomAt(m.screenCenter(), view.Zoom+zoomStep)
		return m, nil
	case "-":
		view.ZoomAt(m.screenCenter(), view.Zoom-zoomStep)
		return m, nil
	case "0":
		view.Pan = Point{}
		view.SetZoom(1.0)
		return m, nil

	case "d", "backspace":
		if m.hasSelection() {
			if !m.config.Confirmations {
				return m.deleteSelection()
			}
			m.mode = ModeConfirm
			m.confirm = ConfirmDeleteSelection
		}
		return m, nil

	case "x":
		m.mode = ModeFile
		m.fileOp = FileExportPNG
		m.input = "export"
		m.inputCursor = utf8.RuneCountInString(m.input)
		return m, nil
	}

	switch m.view {
	case ViewCanvas:
		return m.updateCanvasKey(msg)
	case ViewGraph:
		return m.updateGraphKey(msg)
	}
	return m, nil
}

func (m appModel) updateCanvasKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "t":
		m.mode = ModeText
		m.editEntityID = ""
		m.input = ""
		m.inputCursor = 0
		return m, nil
	case "e":
		for _, id := range m.entities.SelectedIDs() {
			if e, ok := m.entities.Get(id); ok && e.Kind == EntityText {
				m.mode = ModeText
				m.editEntityID = id
				m.input = e.Text
				m.inputCursor = utf8.RuneCountInString(m.input)
				break
			}
		}
		return m, nil
	case "b":
		center := m.centerWorld()
		x, y := m.entities.PlaceFree(center.X, center.Y, defaultBoardSize, defaultBoardSize)
		m.entities.Add(CanvasEntity{
			Kind: EntityBoard, X: x, Y: y,
			Width: defaultBoardSize, Height: defaultBoardSize,
		})
		return m, m.saveSession()
	case "i":
		m.mode = ModeFile
		m.fileOp = FileImportImage
		m.input = ""
		m.inputCursor = 0
		return m, nil
	case "v":
		return m.pasteClipboard()
	}
	return m, nil
}

func (m appModel) updateGraphKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "g":
		return m.triggerSelected()
	case "p":
		center := m.graphView.ScreenToWorld(m.screenCenter())
		id := m.builder.AddStandaloneNode(NodePrompt, promptPlaceholder, "", center)
		m.mode = ModePrompt
		m.editNodeID = id
		m.input = ""
		m.inputCursor = 0
		return m, nil
	case "w":
		center := m.graphView.ScreenToWorld(m.screenCenter())
		id := m.builder.AddStandaloneNode(NodeWorkflow, "new workflow", "", center)
		m.graph.UpdateNode(id, func(n *GraphNode) {
			n.Params = m.config.Params()
		})
		return m, m.saveSession()
	case "e":
		for _, id := range m.graphStage.SelectionIDs() {
			if n, ok := m.graph.Node(id); ok && n.Kind == NodePrompt {
				m.mode = ModePrompt
				m.editNodeID = id
				m.input = n.Text
				m.inputCursor = utf8.RuneCountInString(m.input)
				break
			}
		}
		return m, nil
	}
	return m, nil
}

// The input cursor is a rune index, never a byte offset: prompts hold
// whatever the user types, including multi-byte text.
func (m appModel) updateInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	multiline := m.mode == ModePrompt || m.mode == ModeText

	switch {
	case msg.Type == tea.KeyEscape:
		m.mode = ModeNormal
		m.input = ""
		m.inputCursor = 0
		m.editEntityID = ""
		m.editNodeID = ""
		return m, nil
	case msg.Type == tea.KeyCtrlS, msg.Type == tea.KeyEnter && !multiline:
		return m.commitInput()
	case msg.Type == tea.KeyEnter:
		m.input, m.inputCursor = insertRunes(m.input, m.inputCursor, []rune{'\n'})
		return m, nil
	case msg.String() == "left":
		if m.inputCursor > 0 {
			m.inputCursor--
		}
		return m, nil
	case msg.String() == "right":
		if m.inputCursor < utf8.RuneCountInString(m.input) {
			m.inputCursor++
		}
		return m, nil
	case msg.Type == tea.KeyBackspace:
		if m.inputCursor > 0 {
			m.input = deleteRuneAt(m.input, m.inputCursor-1)
			m.inputCursor--
		}
		return m, nil
	case msg.Type == tea.KeyDelete:
		m.input = deleteRuneAt(m.input, m.inputCursor)
		return m, nil
	case msg.Type == tea.KeySpace:
		m.input, m.inputCursor = insertRunes(m.input, m.inputCursor, []rune{' '})
		return m, nil
	case msg.Type == tea.KeyRunes:
		m.input, m.inputCursor = insertRunes(m.input, m.inputCursor, msg.Runes)
		return m, nil
	}
	return m, nil
}

// insertRunes inserts at a rune index and returns the advanced index.
func insertRunes(s string, cursor int, ins []rune) (string, int) {
	r := []rune(s)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(r) {
		cursor = len(r)
	}
	out := make([]rune, 0, len(r)+len(ins))
	out = append(out, r[:cursor]...)
	out = append(out, ins...)
	out = append(out, r[cursor:]...)
	return string(out), cursor + len(ins)
}

func deleteRuneAt(s string, at int) string {
	r := []rune(s)
	if at < 0 || at >= len(r) {
		return s
	}
	return string(r[:at]) + string(r[at+1:])
}

func (m appModel) commitInput() (tea.Model, tea.Cmd) {
	mode, text := m.mode, m.input
	m.mode = ModeNormal
	m.input = ""
	m.inputCursor = 0

	switch mode {
	case ModeTitle:
		title := strings.TrimSpace(text)
		if title == "" {
			title = "untitled"
		}
		if m.view == ViewSessions {
			m.adoptSession(NewSession(title))
			return m, m.saveSession()
		}
		m.session.Title = title
		return m, m.saveSession()

	case ModeText:
		id := m.editEntityID
		m.editEntityID = ""
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if id != "" {
			m.entities.Update(id, func(e *CanvasEntity) { e.Text = text })
		} else {
			center := m.centerWorld()
			x, y := m.entities.PlaceFree(center.X, center.Y, defaultTextWidth, defaultTextHeight)
			m.entities.Add(CanvasEntity{
				Kind: EntityText, X: x, Y: y,
				Width: defaultTextWidth, Height: defaultTextHeight,
				Text: text,
			})
		}
		return m, m.saveSession()

	case ModePrompt:
		id := m.editNodeID
		m.editNodeID = ""
		if id == "" {
			return m, nil
		}
		m.graph.UpdateNode(id, func(n *GraphNode) {
			n.Text = text
			label := firstLine(text)
			if strings.TrimSpace(label) == "" {
				label = promptPlaceholder
			}
			n.Label = truncateLabel(label, 24)
		})
		return m, m.saveSession()

	case ModeFile:
		return m.commitFileInput(text)
	}
	return m, nil
}

func (m appModel) commitFileInput(path string) (tea.Model, tea.Cmd) {
	path = strings.TrimSpace(path)
	op := m.fileOp
	m.fileOp = FileNone
	if path == "" {
		return m, nil
	}

	switch op {
	case FileImportImage:
		data, err := os.ReadFile(path)
		if err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		return m.addImageEntity(data, filepath.Base(path))

	case FileExportPNG:
		if !strings.HasSuffix(strings.ToLower(path), ".png") {
			path += ".png"
		}
		var err error
		switch m.view {
		case ViewGraph:
			err = ExportGraphPNG(m.graph, path)
		case ViewHistory:
			err = ExportGraphPNG(m.historyGraph, path)
		default:
			err = ExportCanvasPNG(m.entities, m.images, path)
		}
		if err != nil {
			m.errorMessage = err.Error()
		} else {
			m.successMessage = "exported " + path
		}
		return m, nil
	}
	return m, nil
}

func (m appModel) updateConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirm
	switch msg.String() {
	case "y", "enter":
		m.mode = ModeNormal
		m.confirm = ConfirmNone
		switch action {
		case ConfirmDeleteSelection:
			return m.deleteSelection()
		case ConfirmDeleteSession:
			if m.sessionIndex >= 0 && m.sessionIndex < len(m.sessionList) {
				id := m.sessionList[m.sessionIndex].ID
				store := m.sessions
				return m, tea.Sequence(func() tea.Msg {
					return sessionSavedMsg{err: store.Delete(context.Background(), id)}
				}, m.loadSessionList())
			}
		}
		return m, nil
	case "n", "esc":
		m.mode = ModeNormal
		m.confirm = ConfirmNone
		return m, nil
	}
	return m, nil
}

// ── actions ──

func (m appModel) hasSelection() bool {
	switch m.view {
	case ViewGraph:
		return len(m.graphStage.SelectionIDs()) > 0
	case ViewHistory:
		// The merged history is derived; nothing to delete.
		return false
	}
	return len(m.entities.SelectedIDs()) > 0
}

func (m appModel) deleteSelection() (tea.Model, tea.Cmd) {
	if m.view == ViewGraph {
		removed, err := m.graphStage.RemoveSelected()
		if err != nil {
			m.errorMessage = err.Error()
		}
		if removed == 0 {
			return m, nil
		}
		return m, m.saveSession()
	}
	ids := m.entities.SelectedIDs()
	if len(ids) == 0 {
		return m, nil
	}
	m.entities.Remove(ids...)
	return m, m.saveSession()
}

func (m appModel) pasteClipboard() (tea.Model, tea.Cmd) {
	content, err := ReadPaste()
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	switch content.Kind {
	case PasteImage:
		return m.addImageEntity(content.Image, "pasted")
	case PasteText:
		center := m.centerWorld()
		x, y := m.entities.PlaceFree(center.X, center.Y, defaultTextWidth, defaultTextHeight)
		m.entities.Add(CanvasEntity{
			Kind: EntityText, X: x, Y: y,
			Width: defaultTextWidth, Height: defaultTextHeight,
			Text: content.Text,
		})
		return m, m.saveSession()
	}
	return m, nil
}

func (m appModel) addImageEntity(data []byte, sourceName string) (tea.Model, tea.Cmd) {
	meta, err := m.images.Save(data, "imported")
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	w := float64(defaultImageSize)
	h := w
	if meta.Width > 0 {
		h = w * float64(meta.Height) / float64(meta.Width)
	}
	center := m.centerWorld()
	x, y := m.entities.PlaceFree(center.X, center.Y, w, h)
	m.entities.Add(CanvasEntity{
		Kind: EntityImage, X: x, Y: y,
		Width: w, Height: h,
		OriginalWidth: float64(meta.Width), OriginalHeight: float64(meta.Height),
		ImageID:    meta.ID,
		SourceName: sourceName,
	})
	m.successMessage = "added " + sourceName
	return m, m.saveSession()
}

// triggerSelected starts a generation from the selected workflow node.
// The pending record lands in the history immediately so the graph
// shows the in-flight workflow.
func (m appModel) triggerSelected() (tea.Model, tea.Cmd) {
	var workflowID string
	for _, id := range m.graphStage.SelectionIDs() {
		if n, ok := m.graph.Node(id); ok && n.Kind == NodeWorkflow {
			workflowID = id
			break
		}
	}
	if workflowID == "" {
		m.errorMessage = "select a workflow node to trigger"
		return m, nil
	}

	plan, err := PlanTrigger(m.graph, workflowID)
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}

	gen := NewGeneration(plan.Prompt, plan.Params, plan.InputRefs())
	log.Printf("trigger %s: %d control, %d reference", shortID(gen.ID), len(plan.ControlIDs), len(plan.ReferenceIDs))
	m.session.Generations = append(m.session.Generations, gen)
	m.builder.Rebuild(m.session.Generations)
	m.pending++
	m.successMessage = "generating…"

	req := plan.BuildRequest(m.images)
	return m, tea.Batch(m.runGeneration(gen.ID, req), m.saveSession())
}

func (m appModel) finishGeneration(msg generationDoneMsg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}
	if m.session == nil {
		return m, nil
	}

	var gen *Generation
	for i := range m.session.Generations {
		if m.session.Generations[i].ID == msg.genID {
			gen = &m.session.Generations[i]
			break
		}
	}
	if gen == nil {
		return m, nil
	}

	gen.Duration = msg.elapsed
	if msg.err != nil {
		log.Printf("generation %s failed after %s: %v", shortID(gen.ID), msg.elapsed, msg.err)
		gen.Status = GenerationFailed
		gen.Error = msg.err.Error()
		m.errorMessage = msg.err.Error()
		m.builder.Rebuild(m.session.Generations)
		return m, m.saveSession()
	}

	for _, data := range msg.result.Images {
		meta, err := m.images.Save(data, "output")
		if err != nil {
			m.errorMessage = err.Error()
			continue
		}
		gen.Outputs = append(gen.Outputs, meta.ID)

		w := float64(defaultImageSize)
		h := w
		if meta.Width > 0 {
			h = w * float64(meta.Height) / float64(meta.Width)
		}
		center := m.centerWorld()
		x, y := m.entities.PlaceFree(center.X, center.Y, w, h)
		m.entities.Add(CanvasEntity{
			Kind: EntityImage, X: x, Y: y,
			Width: w, Height: h,
			OriginalWidth: float64(meta.Width), OriginalHeight: float64(meta.Height),
			ImageID:      meta.ID,
			GenerationID: gen.ID,
			SourceName:   "generated",
		})
	}
	for _, text := range msg.result.Texts {
		gen.OutputTexts = append(gen.OutputTexts, text)
		center := m.centerWorld()
		x, y := m.entities.PlaceFree(center.X, center.Y, defaultTextWidth, defaultTextHeight)
		m.entities.Add(CanvasEntity{
			Kind: EntityText, X: x, Y: y,
			Width: defaultTextWidth, Height: defaultTextHeight,
			Text: text, GenerationID: gen.ID,
		})
	}

	gen.Status = GenerationCompleted
	m.successMessage = fmt.Sprintf("generated %d image(s) in %s", len(msg.result.Images), msg.elapsed.Round(time.Second))
	m.builder.Rebuild(m.session.Generations)
	return m, m.saveSession()
}

func (m appModel) screenCenter() Point {
	return Point{float64(m.width) / 2, float64(m.contentHeight()) / 2}
}

func (m appModel) centerWorld() Point {
	return m.canvasView.ScreenToWorld(m.screenCenter())
}

func (m appModel) contentHeight() int {
	h := m.height - 1
	if h < 1 {
		h = 1
	}
	return h
}

// ── view ──

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var content []string
	switch m.view {
	case ViewSessions:
		content = m.renderSessionPicker()
	case ViewCanvas:
		marquee, hasMarquee := m.canvasPtr.Marquee()
		content = renderCanvas(m.entities, *m.canvasView, m.width, m.contentHeight(), m.images, marquee, hasMarquee)
	case ViewGraph:
		marquee, hasMarquee := m.graphPtr.Marquee()
		from, to, hasPreview := m.graphPtr.EdgePreview()
		content = renderGraph(m.graph, *m.graphView, m.width, m.contentHeight(), from, to, hasPreview, marquee, hasMarquee)
	case ViewHistory:
		marquee, hasMarquee := m.historyPtr.Marquee()
		from, to, hasPreview := m.historyPtr.EdgePreview()
		content = renderGraph(m.historyGraph, *m.historyView, m.width, m.contentHeight(), from, to, hasPreview, marquee, hasMarquee)
	}

	var b strings.Builder
	for _, line := range content {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m appModel) renderSessionPicker() []string {
	lines := make([]string, 0, m.contentHeight())
	lines = append(lines, pickerStyle.Render("  loom sessions"), "")
	if len(m.sessionList) == 0 {
		lines = append(lines, dimStyle.Render("  no sessions yet — press 'n' to start one"))
	}
	for i, info := range m.sessionList {
		marker := "   "
		if i == m.sessionIndex {
			marker = " > "
		}
		line := fmt.Sprintf("%s%-30s %3d generations  %s",
			marker, truncateLabel(info.Title, 30), info.Generations,
			info.UpdatedAt.Format("2006-01-02 15:04"))
		if i == m.sessionIndex {
			line = pickerStyle.Render(line)
		}
		lines = append(lines, line)
	}
	for len(lines) < m.contentHeight() {
		lines = append(lines, "")
	}
	return lines[:m.contentHeight()]
}

func (m appModel) renderStatusBar() string {
	var left string
	switch m.mode {
	case ModePrompt:
		left = "prompt> " + m.inputWithCursor() + "  (ctrl+s save, esc cancel)"
	case ModeText:
		left = "text> " + m.inputWithCursor() + "  (ctrl+s save, esc cancel)"
	case ModeFile:
		left = "path> " + m.inputWithCursor()
	case ModeTitle:
		left = "title> " + m.inputWithCursor()
	case ModeConfirm:
		left = "delete? (y/n)"
	default:
		left = m.normalStatus()
	}

	if m.errorMessage != "" {
		left = errorStyle.Render(m.errorMessage)
	} else if m.successMessage != "" && m.mode == ModeNormal {
		left = m.normalStatus() + "  " + successStyle.Render(m.successMessage)
	}

	if lipgloss.Width(left) > m.width {
		left = truncate.String(left, uint(m.width))
	}
	pad := m.width - lipgloss.Width(left)
	if pad < 0 {
		pad = 0
	}
	return statusBarStyle.Render(left + strings.Repeat(" ", pad))
}

func (m appModel) normalStatus() string {
	switch m.view {
	case ViewSessions:
		return "enter open · n new · d delete · q quit"
	case ViewGraph:
		busy := ""
		if m.pending > 0 {
			busy = fmt.Sprintf(" · %d generating", m.pending)
		}
		return fmt.Sprintf("%s · graph · %.0f%%%s · g trigger · p prompt · w workflow · a history · tab canvas",
			m.sessionTitle(), m.graphView.Zoom*100, busy)
	case ViewHistory:
		return fmt.Sprintf("all sessions · %.0f%% · a back · tab canvas", m.historyView.Zoom*100)
	default:
		return fmt.Sprintf("%s · canvas · %.0f%% · t text · i image · b board · v paste · tab graph",
			m.sessionTitle(), m.canvasView.Zoom*100)
	}
}

func (m appModel) sessionTitle() string {
	if m.session == nil {
		return "loom"
	}
	return m.session.Title
}

func (m appModel) inputWithCursor() string {
	r := []rune(m.input)
	cursor := m.inputCursor
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(r) {
		cursor = len(r)
	}
	display := string(r[:cursor]) + "█" + string(r[cursor:])
	return strings.ReplaceAll(display, "\n", "⏎")
}
