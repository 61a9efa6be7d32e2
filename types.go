package main

// View is the major surface the terminal shows.
type View string

const (
	ViewCanvas   View = "canvas"
	ViewGraph    View = "graph"
	ViewHistory  View = "history" // all-sessions provenance, read-mostly
	ViewSessions View = "sessions"
)

// Mode is the input mode within a view. Normal dispatches pointer and
// navigation input; the others capture the keyboard for a text field
// or a yes/no question.
type Mode int

const (
	ModeNormal Mode = iota
	ModePrompt      // editing prompt text for a selected node
	ModeText        // editing a canvas text entity
	ModeFile        // typing a path for import/export
	ModeTitle       // naming a session
	ModeConfirm
)

// FileOperation disambiguates what the path typed in ModeFile is for.
type FileOperation int

const (
	FileNone FileOperation = iota
	FileImportImage
	FileExportPNG
)

// ConfirmAction is the pending destructive action behind ModeConfirm.
type ConfirmAction int

const (
	ConfirmNone ConfirmAction = iota
	ConfirmDeleteSelection
	ConfirmDeleteSession
)
