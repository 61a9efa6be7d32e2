package main

const (
	// World-space size floor for entities and graph nodes.
	minEntitySize = 50.0

	minZoom  = 0.2
	maxZoom  = 2.0
	zoomStep = 0.1

	// Overlap-avoidance placement.
	placementStep     = 30.0
	maxPlacementTries = 25

	// Pointer hit-box for the resize/connector handles, in screen units.
	handleHitSize = 12.0

	// Default entity sizes.
	defaultImageSize  = 240.0
	defaultTextWidth  = 220.0
	defaultTextHeight = 80.0
	defaultBoardSize  = 320.0
)

// Provenance graph layout. One generation occupies a four-column tile:
// prompt, input images, workflow, outputs.
const (
	graphNodeWidth     = 170.0
	graphNodeHeight    = 80.0
	workflowNodeWidth  = 190.0
	workflowNodeHeight = 100.0

	graphColumnGap = 70.0
	graphRowGap    = 30.0
	graphTileGapX  = 120.0
	graphTileGapY  = 90.0

	graphTilesPerRow = 2
)

const promptPlaceholder = "(untitled prompt)"

// Edge colors by input role, used for PNG export.
const (
	edgeColorPrompt    = "#e0af68"
	edgeColorControl   = "#f7768e"
	edgeColorReference = "#9ece6a"
	edgeColorOutput    = "#7aa2f7"
)
