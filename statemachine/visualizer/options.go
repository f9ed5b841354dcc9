package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowHooks lists enter/exit hooks and guards under each state
	ShowHooks bool

	// ShowGuards labels edges leaving a guarded state
	ShowGuards bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// MarkCurrent styles the description's current state
	MarkCurrent bool

	// Theme controls the color scheme: "default", "dark", "forest"
	Theme string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowHooks:  true,
		ShowGuards: true,
		Direction:  "TD",
		Theme:      "default",
	}
}

// WithShowHooks enables/disables hook and guard markers on states.
func (o Options) WithShowHooks(show bool) Options {
	o.ShowHooks = show

	return o
}

// WithShowGuards enables/disables guard labels on edges.
func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithMarkCurrent enables/disables styling of the current state.
func (o Options) WithMarkCurrent(mark bool) Options {
	o.MarkCurrent = mark

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}
