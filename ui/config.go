package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Listen is the address page agents connect to.
	Listen string
	// Backend is the configured speech backend name.
	Backend string
	// CacheSummary describes the audio cache; nil hides it.
	CacheSummary func() string

	EnableMouse bool
}
