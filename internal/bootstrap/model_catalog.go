package bootstrap

import (
	"subtitle-matcher/internal/config"
	"subtitle-matcher/internal/domain"
)

// geminiModelCatalog lists the model presets offered in the UI.
// Any gemini-* name typed into settings also works; these are the
// tested defaults.
var geminiModelCatalog = []domain.GeminiModelOption{
	{
		ID:          "gemini-2.5-flash",
		Name:        "Gemini 2.5 Flash",
		Description: "Fast and inexpensive; the recommended model for alignment.",
	},
	{
		ID:          "gemini-2.5-flash-lite",
		Name:        "Gemini 2.5 Flash Lite",
		Description: "Cheapest option; may struggle with long subtitle files.",
	},
	{
		ID:          "gemini-2.5-pro",
		Name:        "Gemini 2.5 Pro",
		Description: "Highest quality; slower and more expensive.",
	},
	{
		ID:          "gemini-2.0-flash",
		Name:        "Gemini 2.0 Flash",
		Description: "Previous generation fallback.",
	},
}

// ModelCatalog returns the selectable model presets, marking the
// currently configured one.
func (a *App) ModelCatalog() []domain.GeminiModelOption {
	a.mu.Lock()
	current := a.Settings.Model
	a.mu.Unlock()
	if current == "" {
		current = config.DefaultModel
	}

	out := make([]domain.GeminiModelOption, len(geminiModelCatalog))
	copy(out, geminiModelCatalog)
	for i := range out {
		out[i].Default = out[i].ID == current
	}
	return out
}
