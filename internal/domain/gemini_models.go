package domain

// GeminiModelOption describes one selectable Gemini model preset.
type GeminiModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}
