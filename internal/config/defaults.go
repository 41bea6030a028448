package config

import (
	"os"
	"path/filepath"

	"subtitle-matcher/internal/domain"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultMaxLineChars caps rendered CJK characters per merged subtitle line.
const DefaultMaxLineChars = 18

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		Model:          DefaultModel,
		OutputDir:      filepath.Join(homeDir, "Documents", "Subtitles"),
		MaxLineChars:   DefaultMaxLineChars,
		CountLatin:     false,
		RequireMapping: true,
	}
}

// SettingsPath returns the per-user settings file location.
func SettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".subtitle-matcher", "settings.json")
}
