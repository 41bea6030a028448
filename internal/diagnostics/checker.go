package diagnostics

import (
	"fmt"
	"os"
	"strings"
	"time"

	"subtitle-matcher/internal/config"
	"subtitle-matcher/internal/domain"
)

// Checker validates credentials and required filesystem paths before a
// job can start.
type Checker struct {
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all preflight checks and returns a combined report.
// apiKey is the resolved credential, possibly empty.
func (c *Checker) Run(settings domain.Settings, apiKey string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkAPIKey(apiKey),
		c.checkModel(settings.Model),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkAPIKey verifies a plausible credential is available.
func (c *Checker) checkAPIKey(apiKey string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "api_key",
		Name: "Gemini API key",
	}

	if strings.TrimSpace(apiKey) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No API key found in %s.", config.APIKeyEnvVar)
		item.Hint = "Set the environment variable, add it to a .env file, or enter the key in the app."
		return item
	}
	if !config.ValidAPIKey(apiKey) {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "API key looks too short to be valid."
		item.Hint = "Copy the full key from Google AI Studio."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "API key is configured."
	return item
}

// checkModel validates the configured model identifier.
func (c *Checker) checkModel(model string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model",
		Name: "Model",
	}

	model = strings.TrimSpace(model)
	if model == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model name is empty."
		item.Hint = "Pick a model in settings, for example " + config.DefaultModel + "."
		return item
	}
	if !strings.HasPrefix(model, "gemini-") {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Unrecognized model name: %s", model)
		item.Hint = "Alignment may still work if the endpoint accepts this model."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using model %s.", model)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "No default output directory configured."
		item.Hint = "Output will be written next to each input file."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for aligned subtitles."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
