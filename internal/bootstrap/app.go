package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"subtitle-matcher/internal/align"
	"subtitle-matcher/internal/config"
	"subtitle-matcher/internal/diagnostics"
	"subtitle-matcher/internal/domain"
	"subtitle-matcher/internal/gemini"
	"subtitle-matcher/internal/jobs"
	"subtitle-matcher/internal/prompt"
	"subtitle-matcher/internal/subtitle"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var subtitleDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Subtitle files",
		Pattern:     "*.srt",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// AlignmentRequest is one UI-submitted alignment job.
type AlignmentRequest struct {
	InputPath  string `json:"inputPath"`
	Transcript string `json:"transcript"`
	OutputPath string `json:"outputPath,omitempty"`
	// APIKey overrides the environment credential for this session.
	// Never persisted.
	APIKey string `json:"apiKey,omitempty"`
}

// alignRunner isolates the alignment pipeline behind an interface.
type alignRunner interface {
	Align(ctx context.Context, originalSRT, correctedTranscript string) (align.Result, error)
}

// alignerFactory builds one runner per job with its progress sink.
type alignerFactory func(apiKey, model string, opts prompt.Options, progress align.ProgressFunc) (alignRunner, error)

// App wires configuration, jobs, the aligner, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Diagnostics domain.DiagnosticReport

	assets     fs.FS
	checker    *diagnostics.Checker
	newAligner alignerFactory

	mu          sync.Mutex
	apiKey      string
	activeJobID string
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// New builds the application with persisted settings and preflight
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	_ = godotenv.Load() // best-effort: load .env if present

	store := config.NewJSONStore(config.SettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	apiKey := config.APIKeyFromEnv()
	checker := diagnostics.NewChecker()
	report := checker.Run(settings, apiKey)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		newAligner:  newGeminiAligner,
		apiKey:      apiKey,
		events:      jobs.NewEventBus(1000),
	}, nil
}

// newGeminiAligner is the production aligner factory.
func newGeminiAligner(apiKey, model string, opts prompt.Options, progress align.ProgressFunc) (alignRunner, error) {
	client, err := gemini.New(gemini.Config{APIKey: apiKey, Model: model})
	if err != nil {
		return nil, err
	}
	return align.New(client, opts, progress), nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Subtitle Matcher",
		Width:       1000,
		Height:      850,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns preflight checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	apiKey := a.apiKey
	a.Settings = settings
	a.mu.Unlock()

	report := a.checker.Run(settings, apiKey)
	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized, a.apiKey)
	}
	a.mu.Unlock()

	return normalized, nil
}

// SetAPIKey stores a user-entered credential for this session only.
func (a *App) SetAPIKey(key string) {
	a.mu.Lock()
	a.apiKey = strings.TrimSpace(key)
	a.mu.Unlock()
}

// HasAPIKey reports whether a credential is available.
func (a *App) HasAPIKey() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apiKey != ""
}

// PickInputFile opens a native file dialog for subtitle selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select original SRT file",
		Filters: subtitleDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputFile opens a native save dialog for the aligned subtitle.
func (a *App) PickOutputFile(inputPath string) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	defaultName := "matched.srt"
	if strings.TrimSpace(inputPath) != "" {
		defaultName = filepath.Base(subtitle.DefaultOutputPath(inputPath))
	}

	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save matched SRT file as",
		DefaultFilename: defaultName,
		Filters:         subtitleDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in
// the file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// TestConnection verifies the credential against the live endpoint.
func (a *App) TestConnection() error {
	a.mu.Lock()
	apiKey := a.apiKey
	model := a.Settings.Model
	a.mu.Unlock()

	client, err := gemini.New(gemini.Config{APIKey: apiKey, Model: model})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return client.Ping(ctx)
}

// StartAlignment creates a job and runs it asynchronously. A second
// request while one is active is rejected; running jobs cannot be
// cancelled.
func (a *App) StartAlignment(req AlignmentRequest) (domain.Job, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return domain.Job{}, fmt.Errorf("input subtitle path is required")
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return domain.Job{}, fmt.Errorf("corrected transcript is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	apiKey := a.apiKey
	a.mu.Unlock()
	if key := strings.TrimSpace(req.APIKey); key != "" {
		apiKey = key
	}
	if apiKey == "" {
		return domain.Job{}, gemini.ErrMissingAPIKey
	}

	jobID := fmt.Sprintf("job-%d", time.Now().UnixNano())
	if err := a.Jobs.Start(jobID); err != nil {
		return domain.Job{}, err
	}

	a.mu.Lock()
	a.activeJobID = jobID
	a.Settings = settings
	a.mu.Unlock()

	a.publishStatus(jobID, domain.JobStatusReading, "Job started")

	go a.runAlignmentJob(jobID, req, settings, apiKey)
	return a.Jobs.Current(), nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runAlignmentJob executes the pipeline and maps outcomes to job events.
// All UI-visible state travels through the event bus; the worker never
// touches UI state directly.
func (a *App) runAlignmentJob(jobID string, req AlignmentRequest, settings domain.Settings, apiKey string) {
	original, err := subtitle.ReadFile(req.InputPath)
	if err != nil {
		a.failJob(jobID, fmt.Errorf("read input: %w", err))
		return
	}
	if !subtitle.ValidateFormat(original) {
		a.publishLog(jobID, "Input does not look like a valid SRT file, continuing anyway")
	}

	if err := a.Jobs.Transition(domain.JobStatusAligning); err == nil {
		a.publishStatus(jobID, domain.JobStatusAligning, "Aligning transcript with "+settings.Model)
	}

	runner, err := a.newAligner(apiKey, settings.Model, prompt.Options{
		MaxLineChars:   settings.MaxLineChars,
		CountLatin:     settings.CountLatin,
		RequireMapping: settings.RequireMapping,
	}, func(message string) {
		a.publishLog(jobID, message)
	})
	if err != nil {
		a.failJob(jobID, fmt.Errorf("configure aligner: %w", err))
		return
	}

	result, err := runner.Align(context.Background(), original, req.Transcript)
	if err != nil {
		a.failJob(jobID, err)
		return
	}

	if err := a.Jobs.Transition(domain.JobStatusWriting); err == nil {
		a.publishStatus(jobID, domain.JobStatusWriting, "Writing matched subtitle file")
	}

	outputPath := resolveOutputPath(req, settings)
	if err := subtitle.WriteFile(outputPath, result.Text); err != nil {
		a.failJob(jobID, err)
		return
	}

	if err := a.Jobs.Transition(domain.JobStatusDone); err == nil {
		a.publishStatus(jobID, domain.JobStatusDone, "Job completed")
	}
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeResult,
		Status:     domain.JobStatusDone,
		Message:    "Matched subtitle exported",
		OutputPath: outputPath,
		Mapping:    result.Mapping,
	})
	a.clearActiveJob(jobID)
}

// failJob transitions to failed, reports the error, and frees the slot.
func (a *App) failJob(jobID string, err error) {
	_ = a.Jobs.Transition(domain.JobStatusFailed)
	a.publishStatus(jobID, domain.JobStatusFailed, "Job failed")
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  domain.JobStatusFailed,
		Message: err.Error(),
	})
	a.clearActiveJob(jobID)
}

// resolveOutputPath applies explicit path, configured directory, or
// the input-derived default, in that order.
func resolveOutputPath(req AlignmentRequest, settings domain.Settings) string {
	if strings.TrimSpace(req.OutputPath) != "" {
		return req.OutputPath
	}
	derived := subtitle.DefaultOutputPath(req.InputPath)
	if strings.TrimSpace(settings.OutputDir) != "" {
		return filepath.Join(settings.OutputDir, filepath.Base(derived))
	}
	return derived
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishLog sends one progress line.
func (a *App) publishLog(jobID, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeLog,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// clearActiveJob clears the active marker for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
	}
}

// runtimeContext returns the current Wails runtime context for dialogs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty
// or nonsensical values.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.Model = strings.TrimSpace(settings.Model)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	if settings.Model == "" {
		settings.Model = config.DefaultModel
	}
	if settings.MaxLineChars < 0 {
		settings.MaxLineChars = 0
	}
	return settings
}

// openInFileManager launches the platform file explorer for the path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}

