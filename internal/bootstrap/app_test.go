package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subtitle-matcher/internal/align"
	"subtitle-matcher/internal/config"
	"subtitle-matcher/internal/domain"
	"subtitle-matcher/internal/jobs"
	"subtitle-matcher/internal/prompt"
)

const testSRT = "1\n00:00:01,000 --> 00:00:02,000\nHelo world\n\n2\n00:00:02,000 --> 00:00:03,000\nthis is grate\n"

// memStore is an in-memory settings store for tests.
type memStore struct {
	settings domain.Settings
}

// Load returns the stored settings.
func (m *memStore) Load() (domain.Settings, error) {
	return m.settings, nil
}

// Save replaces the stored settings.
func (m *memStore) Save(settings domain.Settings) error {
	m.settings = settings
	return nil
}

// stubRunner simulates the alignment pipeline.
type stubRunner struct {
	result align.Result
	err    error
	block  chan struct{}
}

// Align returns the canned outcome, optionally blocking first.
func (s *stubRunner) Align(ctx context.Context, originalSRT, correctedTranscript string) (align.Result, error) {
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return align.Result{}, s.err
	}
	return s.result, nil
}

// newTestApp builds an app with injected store and aligner factory.
func newTestApp(t *testing.T, runner *stubRunner) *App {
	t.Helper()

	settings := config.DefaultSettings()
	settings.OutputDir = ""

	return &App{
		Settings: settings,
		Store:    &memStore{settings: settings},
		Jobs:     jobs.NewManager(),
		newAligner: func(apiKey, model string, opts prompt.Options, progress align.ProgressFunc) (alignRunner, error) {
			progress("aligner ready")
			return runner, nil
		},
		apiKey: "test-key-1234567890",
		events: jobs.NewEventBus(100),
	}
}

// waitForStatus polls until the job reaches a terminal status.
func waitForStatus(t *testing.T, app *App, want domain.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if app.Jobs.Current().Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job status = %s, want %s", app.Jobs.Current().Status, want)
}

// waitForEvent polls until an event of the given type is published.
func waitForEvent(t *testing.T, app *App, want jobs.EventType) jobs.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, event := range app.JobEvents(0) {
			if event.Type == want {
				return event
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event published", want)
	return jobs.Event{}
}

// writeInput creates a subtitle file to align.
func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.srt")
	if err := os.WriteFile(path, []byte(testSRT), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// TestStartAlignmentSuccess checks the full worker happy path.
func TestStartAlignmentSuccess(t *testing.T) {
	inputPath := writeInput(t)
	runner := &stubRunner{result: align.Result{
		Text:    "1\n00:00:01,000 --> 00:00:03,000\nHello world, this is great.",
		Mapping: "# MAPPING\nline 1 -> entries 1-2",
	}}
	app := newTestApp(t, runner)

	job, err := app.StartAlignment(AlignmentRequest{
		InputPath:  inputPath,
		Transcript: "Hello world, this is great.",
	})
	if err != nil {
		t.Fatalf("StartAlignment() error = %v", err)
	}
	if job.ID == "" {
		t.Fatal("StartAlignment() returned job without ID")
	}

	result := waitForEvent(t, app, jobs.EventTypeResult)

	outputPath := filepath.Join(filepath.Dir(inputPath), "episode_matched.srt")
	if result.OutputPath != outputPath {
		t.Fatalf("result path = %q, want %q", result.OutputPath, outputPath)
	}
	if result.Mapping == "" {
		t.Fatal("result event missing mapping diagnostic")
	}
	if app.Jobs.Current().Status != domain.JobStatusDone {
		t.Fatalf("final status = %s, want done", app.Jobs.Current().Status)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != runner.result.Text {
		t.Fatalf("output = %q", string(data))
	}

	var sawLog bool
	for _, event := range app.JobEvents(0) {
		if event.Type == jobs.EventTypeLog {
			sawLog = true
		}
	}
	if !sawLog {
		t.Fatal("no progress log events published")
	}
}

// TestStartAlignmentRejectsSecondJob checks the single-job constraint
// while a worker is in flight.
func TestStartAlignmentRejectsSecondJob(t *testing.T) {
	inputPath := writeInput(t)
	runner := &stubRunner{
		result: align.Result{Text: "1\n00:00:01,000 --> 00:00:03,000\nHi"},
		block:  make(chan struct{}),
	}
	app := newTestApp(t, runner)

	if _, err := app.StartAlignment(AlignmentRequest{InputPath: inputPath, Transcript: "Hi"}); err != nil {
		t.Fatalf("first StartAlignment() error = %v", err)
	}

	_, err := app.StartAlignment(AlignmentRequest{InputPath: inputPath, Transcript: "Hi"})
	if !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, jobs.ErrJobAlreadyRunning)
	}

	close(runner.block)
	waitForStatus(t, app, domain.JobStatusDone)
}

// TestStartAlignmentFailureResetsState checks error reporting and that
// the slot frees exactly once with no partial output.
func TestStartAlignmentFailureResetsState(t *testing.T) {
	inputPath := writeInput(t)
	runner := &stubRunner{err: errors.New("quota exceeded")}
	app := newTestApp(t, runner)

	if _, err := app.StartAlignment(AlignmentRequest{InputPath: inputPath, Transcript: "Hi"}); err != nil {
		t.Fatalf("StartAlignment() error = %v", err)
	}

	waitForEvent(t, app, jobs.EventTypeError)
	waitForStatus(t, app, domain.JobStatusFailed)

	var errorEvents int
	for _, event := range app.JobEvents(0) {
		if event.Type == jobs.EventTypeError {
			errorEvents++
		}
	}
	if errorEvents != 1 {
		t.Fatalf("error events = %d, want exactly 1", errorEvents)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(inputPath), "episode_matched.srt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output written, stat err = %v", err)
	}

	// Slot is free again after failure.
	if _, err := app.StartAlignment(AlignmentRequest{InputPath: inputPath, Transcript: "Hi"}); err != nil {
		t.Fatalf("restart after failure error = %v", err)
	}
	waitForStatus(t, app, domain.JobStatusFailed)
}

// TestStartAlignmentMissingInputFails checks the read failure path.
func TestStartAlignmentMissingInputFails(t *testing.T) {
	runner := &stubRunner{result: align.Result{Text: "unused"}}
	app := newTestApp(t, runner)

	if _, err := app.StartAlignment(AlignmentRequest{
		InputPath:  filepath.Join(t.TempDir(), "missing.srt"),
		Transcript: "Hi",
	}); err != nil {
		t.Fatalf("StartAlignment() error = %v", err)
	}

	waitForStatus(t, app, domain.JobStatusFailed)
}

// TestStartAlignmentValidatesRequest checks synchronous input guards.
func TestStartAlignmentValidatesRequest(t *testing.T) {
	app := newTestApp(t, &stubRunner{})

	if _, err := app.StartAlignment(AlignmentRequest{Transcript: "Hi"}); err == nil {
		t.Fatal("expected error for missing input path")
	}
	if _, err := app.StartAlignment(AlignmentRequest{InputPath: "in.srt"}); err == nil {
		t.Fatal("expected error for missing transcript")
	}

	app.SetAPIKey("")
	if _, err := app.StartAlignment(AlignmentRequest{InputPath: "in.srt", Transcript: "Hi"}); err == nil {
		t.Fatal("expected error for missing credential")
	}
}

// TestResolveOutputPath checks explicit, configured, and derived paths.
func TestResolveOutputPath(t *testing.T) {
	req := AlignmentRequest{InputPath: filepath.Join("media", "ep.srt")}

	got := resolveOutputPath(req, domain.Settings{})
	if got != filepath.Join("media", "ep_matched.srt") {
		t.Fatalf("derived path = %q", got)
	}

	got = resolveOutputPath(req, domain.Settings{OutputDir: "/subs"})
	if got != filepath.Join("/subs", "ep_matched.srt") {
		t.Fatalf("configured-dir path = %q", got)
	}

	req.OutputPath = "/explicit/out.srt"
	if got = resolveOutputPath(req, domain.Settings{OutputDir: "/subs"}); got != "/explicit/out.srt" {
		t.Fatalf("explicit path = %q", got)
	}
}

// TestNormalizeSettings checks trimming and default application.
func TestNormalizeSettings(t *testing.T) {
	got := normalizeSettings(domain.Settings{Model: "  ", MaxLineChars: -5, OutputDir: " /out "})
	if got.Model != config.DefaultModel {
		t.Fatalf("model = %q, want default", got.Model)
	}
	if got.MaxLineChars != 0 {
		t.Fatalf("max line chars = %d, want 0", got.MaxLineChars)
	}
	if got.OutputDir != "/out" {
		t.Fatalf("output dir = %q", got.OutputDir)
	}
}

// TestModelCatalogMarksConfiguredModel checks the default flag.
func TestModelCatalogMarksConfiguredModel(t *testing.T) {
	app := newTestApp(t, &stubRunner{})
	app.Settings.Model = "gemini-2.5-pro"

	var defaults int
	for _, option := range app.ModelCatalog() {
		if option.Default {
			defaults++
			if option.ID != "gemini-2.5-pro" {
				t.Fatalf("default = %q, want configured model", option.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("defaults = %d, want 1", defaults)
	}
}
