// Package align sequences one subtitle alignment: build the prompt,
// call the model, normalize the response. One attempt per invocation;
// failures are wrapped with stage context and never retried.
package align

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subtitle-matcher/internal/normalize"
	"subtitle-matcher/internal/prompt"
	"subtitle-matcher/internal/subtitle"
)

// Transport performs the outbound model call.
type Transport interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// ProgressFunc receives ordered human-readable progress lines.
// A nil func drops messages silently.
type ProgressFunc func(message string)

// Result is the outcome of one alignment.
type Result struct {
	// Text is the cleaned subtitle output.
	Text string
	// Mapping is the diagnostic mapping table, when the model emitted one.
	Mapping string
}

// StageError is a stage-aware alignment failure.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

// Error formats the failure with its stage.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Aligner runs alignments against one transport with fixed prompt options.
type Aligner struct {
	transport Transport
	opts      prompt.Options
	progress  ProgressFunc
}

// New creates an aligner. progress may be nil.
func New(transport Transport, opts prompt.Options, progress ProgressFunc) *Aligner {
	return &Aligner{
		transport: transport,
		opts:      opts,
		progress:  progress,
	}
}

// Align produces cleaned subtitle text for one original/transcript pair.
func (a *Aligner) Align(ctx context.Context, originalSRT, correctedTranscript string) (Result, error) {
	if strings.TrimSpace(originalSRT) == "" {
		return Result{}, &StageError{Stage: "prompt", Message: "original subtitle text is empty"}
	}
	if strings.TrimSpace(correctedTranscript) == "" {
		return Result{}, &StageError{Stage: "prompt", Message: "corrected transcript is empty"}
	}

	stats := subtitle.Info(originalSRT)
	a.emit(fmt.Sprintf("Original subtitle: %d characters, %d entries", stats.Chars, stats.Entries))
	a.emit(fmt.Sprintf("Corrected transcript: %d characters, %d lines", len(correctedTranscript), countLines(correctedTranscript)))
	if !stats.Valid {
		a.emit("Warning: input does not look like SRT, continuing anyway")
	}

	promptText := a.opts.Build(originalSRT, correctedTranscript)
	a.emit(fmt.Sprintf("Prompt built: %d characters", len(promptText)))

	start := time.Now()
	a.emit("Calling model, this may take a while...")
	raw, err := a.transport.Generate(ctx, promptText)
	if err != nil {
		return Result{}, &StageError{Stage: "transport", Message: "model request failed", Err: err}
	}
	a.emit(fmt.Sprintf("Response received: %d characters in %s", len(raw), time.Since(start).Round(time.Millisecond)))

	cleaned, err := normalize.Normalize(raw)
	if err != nil {
		return Result{}, &StageError{Stage: "normalize", Message: "unusable model response", Err: err}
	}

	if cleaned.Mapping != "" {
		a.emit(fmt.Sprintf("Mapping table detected (%d lines), removed from output", countLines(cleaned.Mapping)))
		a.emit(cleaned.Mapping)
	}
	if !subtitle.ValidateFormat(cleaned.Text) {
		a.emit("Warning: normalized output does not look like SRT")
	}
	a.emit(fmt.Sprintf("Alignment finished in %s", time.Since(start).Round(time.Millisecond)))

	return Result{Text: cleaned.Text, Mapping: cleaned.Mapping}, nil
}

// emit forwards one progress line to the sink, if any.
func (a *Aligner) emit(message string) {
	if a.progress != nil {
		a.progress(message)
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
