// Package subtitle holds the local file boundary: reading and writing
// SRT files and cheap structural checks. Subtitle content is treated
// as opaque text; parsing it into entries is not this tool's job.
package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// OutputSuffix is appended to the input filename stem for the default
// output path.
const OutputSuffix = "_matched"

// ReadFile reads a subtitle file as UTF-8, falling back to ISO-8859-1
// when the bytes are not valid UTF-8. A missing file keeps its
// fs.ErrNotExist identity for errors.Is checks.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read subtitle file: %w", err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode subtitle file %s: %w", path, err)
	}
	return string(decoded), nil
}

// WriteFile writes subtitle text as UTF-8, creating parent directories.
func WriteFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return nil
}

// ValidateFormat is a cheap structural sniff for SRT-looking text.
// Advisory only; it never gates processing.
func ValidateFormat(text string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF"))
	if trimmed == "" {
		return false
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 {
		return false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
		return false
	}
	return strings.Contains(lines[1], "-->")
}

// DefaultOutputPath derives the output location from the input path:
// same directory, filename stem plus the matched suffix.
func DefaultOutputPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".srt"
	}
	return filepath.Join(dir, stem+OutputSuffix+ext)
}

// Stats summarizes one subtitle text for progress display.
type Stats struct {
	Chars   int  `json:"chars"`
	Lines   int  `json:"lines"`
	Entries int  `json:"entries"`
	Valid   bool `json:"valid"`
}

// Info computes display statistics for subtitle text. Entry counting
// follows the numbered-line convention and tolerates malformed blocks.
func Info(text string) Stats {
	stats := Stats{
		Chars: utf8.RuneCountInString(text),
		Valid: ValidateFormat(text),
	}
	if text == "" {
		return stats
	}

	lines := strings.Split(text, "\n")
	stats.Lines = len(lines)
	for _, line := range lines {
		if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && strings.TrimSpace(line) != "" {
			stats.Entries++
		}
	}
	return stats
}
