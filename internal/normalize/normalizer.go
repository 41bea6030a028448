// Package normalize turns a raw, untrusted model response into clean
// subtitle text. Every stage degrades gracefully instead of failing:
// the caller needs some usable text far more often than a hard error,
// so only the emptiness guard and an explicit model refusal reject input.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest plausible response in characters. Anything
// shorter after trimming is treated as an invalid response. This is a
// sanity floor, not a format validator.
const MinLength = 10

// Result carries the cleaned subtitle text and, when the response used
// the two-stage protocol, the diagnostic mapping table section.
type Result struct {
	// Text is the cleaned subtitle body.
	Text string
	// Mapping is the raw mapping table section, if one was detected.
	// Diagnostic only; never part of Text.
	Mapping string
}

// InvalidResponseError reports a response too short to be usable.
type InvalidResponseError struct {
	Length int
}

// Error describes the failed length guard.
func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("response too short: %d characters, need at least %d", e.Length, MinLength)
}

// ModelRefusalError reports an explicit ERROR marker emitted by the
// model, typically on transcript/entry cardinality mismatch.
type ModelRefusalError struct {
	Message string
}

// Error returns the model's own explanation.
func (e *ModelRefusalError) Error() string {
	return "model refused alignment: " + e.Message
}

var (
	fenceLineRE     = regexp.MustCompile("^\\s*```[a-zA-Z0-9_-]*\\s*$")
	mappingHeaderRE = regexp.MustCompile(`(?i)^\s*#*\s*mapping\b`)
	digitLineRE     = regexp.MustCompile(`^\d+$`)
	timecodeLineRE  = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}$`)
)

// Normalize cleans a raw model response into subtitle text.
//
// Stages: BOM/line-ending normalization, code-fence removal, two-stage
// section detection, final trim. Idempotent: normalizing already-clean
// text returns it unchanged.
func Normalize(raw string) (Result, error) {
	text := strings.TrimPrefix(raw, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	if n := utf8.RuneCountInString(text); n < MinLength {
		return Result{}, &InvalidResponseError{Length: n}
	}

	text = stripCodeFences(text)

	if msg, refused := refusalMessage(text); refused {
		return Result{}, &ModelRefusalError{Message: msg}
	}

	text, mapping := splitMappingSection(text)

	return Result{
		Text:    strings.TrimSpace(text),
		Mapping: strings.TrimSpace(mapping),
	}, nil
}

// stripCodeFences removes fenced block delimiters, unwrapping their
// contents in place. Fence markers on their own line are dropped whether
// or not they pair up; inline stragglers are removed afterward.
func stripCodeFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if fenceLineRE.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

// refusalMessage detects the explicit error marker the prompt asks the
// model to emit instead of guessing on cardinality mismatch.
func refusalMessage(text string) (string, bool) {
	if !strings.HasPrefix(text, "ERROR:") {
		return "", false
	}
	msg := strings.TrimSpace(strings.TrimPrefix(text, "ERROR:"))
	if msg == "" {
		msg = "no reason given"
	}
	return msg, true
}

// splitMappingSection locates the start of the real subtitle body and
// discards anything before it, capturing a detected mapping table for
// diagnostics. When no body start is found the text is returned
// unchanged: the normalizer never invents structure it cannot detect.
func splitMappingSection(text string) (body, mapping string) {
	lines := strings.Split(text, "\n")

	headerIdx := -1
	for i, line := range lines {
		if mappingHeaderRE.MatchString(line) {
			headerIdx = i
			break
		}
	}

	bodyIdx := -1
	for i := 0; i+1 < len(lines); i++ {
		if digitLineRE.MatchString(strings.TrimSpace(lines[i])) &&
			timecodeLineRE.MatchString(strings.TrimSpace(lines[i+1])) {
			bodyIdx = i
			break
		}
	}

	if bodyIdx < 0 {
		return text, ""
	}

	if headerIdx >= 0 && headerIdx < bodyIdx {
		mapping = strings.Join(lines[headerIdx:bodyIdx], "\n")
	}
	return strings.Join(lines[bodyIdx:], "\n"), mapping
}
