package prompt

import (
	"fmt"
	"strings"
)

// Options control the alignment policy spelled out in the prompt.
// The zero value disables the line cap and the mapping section.
type Options struct {
	// MaxLineChars caps rendered characters per merged output line.
	// Values <= 0 disable the cap instruction entirely.
	MaxLineChars int
	// CountLatin includes Latin letters, digits, and spaces in the cap.
	// When false only CJK script characters count toward the limit.
	CountLatin bool
	// RequireMapping asks for the two-stage output: a mapping table,
	// a blank line, then the final subtitle body.
	RequireMapping bool
}

// Build constructs the instruction-plus-data payload for one alignment
// request. Pure and deterministic: equal inputs yield byte-identical
// output, and both inputs appear verbatim.
func (o Options) Build(originalSRT, correctedTranscript string) string {
	var b strings.Builder

	b.WriteString("You are a subtitle alignment expert. Your task is to align a corrected transcript to the timing structure of an original SRT subtitle file.\n\n")
	b.WriteString("INSTRUCTIONS:\n\n")
	b.WriteString("1. Match Text to Timestamps: match each segment of the corrected transcript to the corresponding subtitle entries in the original SRT file based on content similarity.\n\n")
	b.WriteString("2. Merge When Necessary: if multiple consecutive original entries correspond to a single continuous segment of the corrected transcript, merge them into one subtitle entry with:\n")
	b.WriteString("   - Start time: the earliest start time among the merged entries\n")
	b.WriteString("   - End time: the latest end time among the merged entries\n")
	b.WriteString("   - Text: the corrected transcript text for that segment\n\n")

	rule := 3
	if o.MaxLineChars > 0 {
		scope := "CJK characters only; Latin letters, digits, and spaces do not count"
		if o.CountLatin {
			scope = "all rendered characters, including Latin letters, digits, and spaces"
		}
		fmt.Fprintf(&b, "%d. CRITICAL - Line Length Limit: do not merge adjacent entries if the resulting single output line would exceed %d characters (counting %s). This rule takes priority over merging: if a merge would exceed the limit, keep the entries separate with their original time spans.\n\n", rule, o.MaxLineChars, scope)
		rule++
	}

	fmt.Fprintf(&b, "%d. Renumber Sequentially: renumber all output entries starting from 1.\n\n", rule)
	rule++
	fmt.Fprintf(&b, "%d. Preserve Timing Structure: never invent new timestamps; every output time must come from the original entries.\n\n", rule)
	rule++
	fmt.Fprintf(&b, "%d. Never split one corrected transcript line across multiple output entries.\n\n", rule)
	rule++

	if o.RequireMapping {
		fmt.Fprintf(&b, "%d. Two-Stage Output: first emit a mapping table section starting with the header line \"# MAPPING\", one line per transcript line in the form \"line N -> entries A-B\". After the table emit one blank line, then the final subtitle file.\n\n", rule)
		rule++
		fmt.Fprintf(&b, "%d. If the corrected transcript has more lines than the original file has entries, do not guess: output a single line starting with \"ERROR:\" describing the mismatch instead of a subtitle file.\n\n", rule)
		rule++
	}

	b.WriteString("ORIGINAL SRT FILE:\n")
	b.WriteString(originalSRT)
	b.WriteString("\n\nCORRECTED TRANSCRIPT:\n")
	b.WriteString(correctedTranscript)
	b.WriteString("\n\nOUTPUT REQUIREMENTS:\n")
	b.WriteString("- Valid SRT format with sequential numbering starting from 1\n")
	b.WriteString("- Original timestamp structure preserved, merging only when appropriate\n")
	b.WriteString("- Plain text only: no markdown formatting, no code blocks, no explanations\n")
	if o.RequireMapping {
		b.WriteString("- The mapping table comes first, separated from the subtitle body by one blank line\n")
	}
	b.WriteString("\nGenerate the aligned output now:")

	return b.String()
}

// TestPrompt returns the trivial request used for connectivity checks.
func TestPrompt() string {
	return "Please respond with 'Connection successful' if you can read this message."
}
