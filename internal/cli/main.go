package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"subtitle-matcher/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "subtitle-matcher <input.srt>",
		Short:        "Re-time a corrected transcript onto an SRT file's timestamps",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("transcript", "", "Path to the corrected transcript text file (required)")
	root.Flags().String("out", "", "Output SRT path (default: <input>_matched.srt)")
	root.Flags().String("model", config.DefaultModel, "Gemini model ID")

	// Hidden tuning flags (internal)
	root.Flags().Int("max-line", config.DefaultMaxLineChars, "Max characters per subtitle line, 0 disables")
	root.Flags().Bool("count-latin", false, "Count Latin letters toward the line cap")
	root.Flags().Bool("no-mapping", false, "Skip the mapping section in the model response")
	_ = root.Flags().MarkHidden("max-line")
	_ = root.Flags().MarkHidden("count-latin")
	_ = root.Flags().MarkHidden("no-mapping")

	_ = root.MarkFlagRequired("transcript")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
