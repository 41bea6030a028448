package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"subtitle-matcher/internal/align"
	"subtitle-matcher/internal/config"
	"subtitle-matcher/internal/gemini"
	"subtitle-matcher/internal/prompt"
	"subtitle-matcher/internal/subtitle"
)

func run(cmd *cobra.Command, input string) error {
	transcriptPath, _ := cmd.Flags().GetString("transcript")
	outPath, _ := cmd.Flags().GetString("out")
	model, _ := cmd.Flags().GetString("model")
	maxLine, _ := cmd.Flags().GetInt("max-line")
	countLatin, _ := cmd.Flags().GetBool("count-latin")
	noMapping, _ := cmd.Flags().GetBool("no-mapping")

	apiKey := config.APIKeyFromEnv()
	if apiKey == "" {
		return fmt.Errorf("%s is required (set it in .env)", config.APIKeyEnvVar)
	}

	original, err := subtitle.ReadFile(input)
	if err != nil {
		return err
	}
	if !subtitle.ValidateFormat(original) {
		fmt.Fprintln(os.Stderr, "warning: input does not look like a valid SRT file")
	}

	transcript, err := subtitle.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	client, err := gemini.New(gemini.Config{APIKey: apiKey, Model: model})
	if err != nil {
		return err
	}

	aligner := align.New(client, prompt.Options{
		MaxLineChars:   maxLine,
		CountLatin:     countLatin,
		RequireMapping: !noMapping,
	}, func(message string) {
		fmt.Fprintln(os.Stderr, message)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := aligner.Align(ctx, original, transcript)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = subtitle.DefaultOutputPath(input)
	}
	if err := subtitle.WriteFile(outPath, result.Text); err != nil {
		return err
	}

	if result.Mapping != "" {
		fmt.Fprintln(os.Stderr, result.Mapping)
	}
	fmt.Fprintln(cmd.OutOrStdout(), outPath)
	return nil
}
