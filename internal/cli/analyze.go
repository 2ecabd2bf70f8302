package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docwise-client/internal/analysis"
	"docwise-client/internal/prompts"
)

type analyzeFlags struct {
	file   string
	text   string
	prompt string
	model  string
	copy   bool
}

func (r *runner) analyzeCmd() *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a PDF or a block of text with a prompt",
		Long: `Analyze a PDF or a block of text with one of your prompts.

Exactly one of --file or --text is required. Use --text - to read the text
from stdin.

Examples:
  docwise analyze --file report.pdf --prompt <id>
  docwise analyze --text "Quarterly summary..." --prompt <id> --model claude-4
  cat notes.txt | docwise analyze --text - --prompt <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runAnalyze(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "PDF file to upload")
	cmd.Flags().StringVar(&f.text, "text", "", "Text to analyze, or - for stdin")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Prompt id")
	cmd.Flags().StringVar(&f.model, "model", "", "AI model: gpt-5 or claude-4")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "Copy the result to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	cmd.MarkFlagsOneRequired("file", "text")
	return cmd
}

func (r *runner) runAnalyze(cmd *cobra.Command, f analyzeFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if _, err := r.requireSession(ctx); err != nil {
		return err
	}

	if f.prompt != "" {
		if _, err := r.app.Prompts.Get(ctx, f.prompt); err != nil {
			if errors.Is(err, prompts.ErrNotFound) {
				return fmt.Errorf("prompt %s not found; run 'docwise prompts list'", f.prompt)
			}
			return userError(err, "Failed to load prompts")
		}
	}

	orch := r.app.Analysis
	orch.Open()
	if f.file != "" {
		if err := orch.SetMode(analysis.ModeUpload); err != nil {
			return err
		}
		file, err := analysis.FileFromPath(f.file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.file, err)
		}
		if err := orch.SelectFile(file); err != nil {
			return err
		}
		summary := humanize.Bytes(uint64(file.Size))
		if file.Pages > 0 {
			summary += fmt.Sprintf(", %d pages", file.Pages)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s (%s)...\n", file.Name, summary)
	} else {
		if err := orch.SetMode(analysis.ModeText); err != nil {
			return err
		}
		text := f.text
		if text == "-" {
			body, err := readAll(r.opts.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = body
		}
		if err := orch.SetTextBody(text); err != nil {
			return err
		}
	}
	if err := orch.SelectPrompt(f.prompt); err != nil {
		return err
	}
	if err := orch.SelectModel(f.model); err != nil {
		return err
	}

	result, err := orch.Submit(ctx)
	if err != nil {
		var vErr *analysis.ValidationError
		if errors.As(err, &vErr) {
			return vErr
		}
		if notice := orch.Current().Notice; notice != "" {
			return errors.New(notice)
		}
		return err
	}

	fmt.Fprintf(out, "Analysis %s (%s, %s)\n\n", result.ID, result.DocumentName, result.AIModel)
	fmt.Fprintln(out, strings.TrimSpace(result.Response))
	if f.copy {
		orch.CopyResult(result.Response)
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
	}
	return nil
}
