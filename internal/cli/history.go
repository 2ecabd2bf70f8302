package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docwise-client/internal/gateway"
)

func (r *runner) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			list, err := r.app.Analysis.LoadHistory(cmd.Context())
			if err != nil {
				return userError(err, "Failed to load history")
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No analyses yet. Run 'docwise analyze' to create one.")
				return nil
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			for _, a := range list {
				printAnalysis(out, a)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of analyses to display")
	return cmd
}

func (r *runner) downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <analysis-id>",
		Short: "Save an analysis report as analysis_<id>.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			location, err := r.app.Analysis.DownloadResult(cmd.Context(), args[0])
			if err != nil {
				return userError(err, "Download failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", location)
			return nil
		},
	}
}

func (r *runner) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <analysis-id>",
		Short: "Copy an analysis result to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			list, err := r.app.Analysis.LoadHistory(cmd.Context())
			if err != nil {
				return userError(err, "Failed to load history")
			}
			a, ok := findAnalysis(list, args[0])
			if !ok {
				return fmt.Errorf("analysis %s not found", args[0])
			}
			r.app.Analysis.CopyResult(a.Response)
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s of analysis %s\n", humanize.Bytes(uint64(len(a.Response))), a.ID)
			return nil
		},
	}
}

func findAnalysis(list []gateway.Analysis, id string) (gateway.Analysis, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return gateway.Analysis{}, false
}

func readAll(in io.Reader) (string, error) {
	body, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
