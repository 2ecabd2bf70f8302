package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docwise-client/internal/gateway"
)

const dashboardRecent = 5

func (r *runner) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your account, prompts and recent analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := r.requireSession(cmd.Context())
			if err != nil {
				return err
			}

			var (
				promptList []gateway.Prompt
				history    []gateway.Analysis
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				list, err := r.app.Prompts.Refresh(ctx)
				if err != nil {
					return userError(err, "Failed to load prompts")
				}
				promptList = list
				return nil
			})
			g.Go(func() error {
				list, err := r.app.Analysis.LoadHistory(ctx)
				if err != nil {
					return userError(err, "Failed to load history")
				}
				history = list
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printUser(out, snap.User)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Prompts (%d)\n", len(promptList))
			for _, p := range promptList {
				fmt.Fprintf(out, "  %s  %s\n", p.ID, p.Title)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Recent analyses (%d total)\n", len(history))
			if len(history) > dashboardRecent {
				history = history[:dashboardRecent]
			}
			for _, a := range history {
				printAnalysis(out, a)
			}
			return nil
		},
	}
}
