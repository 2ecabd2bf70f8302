package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docwise-client/internal/gateway"
)

func (r *runner) promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage analysis prompts",
	}
	cmd.AddCommand(r.promptsListCmd(), r.promptsCreateCmd(), r.promptsUpdateCmd(), r.promptsDeleteCmd())
	return cmd
}

func (r *runner) promptsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			list, err := r.app.Prompts.Refresh(cmd.Context())
			if err != nil {
				return userError(err, "Failed to load prompts")
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No prompts yet.")
				return nil
			}
			for _, p := range list {
				printPrompt(out, p)
			}
			return nil
		},
	}
}

func (r *runner) promptsCreateCmd() *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			p, err := r.app.Prompts.Create(cmd.Context(), title, content)
			if err != nil {
				return userError(err, "Failed to create prompt")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created prompt %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Prompt title")
	cmd.Flags().StringVar(&content, "content", "", "Prompt text")
	return cmd
}

func (r *runner) promptsUpdateCmd() *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a prompt's title or text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			var in gateway.PromptUpdate
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("content") {
				in.Content = &content
			}
			p, err := r.app.Prompts.Update(cmd.Context(), args[0], in)
			if err != nil {
				return userError(err, "Failed to update prompt")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New prompt text")
	return cmd
}

func (r *runner) promptsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := r.app.Prompts.Delete(cmd.Context(), args[0]); err != nil {
				return userError(err, "Failed to delete prompt")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %s\n", args[0])
			return nil
		},
	}
}
