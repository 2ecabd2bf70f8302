package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docwise-client/internal/session"
)

func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := r.app.Session.ResolveSession(cmd.Context())
			if !snap.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			printUser(cmd.OutOrStdout(), snap.User)
			return nil
		},
	}
}

func (r *runner) loginCmd() *cobra.Command {
	var form session.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Long: `Log in with email and password.

The password is read from stdin when --password is omitted.

Examples:
  docwise login --email ada@example.com
  echo "$PW" | docwise login --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runLogin(cmd, form, false)
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (r *runner) registerCmd() *cobra.Command {
	var form session.LoginForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runLogin(cmd, form, true)
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&form.Name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (r *runner) runLogin(cmd *cobra.Command, form session.LoginForm, isRegister bool) error {
	out := cmd.OutOrStdout()
	if snap := r.app.Session.ResolveSession(cmd.Context()); snap.Authenticated() {
		fmt.Fprintf(out, "Already logged in as %s; run 'docwise logout' first\n", snap.User.Email)
		return nil
	}

	if form.Password == "" {
		pw, err := readLine(r.opts.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		form.Password = pw
	}
	if form.Password == "" {
		return errors.New("password is required")
	}

	snap, err := r.app.Session.LoginWithCredentials(cmd.Context(), form, isRegister)
	if err != nil {
		action := "Login"
		if isRegister {
			action = "Registration"
		}
		return userError(err, action+" failed")
	}
	r.app.Prompts.Invalidate()
	fmt.Fprintf(out, "Logged in as %s <%s>\n", snap.User.Name, snap.User.Email)
	return nil
}

func (r *runner) callbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback <redirect-url>",
		Short: "Finish a Google sign-in from its redirect URL",
		Long: `Finish a Google sign-in.

Paste the URL the browser landed on after signing in, for example
https://app.example.com/dashboard#session_id=abc123. The session id is
exchanged once and cannot be reused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := session.NewMemoryLocation(args[0])
			if err != nil {
				return fmt.Errorf("invalid redirect URL: %w", err)
			}
			snap, err := r.app.Session.CompleteFederatedLogin(cmd.Context(), loc)
			switch {
			case errors.Is(err, session.ErrInvalidTransition):
				return errors.New("already logged in; run 'docwise logout' first")
			case err != nil:
				return userError(err, "Sign-in failed. Please try again.")
			case !snap.Authenticated():
				return errNotLoggedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", snap.User.Name, snap.User.Email)
			return nil
		},
	}
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r.app.Session.Logout(cmd.Context())
			r.app.Prompts.Invalidate()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
