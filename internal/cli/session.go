package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iliyamo/roadassist-console/internal/app"
	"github.com/iliyamo/roadassist-console/internal/middleware"
	"github.com/iliyamo/roadassist-console/internal/model"
)

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in, run `roadassist login`")

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-stdin)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func (r *root) loginCmd() *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(r.env.In)
			if username == "" {
				fmt.Fprint(r.env.Err, "Username: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading username: %w", err)
				}
				username = strings.TrimSpace(line)
			}

			var password string
			if passwordStdin {
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				p, err := r.env.ReadPassword()
				if err != nil {
					return err
				}
				password = p
			}

			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				user, err := a.Auth.Login(ctx, username, password)
				if err != nil {
					return err
				}
				if r.jsonOutput {
					return r.printJSON(map[string]interface{}{"user": user, "home": model.HomeFor(user.Role)})
				}
				fmt.Fprintf(r.env.Out, "Logged in as %s (%s)\nHome: %s\n", user.Username, user.Role, model.HomeFor(user.Role))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func (r *root) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Auth.Logout(ctx)
				fmt.Fprintln(r.env.Out, "Logged out")
				return nil
			})
		},
	}
}

func (r *root) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(_ context.Context, a *app.App) error {
				user, ok := a.Session.CurrentUser()
				if !ok {
					return ErrNotLoggedIn
				}
				if r.jsonOutput {
					return r.printJSON(user)
				}
				fmt.Fprintf(r.env.Out, "%s (%s)\nEmail: %s\nRole:  %s\n", user.FullName, user.Username, user.Email, user.Role)
				return nil
			})
		},
	}
}

func (r *root) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <view>",
		Short: "Check where navigating to a console view leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			path := target
			if i := strings.IndexByte(path, '?'); i >= 0 {
				path = path[:i]
			}
			roles, ok := model.ViewRoles(path)
			if !ok {
				return fmt.Errorf("unknown view %q", path)
			}

			return r.withApp(cmd, func(_ context.Context, a *app.App) error {
				d := a.Guard.Check(target, roles...)
				if r.jsonOutput {
					if err := r.printJSON(map[string]string{"decision": d.Kind.String(), "location": d.Location()}); err != nil {
						return err
					}
					return d.Err()
				}
				if d.Kind == middleware.Proceed {
					fmt.Fprintf(r.env.Out, "%s: allowed\n", target)
					return nil
				}
				fmt.Fprintf(r.env.Out, "%s: %s -> %s\n", target, d.Kind, d.Location())
				return d.Err()
			})
		},
	}
}
