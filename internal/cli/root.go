// Package cli implements the roadassist command line client.  It shares the
// persisted session with the console server when both use the same store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/roadassist-console/internal/app"
	"github.com/iliyamo/roadassist-console/internal/config"
	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/service"
)

// OpenOptions are passed from the command line to an Opener.
type OpenOptions struct {
	Navigator service.Navigator
	APIURL    string // overrides the configured API root when set
}

// Opener builds the session stack for one command.
type Opener func(ctx context.Context, o OpenOptions) (*app.App, error)

// Env is what the commands read from and write to.
type Env struct {
	Open         Opener
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	ReadPassword func() (string, error)
}

// DefaultEnv opens the stack from the environment configuration and uses
// the process's standard streams.
func DefaultEnv() Env {
	return Env{
		Open: func(ctx context.Context, o OpenOptions) (*app.App, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if o.APIURL != "" {
				cfg.APIBaseURL = strings.TrimRight(o.APIURL, "/")
			}
			return app.New(ctx, cfg, o.Navigator)
		},
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		ReadPassword: promptPassword,
	}
}

type root struct {
	env        Env
	apiURL     string
	jsonOutput bool
}

// NewRootCmd returns the roadassist command tree.
func NewRootCmd(env Env) *cobra.Command {
	r := &root{env: env}
	cmd := &cobra.Command{
		Use:   "roadassist",
		Short: "Command line client for the RoadAssist console",
		Long: `roadassist logs in to the RoadAssist API, keeps the session on disk and
calls the operator endpoints with automatic token refresh.

Environment Variables:
  API_BASE_URL   RoadAssist API root (default: http://localhost:8080/api)
  STORE_BACKEND  file, redis, mysql or memory (default: file)
  STORE_DIR      session directory of the file backend`,
		SilenceUsage: true,
	}
	cmd.SetIn(env.In)
	cmd.SetOut(env.Out)
	cmd.SetErr(env.Err)
	cmd.PersistentFlags().StringVar(&r.apiURL, "api-url", "", "RoadAssist API root (overrides API_BASE_URL)")
	cmd.PersistentFlags().BoolVar(&r.jsonOutput, "json", false, "Output JSON instead of human-readable text")

	cmd.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.openCmd(),
		r.missionsCmd(),
		r.providersCmd(),
	)
	return cmd
}

// withApp opens the stack, runs fn and closes it again.
func (r *root) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := r.env.Open(ctx, OpenOptions{Navigator: navigator{w: r.env.Err}, APIURL: r.apiURL})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (r *root) printJSON(v interface{}) error {
	enc := json.NewEncoder(r.env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// navigator reports navigation requests from the session layer, which on
// the command line means the user has to log in again or lacks access.
type navigator struct{ w io.Writer }

func (n navigator) Navigate(dest string) {
	switch dest {
	case model.LoginPath:
		fmt.Fprintln(n.w, "Session ended. Run `roadassist login` to sign in again.")
	case model.AccessDeniedPath:
		fmt.Fprintln(n.w, "Access denied for the current role.")
	default:
		fmt.Fprintf(n.w, "Navigate to %s\n", dest)
	}
}
