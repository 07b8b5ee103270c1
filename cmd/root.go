// ABOUTME: Root command for the apikeys CLI
// ABOUTME: Handles global flags, configuration and launching the TUI

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/config"
	"github.com/sumitbondd/api-key-manager/internal/session"
	"github.com/sumitbondd/api-key-manager/internal/tui"
	"github.com/sumitbondd/api-key-manager/internal/tui/debuglog"
)

// Exit codes
const (
	exitOK       = 0
	exitRejected = 1 // the backend refused the request, or no such key
	exitError    = 2 // transport, configuration or local failure
)

var (
	apiURL      string
	jsonOutput  bool
	configPath  string
	sessionFile string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "apikeys",
	Short: "Manage your API keys from the terminal",
	Long: `apikeys logs you in to the key-management backend and lets you generate,
copy and revoke API keys. Run without a subcommand for the interactive TUI.

Exit codes:
  0 - Success
  1 - Rejected by the backend (including an expired session)
  2 - Error (connectivity, configuration, local I/O)

Environment Variables:
  APIKEYS_API_URL       Backend API URL (default: http://localhost:5000)
  APIKEYS_SESSION_FILE  Session token file (default: <config dir>/session)
  APIKEYS_TIMEOUT       Request timeout, e.g. 30s
  APIKEYS_DEBUG         Write a debug log to <config dir>/debug.log
  APIKEYS_LOG_LEVEL     debug, info, warn or error (default: info)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTUI(ctx, os.Stderr)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <config dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "Session token file (overrides "+config.EnvSessionFile+")")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// environment is what every command needs to talk to the backend
type environment struct {
	cfg    *config.Config
	store  *session.FileStore
	client *client.Client
}

// loadConfig merges the config file, environment and flags (flags win)
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		if err := config.ValidateAPIURL(apiURL); err != nil {
			return nil, err
		}
		cfg.APIURL = apiURL
	}
	if sessionFile != "" {
		cfg.SessionFile = sessionFile
	}
	return cfg, nil
}

// setup loads configuration, starts the debug log when enabled and builds the
// client. Callers must call close.
func setup(w io.Writer) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Debug {
		if err := debuglog.Init(cfg.Dir, cfg.LogLevel); err != nil {
			fmt.Fprintf(w, "Warning: debug log disabled: %v\n", err)
		}
	}

	store := session.NewFileStore(cfg.SessionFile)
	c := client.New(cfg.APIURL, store,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(debuglog.Logger()),
	)

	debuglog.Log("using backend %s, session %s", cfg.APIURL, cfg.SessionFile)
	return &environment{cfg: cfg, store: store, client: c}, nil
}

func (e *environment) close() {
	debuglog.Close()
}

// runTUI launches the interactive interface and returns exit code
func runTUI(ctx context.Context, w io.Writer) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	if err := tui.Run(env.client, env.store, tui.WithContext(ctx)); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// reportError prints err and returns the matching exit code. A 401 also
// clears the saved session, as the TUI does.
func reportError(w io.Writer, err error, store session.Store) int {
	if msg, ok := client.BackendMessage(err); ok {
		fmt.Fprintf(w, "Error: %s\n", msg)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}

	if store != nil && tui.ExpireOnUnauthorized(err, store) {
		fmt.Fprintln(w, "Session cleared. Run 'apikeys login' to sign in again.")
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return exitRejected
	}
	return exitError
}
