// ABOUTME: Login, register and logout commands
// ABOUTME: Authenticates against the backend and manages the saved session token

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/session"
	"github.com/sumitbondd/api-key-manager/internal/tui"
	"github.com/sumitbondd/api-key-manager/internal/tui/authform"
)

var (
	username string
	password string
)

// authOutput is the JSON shape for login and register
type authOutput struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Session  string `json:"session_file,omitempty"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	Long: `Logs in with a username and password and saves the returned token.

Missing credentials are prompted for when stdin is a terminal.

Exit codes:
  0 - Logged in
  1 - Rejected by the backend (invalid credentials)
  2 - Error (connectivity, configuration, session file)`,
	Run: func(cmd *cobra.Command, args []string) {
		runAuthCommand(authform.KindLogin)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Registers a new account. Registration does not log you in; run
'apikeys login' afterwards.

Exit codes:
  0 - Registered
  1 - Rejected by the backend (e.g. username taken)
  2 - Error (connectivity, configuration)`,
	Run: func(cmd *cobra.Command, args []string) {
		runAuthCommand(authform.KindRegister)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved session token",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runLogout(os.Stdout); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&username, "username", "u", "", "Username")
		c.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(logoutCmd)
}

func runAuthCommand(kind authform.Kind) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds := client.Credentials{Username: username, Password: password}
	if (creds.Username == "" || creds.Password == "") && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := authform.Prompt(kind, &creds); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
	}

	if code := runAuth(ctx, os.Stdout, kind, creds); code != 0 {
		os.Exit(code)
	}
}

// runAuth performs login or register and returns exit code
func runAuth(ctx context.Context, w io.Writer, kind authform.Kind, creds client.Credentials) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	var resp *client.AuthResponse
	if kind == authform.KindRegister {
		resp, err = env.client.Register(ctx, creds)
	} else {
		resp, err = env.client.Login(ctx, creds)
	}
	if err != nil {
		// a failed login is not a session expiry
		return reportError(w, err, nil)
	}

	out := authOutput{Action: kind.String(), Username: creds.Username, Message: resp.Message}
	if kind == authform.KindLogin {
		if out.Message == "" {
			out.Message = tui.MsgLoginOK
		}
		if resp.Token == "" {
			// nothing to persist; any saved session stays as it was
			fmt.Fprintln(w, out.Message)
			fmt.Fprintln(w, "Error: the backend reply carried no session token")
			return exitRejected
		}
		if err := env.store.Write(resp.Token); err != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", tui.MsgSessionSave, err)
			return exitError
		}
		out.Session = env.store.Path()
	} else if out.Message == "" {
		out.Message = tui.MsgRegisterOK
	}

	if IsJSONOutput() {
		return printJSON(w, out)
	}

	fmt.Fprintln(w, out.Message)
	if kind == authform.KindLogin {
		if exp, ok := session.Expiry(resp.Token); ok {
			fmt.Fprintf(w, "Session expires %s.\n", exp.Local().Format("2006-01-02 15:04"))
		}
	}
	return exitOK
}

// runLogout clears the saved session and returns exit code
func runLogout(w io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if err := session.NewFileStore(cfg.SessionFile).Clear(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	fmt.Fprintln(w, "Logged out.")
	return exitOK
}

func printJSON(w io.Writer, v interface{}) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	fmt.Fprintln(w, string(data))
	return exitOK
}
