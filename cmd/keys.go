// ABOUTME: API key commands: list, generate, revoke and copy
// ABOUTME: Non-interactive counterparts of the dashboard actions

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/tui"
	"github.com/sumitbondd/api-key-manager/internal/tui/keylist"
	"github.com/sumitbondd/api-key-manager/internal/tui/styles"
)

// writeClipboard is replaced in tests
var writeClipboard = clipboard.WriteAll

// now is replaced in tests
var now = time.Now

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `List, generate, revoke and copy API keys for the logged-in user.

Exit codes:
  0 - Success
  1 - Rejected by the backend, or no matching key
  2 - Error (connectivity, configuration, clipboard)`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active API keys",
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int { return runKeysList(ctx, os.Stdout) })
	},
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key",
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int { return runKeysGenerate(ctx, os.Stdout) })
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int { return runKeysRevoke(ctx, os.Stdout, args[0]) })
	},
}

var keysCopyCmd = &cobra.Command{
	Use:   "copy <key-or-prefix>",
	Short: "Copy an API key to the clipboard",
	Long: `Copies an active API key to the system clipboard. The argument may be the
full key or any prefix that matches exactly one key.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int { return runKeysCopy(ctx, os.Stdout, args[0]) })
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd, keysGenerateCmd, keysRevokeCmd, keysCopyCmd)
	rootCmd.AddCommand(keysCmd)
}

func runWithSignals(run func(ctx context.Context) int) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if code := run(ctx); code != 0 {
		os.Exit(code)
	}
}

// runKeysList prints the active keys and returns exit code
func runKeysList(ctx context.Context, w io.Writer) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	keys, err := env.client.ListKeys(ctx)
	if err != nil {
		return reportError(w, err, env.store)
	}

	if IsJSONOutput() {
		return printJSON(w, client.KeyList{APIKeys: keys})
	}

	if len(keys) == 0 {
		fmt.Fprintln(w, keylist.EmptyText)
		return exitOK
	}
	fmt.Fprintln(w, renderKeyTable(keys, now()))
	return exitOK
}

func renderKeyTable(keys []client.APIKey, at time.Time) string {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		created, age := "unknown", "-"
		if !k.CreatedAt.IsZero() {
			created = k.CreatedAt.Local().Format("2006-01-02 15:04")
			age = humanize.RelTime(k.CreatedAt.Time, at, "ago", "from now")
		}
		rows = append(rows, []string{k.Key, created, age})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Muted)).
		Headers("KEY", "CREATED", "AGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

// runKeysGenerate creates a key and returns exit code
func runKeysGenerate(ctx context.Context, w io.Writer) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	generated, err := env.client.GenerateKey(ctx)
	if err != nil {
		return reportError(w, err, env.store)
	}

	if IsJSONOutput() {
		return printJSON(w, generated)
	}
	fmt.Fprintln(w, tui.MsgKeyGenerated)
	fmt.Fprintln(w, generated.APIKey)
	return exitOK
}

// runKeysRevoke revokes key and returns exit code
func runKeysRevoke(ctx context.Context, w io.Writer, key string) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	resp, err := env.client.RevokeKey(ctx, key)
	if err != nil {
		return reportError(w, err, env.store)
	}

	if resp.Message == "" {
		resp.Message = tui.MsgKeyRevoked
	}
	if IsJSONOutput() {
		return printJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Message)
	return exitOK
}

// runKeysCopy copies the key matching arg to the clipboard and returns exit code
func runKeysCopy(ctx context.Context, w io.Writer, arg string) int {
	env, err := setup(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer env.close()

	keys, err := env.client.ListKeys(ctx)
	if err != nil {
		return reportError(w, err, env.store)
	}

	key, err := matchKey(keys, arg)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitRejected
	}

	if err := writeClipboard(key); err != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", tui.MsgCopyFailed, err)
		return exitError
	}
	fmt.Fprintln(w, tui.MsgKeyCopied)
	return exitOK
}

// matchKey finds the key equal to arg, or the only key starting with it
func matchKey(keys []client.APIKey, arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("no key given")
	}

	var matches []string
	for _, k := range keys {
		if k.Key == arg {
			return k.Key, nil
		}
		if strings.HasPrefix(k.Key, arg) {
			matches = append(matches, k.Key)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no active API key matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d keys; give more characters", arg, len(matches))
	}
}
