// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Owns view state, the session and the key list, and issues backend requests

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/session"
	"github.com/sumitbondd/api-key-manager/internal/tui/authform"
	"github.com/sumitbondd/api-key-manager/internal/tui/debuglog"
	"github.com/sumitbondd/api-key-manager/internal/tui/icons"
	"github.com/sumitbondd/api-key-manager/internal/tui/keylist"
	"github.com/sumitbondd/api-key-manager/internal/tui/styles"
)

// View is the screen currently shown
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewDashboard
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewRegister:
		return "register"
	case ViewDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// StatusKind classifies the status banner
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusSuccess
	StatusError
)

// Status is the single most recent message shown to the user
type Status struct {
	Kind StatusKind
	Text string
}

// Status banner texts
const (
	MsgGenericError   = "An error occurred. Please try again."
	MsgLoginOK        = "Login successful."
	MsgRegisterOK     = "Registration successful."
	MsgSessionExpired = "Session expired. Please log in again."
	MsgFetchFailed    = "Failed to fetch API keys."
	MsgKeyGenerated   = "New API key generated!"
	MsgGenerateFailed = "Failed to generate API key."
	MsgKeyRevoked     = "API key revoked successfully!"
	MsgRevokeFailed   = "Failed to revoke API key."
	MsgKeyCopied      = "API key copied to clipboard!"
	MsgCopyFailed     = "Failed to copy API key to clipboard."
	MsgSessionSave    = "Logged in, but the session could not be saved."
)

// Layout constants
const (
	minTerminalWidth  = 80  // Minimum frame width
	wideTerminalWidth = 110 // Width at which the actions pane is shown
	actionsPaneWidth  = 26
	panelPadding      = 4 // Total horizontal padding from panel borders (2 each side)
	dashboardTitle    = "API Keys Dashboard"
	appTitle          = "API Key Manager"
)

// API is the backend surface the App drives
type API interface {
	Login(ctx context.Context, creds client.Credentials) (*client.AuthResponse, error)
	Register(ctx context.Context, creds client.Credentials) (*client.AuthResponse, error)
	ListKeys(ctx context.Context) ([]client.APIKey, error)
	GenerateKey(ctx context.Context) (*client.GeneratedKey, error)
	RevokeKey(ctx context.Context, key string) (*client.MessageResponse, error)
}

// Result messages carry the epoch they were issued in; results from an
// earlier epoch are dropped.

type authResultMsg struct {
	epoch uint64
	kind  authform.Kind
	resp  *client.AuthResponse
	err   error
}

type keysLoadedMsg struct {
	epoch uint64
	seq   uint64
	keys  []client.APIKey
	err   error
}

type keyGeneratedMsg struct {
	epoch uint64
	key   *client.GeneratedKey
	err   error
}

type keyRevokedMsg struct {
	epoch uint64
	key   string
	err   error
}

type keyCopiedMsg struct {
	epoch uint64
	err   error
}

// Option configures an App
type Option func(*App)

// WithClipboard replaces the system clipboard writer
func WithClipboard(write func(string) error) Option {
	return func(a *App) {
		a.clipboardWrite = write
	}
}

// WithContext sets the parent of every request context
func WithContext(ctx context.Context) Option {
	return func(a *App) {
		a.parent = ctx
	}
}

// App is the root model for the TUI
type App struct {
	api            API
	store          session.Store
	clipboardWrite func(string) error

	view   View
	status Status
	creds  client.Credentials
	form   *authform.Form
	keys   *keylist.List

	// every view transition cancels ctx and bumps epoch
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	epoch  uint64

	fetchSeq   uint64
	appliedSeq uint64
	pending    int
	spinning   bool
	loaded     bool
	lastUpdate time.Time
	expiry     time.Time
	hasExpiry  bool

	spinner spinner.Model
	help    help.Model
	keyMap  keyMap

	width  int
	height int
}

// New creates the App. It starts on the dashboard when store holds a session.
func New(api API, store session.Store, opts ...Option) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	a := &App{
		api:            api,
		store:          store,
		clipboardWrite: clipboard.WriteAll,
		parent:         context.Background(),
		keys:           keylist.New(0, 0),
		spinner:        sp,
		help:           help.New(),
		keyMap:         newKeyMap(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(a.parent)

	if token, ok := store.Read(); ok {
		a.enter(ViewDashboard)
		a.expiry, a.hasExpiry = session.Expiry(token)
		if !a.hasExpiry {
			debuglog.Warn("saved session token has no readable expiry")
		}
	} else {
		a.enter(ViewLogin)
	}
	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.view == ViewDashboard {
		return a.withSpinner(a.fetchKeys())
	}
	return a.form.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := a.update(msg)
	return model, a.withSpinner(cmd)
}

func (a *App) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.keys.SetSize(a.listWidth(), a.listHeight())
		if a.form != nil {
			_, cmd := a.form.Update(msg)
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keyMap.ForceQuit) {
			a.cancel()
			return a, tea.Quit
		}
		if a.view == ViewDashboard {
			return a.updateDashboard(msg)
		}
		return a.updateAuth(msg)

	case spinner.TickMsg:
		if a.pending == 0 {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case authform.SubmittedMsg:
		return a, a.submitCredentials(msg.Kind, msg.Credentials)

	case authResultMsg:
		if !a.current(msg.epoch) {
			return a, nil
		}
		return a.handleAuthResult(msg)

	case keysLoadedMsg:
		if !a.current(msg.epoch) {
			return a, nil
		}
		return a.handleKeysLoaded(msg)

	case keyGeneratedMsg:
		if !a.current(msg.epoch) {
			return a, nil
		}
		return a.handleMutation(msg.err, MsgKeyGenerated, MsgGenerateFailed)

	case keyRevokedMsg:
		if !a.current(msg.epoch) {
			return a, nil
		}
		return a.handleMutation(msg.err, MsgKeyRevoked, MsgRevokeFailed)

	case keyCopiedMsg:
		if !a.current(msg.epoch) {
			return a, nil
		}
		if msg.err != nil {
			debuglog.Error("copy key", msg.err)
			a.setStatus(StatusError, MsgCopyFailed)
		} else {
			a.setStatus(StatusSuccess, MsgKeyCopied)
		}
		return a, nil

	default:
		// huh form internals
		if a.form != nil {
			_, cmd := a.form.Update(msg)
			return a, cmd
		}
	}

	return a, nil
}

func (a *App) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keyMap.Toggle) {
		next := ViewRegister
		if a.view == ViewRegister {
			next = ViewLogin
		}
		return a, a.transition(next)
	}
	if a.form == nil {
		return a, nil
	}
	_, cmd := a.form.Update(msg)
	return a, cmd
}

func (a *App) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keyMap.Quit):
		a.cancel()
		return a, tea.Quit
	case key.Matches(msg, a.keyMap.Up):
		a.keys.MoveUp()
	case key.Matches(msg, a.keyMap.Down):
		a.keys.MoveDown()
	case key.Matches(msg, a.keyMap.Refresh):
		return a, a.fetchKeys()
	case key.Matches(msg, a.keyMap.Generate):
		return a, a.generateKey()
	case key.Matches(msg, a.keyMap.Revoke):
		if k, ok := a.keys.Selected(); ok {
			return a, a.revokeKey(k.Key)
		}
	case key.Matches(msg, a.keyMap.Copy):
		if k, ok := a.keys.Selected(); ok {
			return a, a.copyKey(k.Key)
		}
	case key.Matches(msg, a.keyMap.Logout):
		return a, a.logout()
	case key.Matches(msg, a.keyMap.Help):
		a.help.ShowAll = !a.help.ShowAll
	}
	return a, nil
}

// current reports whether a result belongs to the active epoch and, if so,
// marks its request finished
func (a *App) current(epoch uint64) bool {
	if epoch != a.epoch {
		debuglog.Log("dropping result from epoch %d (now %d)", epoch, a.epoch)
		return false
	}
	if a.pending > 0 {
		a.pending--
	}
	return true
}

func (a *App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		debuglog.Error(msg.kind.String(), msg.err)
		if text, ok := client.BackendMessage(msg.err); ok {
			a.setStatus(StatusError, text)
		} else {
			a.setStatus(StatusError, MsgGenericError)
		}
		return a, nil
	}

	text := msg.resp.Message
	if text == "" {
		text = MsgLoginOK
		if msg.kind == authform.KindRegister {
			text = MsgRegisterOK
		}
	}
	a.setStatus(StatusSuccess, text)

	if msg.kind != authform.KindLogin || msg.resp.Token == "" {
		return a, nil
	}

	if err := a.store.Write(msg.resp.Token); err != nil {
		debuglog.Error("save session", err)
		a.setStatus(StatusError, MsgSessionSave)
	}
	a.expiry, a.hasExpiry = session.Expiry(msg.resp.Token)
	a.creds.Password = ""

	cmd := a.transition(ViewDashboard)
	return a, tea.Batch(cmd, a.fetchKeys())
}

func (a *App) handleKeysLoaded(msg keysLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.seq <= a.appliedSeq {
		debuglog.Log("dropping fetch %d, already applied %d", msg.seq, a.appliedSeq)
		return a, nil
	}
	a.appliedSeq = msg.seq

	if msg.err != nil {
		if ExpireOnUnauthorized(msg.err, a.store) {
			return a, a.sessionExpired()
		}
		debuglog.Error("fetch keys", msg.err)
		a.setStatus(StatusError, MsgFetchFailed)
		return a, nil
	}

	a.keys.SetKeys(msg.keys)
	a.loaded = true
	a.lastUpdate = time.Now()
	return a, nil
}

// handleMutation applies the outcome of generate or revoke. The list is only
// ever replaced by the fetch that follows.
func (a *App) handleMutation(err error, okText, failText string) (tea.Model, tea.Cmd) {
	if err != nil {
		if ExpireOnUnauthorized(err, a.store) {
			return a, a.sessionExpired()
		}
		debuglog.Error("key action", err)
		if text, ok := client.BackendMessage(err); ok {
			a.setStatus(StatusError, text)
		} else {
			a.setStatus(StatusError, failText)
		}
		return a, nil
	}

	a.setStatus(StatusSuccess, okText)
	return a, a.fetchKeys()
}

// ExpireOnUnauthorized clears the session when err is a 401 and reports
// whether it did
func ExpireOnUnauthorized(err error, store session.Store) bool {
	if !client.IsUnauthorized(err) {
		return false
	}
	if cerr := store.Clear(); cerr != nil {
		debuglog.Error("clear session", cerr)
	}
	return true
}

func (a *App) sessionExpired() tea.Cmd {
	a.resetSession()
	a.setStatus(StatusError, MsgSessionExpired)
	return a.transition(ViewLogin)
}

func (a *App) logout() tea.Cmd {
	if err := a.store.Clear(); err != nil {
		debuglog.Error("clear session", err)
	}
	a.resetSession()
	a.status = Status{}
	return a.transition(ViewLogin)
}

// resetSession drops everything tied to the logged-in user
func (a *App) resetSession() {
	a.keys.Clear()
	a.creds = client.Credentials{}
	a.expiry, a.hasExpiry = time.Time{}, false
	a.lastUpdate = time.Time{}
}

// transition cancels in-flight requests, starts a new epoch and shows v
func (a *App) transition(v View) tea.Cmd {
	debuglog.Log("view %s -> %s", a.view, v)
	a.cancel()
	a.epoch++
	a.ctx, a.cancel = context.WithCancel(a.parent)
	a.pending = 0
	a.appliedSeq = a.fetchSeq

	a.enter(v)
	if a.form == nil {
		return nil
	}
	if a.width > 0 {
		a.form.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return a.form.Init()
}

func (a *App) enter(v View) {
	a.view = v
	a.loaded = false
	a.help.ShowAll = false
	switch v {
	case ViewLogin:
		a.form = authform.New(authform.KindLogin, &a.creds)
	case ViewRegister:
		a.form = authform.New(authform.KindRegister, &a.creds)
	default:
		a.form = nil
	}
}

func (a *App) setStatus(kind StatusKind, text string) {
	a.status = Status{Kind: kind, Text: text}
}

// withSpinner starts the spinner when requests are in flight
func (a *App) withSpinner(cmd tea.Cmd) tea.Cmd {
	if a.pending == 0 || a.spinning {
		return cmd
	}
	a.spinning = true
	return tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) submitCredentials(kind authform.Kind, creds client.Credentials) tea.Cmd {
	ctx, epoch := a.ctx, a.epoch
	a.pending++
	return func() tea.Msg {
		var resp *client.AuthResponse
		var err error
		if kind == authform.KindRegister {
			resp, err = a.api.Register(ctx, creds)
		} else {
			resp, err = a.api.Login(ctx, creds)
		}
		return authResultMsg{epoch: epoch, kind: kind, resp: resp, err: err}
	}
}

func (a *App) fetchKeys() tea.Cmd {
	ctx, epoch := a.ctx, a.epoch
	a.fetchSeq++
	seq := a.fetchSeq
	a.pending++
	return func() tea.Msg {
		keys, err := a.api.ListKeys(ctx)
		return keysLoadedMsg{epoch: epoch, seq: seq, keys: keys, err: err}
	}
}

func (a *App) generateKey() tea.Cmd {
	ctx, epoch := a.ctx, a.epoch
	a.pending++
	return func() tea.Msg {
		generated, err := a.api.GenerateKey(ctx)
		return keyGeneratedMsg{epoch: epoch, key: generated, err: err}
	}
}

func (a *App) revokeKey(k string) tea.Cmd {
	ctx, epoch := a.ctx, a.epoch
	a.pending++
	return func() tea.Msg {
		_, err := a.api.RevokeKey(ctx, k)
		return keyRevokedMsg{epoch: epoch, key: k, err: err}
	}
}

func (a *App) copyKey(k string) tea.Cmd {
	epoch := a.epoch
	write := a.clipboardWrite
	a.pending++
	return func() tea.Msg {
		return keyCopiedMsg{epoch: epoch, err: write(k)}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var content string
	switch a.view {
	case ViewDashboard:
		content = a.viewDashboard()
	default:
		content = a.viewAuth()
	}

	if banner := a.renderStatus(); banner != "" {
		content = banner + "\n" + content
	}
	return a.wrapWithFrame(content)
}

func (a *App) viewAuth() string {
	if a.form == nil {
		return ""
	}
	return styles.ActivePanel.Width(a.frameWidth() - 2).Render(a.form.View())
}

// viewDashboard renders the key list with an actions pane on wide terminals
func (a *App) viewDashboard() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(icons.Key.String() + " " + dashboardTitle))
	sb.WriteString("\n")
	if !a.loaded && a.pending > 0 {
		sb.WriteString(a.spinner.View() + " Loading API keys...")
	} else {
		sb.WriteString(a.keys.View())
	}
	if a.help.ShowAll {
		sb.WriteString("\n")
		sb.WriteString(styles.Help.Render(a.help.FullHelpView(viewKeys{km: a.keyMap, view: a.view}.FullHelp())))
	}

	if !a.wide() {
		return styles.ActivePanel.Width(a.frameWidth() - 2).Render(sb.String())
	}

	leftPane := styles.ActivePanel.Width(a.listWidth() + panelPadding).Render(sb.String())

	rightContent := styles.Title.Render("Actions") + "\n"
	rightContent += icons.Generate.String() + " Generate key\n"
	rightContent += icons.Copy.String() + " Copy selected\n"
	rightContent += icons.Revoke.String() + " Revoke selected\n"
	rightContent += icons.Refresh.String() + " Refresh list\n"
	rightContent += icons.Logout.String() + " Logout\n"
	rightContent += icons.Quit.String() + " Quit"
	rightPane := styles.Panel.Width(actionsPaneWidth).Render(rightContent)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}

func (a *App) renderStatus() string {
	switch a.status.Kind {
	case StatusSuccess:
		return " " + styles.StatusOK.Render(icons.CheckOK.String()+" "+a.status.Text)
	case StatusError:
		return " " + styles.StatusCritical.Render(icons.Critical.String()+" "+a.status.Text)
	default:
		return ""
	}
}

func (a *App) wide() bool {
	return a.width >= wideTerminalWidth
}

// frameWidth is one less than the terminal so the frame never wraps
func (a *App) frameWidth() int {
	w := a.width - 1
	if w < minTerminalWidth {
		w = minTerminalWidth
	}
	return w
}

// listWidth is the text width available to the key list
func (a *App) listWidth() int {
	if !a.wide() {
		return a.frameWidth() - 2 - panelPadding
	}
	// two bordered panes side by side
	return a.frameWidth() - actionsPaneWidth - 4 - panelPadding
}

// listHeight is the height available to key rows
func (a *App) listHeight() int {
	// Header, footer, status line, panel border+padding and the title
	// at least one line, so the list never falls back to unbounded
	return max(a.height-10, 1)
}

// renderHeader creates the header bar with app branding and session context
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render(appTitle))

	rightText := ""
	if a.view == ViewDashboard && a.hasExpiry {
		label := "Session expires " + humanize.Time(a.expiry)
		if !a.expiry.After(time.Now()) {
			label = "Session expired"
		}
		rightText = " " + contextStyle.Render(icons.Clock.String()+" "+label) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	fill := borderStyle.Render(strings.Repeat("─", fillWidth))
	return borderStyle.Render("╭─") + leftText + fill + rightText + borderStyle.Render("─╮")
}

// renderFooter creates the footer with keyboard shortcuts and request state
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	rightText := ""
	switch {
	case a.pending > 0:
		rightText = " " + a.spinner.View() + statusStyle.Render(" Working") + " "
	case a.view == ViewDashboard && !a.lastUpdate.IsZero():
		rightText = " " + statusStyle.Render("Updated "+humanize.Time(a.lastUpdate)) + " "
	}

	// help is truncated to whatever the corners and status leave
	h := a.help
	h.Width = width - 6 - lipgloss.Width(rightText)
	leftText := " " + h.ShortHelpView(viewKeys{km: a.keyMap, view: a.view}.ShortHelp()) + " "

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		fillWidth = 0
	}

	fill := borderStyle.Render(strings.Repeat("─", fillWidth))
	return borderStyle.Render("╰─") + leftText + fill + rightText + borderStyle.Render("─╯")
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI and blocks until the user quits
func Run(api API, store session.Store, opts ...Option) error {
	app := New(api, store, opts...)
	defer app.cancel()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
