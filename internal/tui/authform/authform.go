// ABOUTME: Login and register form as a bubbletea model backed by huh
// ABOUTME: Binds to shared credentials so values carry over between the two screens

package authform

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/tui/icons"
	"github.com/sumitbondd/api-key-manager/internal/tui/styles"
)

// Kind selects which backend action the form submits to
type Kind int

const (
	KindLogin Kind = iota
	KindRegister
)

// String returns the lower-case action name
func (k Kind) String() string {
	if k == KindRegister {
		return "register"
	}
	return "login"
}

// Title returns the heading shown above the form
func (k Kind) Title() string {
	if k == KindRegister {
		return "Register"
	}
	return "Login"
}

// Other returns the kind the toggle switches to
func (k Kind) Other() Kind {
	if k == KindRegister {
		return KindLogin
	}
	return KindRegister
}

// SubmittedMsg is sent when the user completes the form
type SubmittedMsg struct {
	Kind        Kind
	Credentials client.Credentials
}

const (
	bannerText     = "apikeys"
	bannerFont     = "cybermedium"
	bannerMinWidth = 70
	formMaxWidth   = 60
)

// Form is the credentials form for one Kind
type Form struct {
	kind  Kind
	creds *client.Credentials
	form  *huh.Form
	width int
}

// New creates a form bound to creds. The caller owns creds; edits made in the
// form are written through to it.
func New(kind Kind, creds *client.Credentials) *Form {
	f := &Form{kind: kind, creds: creds}
	f.form = f.build()
	return f
}

// Kind returns the form's action
func (f *Form) Kind() Kind {
	return f.kind
}

// Reset rebuilds the inputs from the current credentials
func (f *Form) Reset() tea.Cmd {
	f.form = f.build()
	return f.form.Init()
}

func (f *Form) build() *huh.Form {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&f.creds.Username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.creds.Password),
		),
	).WithTheme(createTheme()).
		WithShowHelp(false)

	if f.width > 0 {
		form = form.WithWidth(min(f.width, formMaxWidth))
	}
	return form
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		f.width = size.Width
		f.form = f.form.WithWidth(min(f.width, formMaxWidth))
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		submitted := SubmittedMsg{Kind: f.kind, Credentials: *f.creds}
		// a fresh form keeps the screen editable while the request runs
		return f, tea.Batch(f.Reset(), func() tea.Msg { return submitted })
	}

	return f, cmd
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder

	if f.width >= bannerMinWidth {
		banner := figure.NewFigure(bannerText, bannerFont, true).String()
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render(strings.TrimRight(banner, "\n")))
		sb.WriteString("\n\n")
	}

	icon := icons.Lock
	if f.kind == KindRegister {
		icon = icons.User
	}
	sb.WriteString(styles.Title.Render(icon.String() + " " + f.kind.Title()))
	sb.WriteString("\n")
	sb.WriteString(f.form.View())
	sb.WriteString("\n")
	sb.WriteString(styles.Help.Render("ctrl+t " + f.kind.Other().Title() + " instead"))

	return sb.String()
}

// Prompt asks on the terminal for whichever of username and password is empty
func Prompt(kind Kind, creds *client.Credentials) error {
	var fields []huh.Field
	if creds.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(&creds.Username))
	}
	if creds.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password))
	}
	if len(fields) == 0 {
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(fields...).Title(kind.Title()),
	).WithTheme(createTheme())

	return form.Run()
}

// createTheme returns a huh theme using the shared palette
func createTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Group.Title = lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		MarginBottom(1)

	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(styles.Primary)
	t.Focused.Title = lipgloss.NewStyle().
		Foreground(styles.Accent).
		Bold(true)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().
		Foreground(styles.Danger).
		SetString(" *")
	t.Focused.ErrorMessage = lipgloss.NewStyle().
		Foreground(styles.Danger)

	t.Focused.TextInput.Cursor = lipgloss.NewStyle().
		Foreground(styles.Primary)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().
		Foreground(styles.Muted)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().
		Foreground(styles.Primary)
	t.Focused.TextInput.Text = lipgloss.NewStyle().
		Foreground(styles.Text)

	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(styles.Muted)

	return t
}
