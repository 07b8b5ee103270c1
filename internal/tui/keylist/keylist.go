// ABOUTME: Key list component for the dashboard screen
// ABOUTME: Renders the user's API keys with a selection cursor and creation age

package keylist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sumitbondd/api-key-manager/internal/client"
	"github.com/sumitbondd/api-key-manager/internal/tui/icons"
	"github.com/sumitbondd/api-key-manager/internal/tui/styles"
)

// EmptyText is shown when the user has no keys
const EmptyText = "No API keys generated yet."

const (
	linesPerKey = 3
	dateLayout  = "2006-01-02 15:04"
)

// List displays API keys and tracks the selected one
type List struct {
	keys   []client.APIKey
	cursor int
	offset int
	width  int
	height int
	now    func() time.Time
}

// New creates an empty list
func New(width, height int) *List {
	return &List{
		width:  width,
		height: height,
		now:    time.Now,
	}
}

// SetKeys replaces the displayed keys. The cursor stays on the same key when
// it is still present.
func (l *List) SetKeys(keys []client.APIKey) {
	selected, hadSelection := l.Selected()

	l.keys = make([]client.APIKey, len(keys))
	copy(l.keys, keys)

	l.cursor = 0
	if hadSelection {
		for i, k := range l.keys {
			if k.Key == selected.Key {
				l.cursor = i
				break
			}
		}
	}
	l.clamp()
}

// Keys returns a copy of the displayed keys
func (l *List) Keys() []client.APIKey {
	out := make([]client.APIKey, len(l.keys))
	copy(out, l.keys)
	return out
}

// Clear drops all keys
func (l *List) Clear() {
	l.keys = nil
	l.cursor = 0
	l.offset = 0
}

// Len returns the number of keys
func (l *List) Len() int {
	return len(l.keys)
}

// Selected returns the key under the cursor
func (l *List) Selected() (client.APIKey, bool) {
	if len(l.keys) == 0 {
		return client.APIKey{}, false
	}
	return l.keys[l.cursor], true
}

// MoveUp moves the cursor up one row
func (l *List) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
	l.clamp()
}

// MoveDown moves the cursor down one row
func (l *List) MoveDown() {
	if l.cursor < len(l.keys)-1 {
		l.cursor++
	}
	l.clamp()
}

// SetSize updates the list dimensions
func (l *List) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.clamp()
}

// visibleRows is how many keys fit in the current height
func (l *List) visibleRows() int {
	if l.height <= 0 {
		return len(l.keys)
	}
	return max(1, l.height/linesPerKey)
}

// clamp keeps the cursor in range and the window around it
func (l *List) clamp() {
	if l.cursor >= len(l.keys) {
		l.cursor = max(0, len(l.keys)-1)
	}
	rows := l.visibleRows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	if l.offset > max(0, len(l.keys)-rows) {
		l.offset = max(0, len(l.keys)-rows)
	}
}

// View renders the list
func (l *List) View() string {
	if len(l.keys) == 0 {
		return styles.Subtitle.Render(EmptyText)
	}

	var sb strings.Builder
	end := min(len(l.keys), l.offset+l.visibleRows())
	for i := l.offset; i < end; i++ {
		if i > l.offset {
			sb.WriteString("\n")
		}
		sb.WriteString(l.renderRow(l.keys[i], i == l.cursor))
	}

	if l.offset > 0 || end < len(l.keys) {
		sb.WriteString("\n")
		sb.WriteString(styles.Help.Render(fmt.Sprintf("%d-%d of %d", l.offset+1, end, len(l.keys))))
	}

	if l.width <= 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().Width(l.width).Render(sb.String())
}

func (l *List) renderRow(k client.APIKey, selected bool) string {
	marker := "  "
	if selected {
		marker = styles.SelectedRow.Render("▸ ")
	}

	line := marker + icons.Key.String() + " " + styles.KeyText.Render(k.Key)
	created := "  " + lipgloss.NewStyle().Foreground(styles.Muted).Render("Created: "+l.formatCreated(k.CreatedAt.Time))
	return line + "\n" + created + "\n"
}

func (l *List) formatCreated(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format(dateLayout), humanize.RelTime(t, l.now(), "ago", "from now"))
}
