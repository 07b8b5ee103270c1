// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

// EnvNerdFonts forces Nerd Font glyphs on ("1"/"true") or off
const EnvNerdFonts = "APIKEYS_NERD_FONTS"

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv(EnvNerdFonts); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	nerdFontTerminals := []string{
		"iTerm.app",
		"alacritty",
		"WezTerm",
		"kitty",
		"ghostty",
	}

	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	if os.Getenv("NERD_FONTS") == "1" {
		return true
	}

	return false
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Status indicators
	CheckOK  = Icon{"\uf058", "\u2713"} // nf-fa-check_circle
	Critical = Icon{"\uf057", "\u2717"} // nf-fa-times_circle

	// Identity
	User = Icon{"\U000f0004", "\u263a"} // nf-md-account
	Lock = Icon{"\U000f033e", "\u25c8"} // nf-md-lock
	Key  = Icon{"\U000f0306", "\u26bf"} // nf-md-key

	// Actions
	Generate = Icon{"\U000f0415", "+"}      // nf-md-plus
	Copy     = Icon{"\U000f018f", "\u2750"} // nf-md-content_copy
	Revoke   = Icon{"\U000f01b4", "\u2718"} // nf-md-delete
	Refresh  = Icon{"\U000f0453", "\u21bb"} // nf-md-refresh
	Logout   = Icon{"\U000f0343", "\u21e6"} // nf-md-logout
	Quit     = Icon{"\U000f05fc", "\u00d7"} // nf-md-exit_to_app

	// Application
	App   = Icon{"\U000f0306", "\u25c8"} // nf-md-key
	Clock = Icon{"\U000f0954", "\u25f7"} // nf-md-clock_outline
)
