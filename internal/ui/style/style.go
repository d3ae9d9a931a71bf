// Package style holds the brand palette and the icons used in console output.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
)

// StatusIcon returns the icon printed next to a finished unit of work.
func StatusIcon(ok, tolerated bool) string {
	switch {
	case ok:
		return Check
	case tolerated:
		return Warning
	default:
		return Cross
	}
}

// StatusColor returns the palette color matching StatusIcon.
func StatusColor(ok, tolerated bool) lipgloss.Color {
	switch {
	case ok:
		return Green
	case tolerated:
		return Yellow
	default:
		return Red
	}
}
