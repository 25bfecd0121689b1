package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// SuccessColor is used for completed runs.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor is used for non-fatal problems such as non-convergence.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor is used for fatal errors.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor is used for labels.
	SubtleColor = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ErrorColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(22)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// SummaryLine is one label/value row of a summary box.
type SummaryLine struct {
	Label string
	Value string
}

// FormatWarning renders a warning message.
func FormatWarning(message string) string {
	return WarningStyle.Render("⚠ " + message)
}

// FormatError renders an error for the terminal. A UserError shows its
// message first, followed by the underlying cause.
func FormatError(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) && userErr.Err != nil {
		return ErrorStyle.Render("✗ "+userErr.UserMessage) + "\n  " + userErr.Err.Error()
	}
	return ErrorStyle.Render("✗ " + err.Error())
}

// FormatSummary renders a titled box of label/value rows.
func FormatSummary(title string, lines []SummaryLine) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	for _, l := range lines {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s", LabelStyle.Render(l.Label), l.Value))
	}
	return BoxStyle.Render(b.String())
}
