package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// renderMarkdown renders model output for the terminal. Rendering failures
// fall back to the raw text; an answer is never lost to a styling problem.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func printHeading(format string, args ...any) {
	fmt.Println(headingStyle.Render(fmt.Sprintf(format, args...)))
}

func printFaint(format string, args ...any) {
	fmt.Println(faintStyle.Render(fmt.Sprintf(format, args...)))
}
