package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/compozy/storymapper/engine/storymap"
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("204"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func validateOutputFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// printPushSummary reports what a remote sink created. It also prints partial
// results so the user knows what to clean up after a failed push.
func printPushSummary(w io.Writer, report *storymap.Report, format string) error {
	if format == OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if report.Result == nil {
		_, err := fmt.Fprintln(w, mutedStyle.Render("Nothing was pushed."))
		return err
	}
	header := fmt.Sprintf(
		"Pushed %d epics and %d stories to %s",
		len(report.Result.Epics), report.Result.StoryCount(), report.Result.Target,
	)
	if _, err := fmt.Fprintln(w, successStyle.Render(header)); err != nil {
		return err
	}
	for _, epic := range report.Result.Epics {
		line := fmt.Sprintf("%s %s %s",
			keyStyle.Render(epic.Key), epic.Label, mutedStyle.Render(fmt.Sprintf("(%d stories)", len(epic.Stories))))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
