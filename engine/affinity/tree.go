package affinity

import (
	"encoding/json"
	"fmt"
	"io"
)

// Epic is the parent node rendered for one group.
type Epic struct {
	Label   string  `json:"label"`
	Stories []Story `json:"stories"`
}

// Story is one note under an epic. Index is 1-based within the epic.
type Story struct {
	Index   int    `json:"index"`
	Note    string `json:"note"`
	Summary string `json:"summary"`
}

// StorySummary formats the numbered story title shared by every renderer and sink.
func StorySummary(label string, index int, note string) string {
	return fmt.Sprintf("%s.%d: %s", label, index, note)
}

// BuildTree converts a collection into the epic/story hierarchy.
func BuildTree(c *Collection) []Epic {
	if c == nil {
		return []Epic{}
	}
	epics := make([]Epic, 0, len(c.Groups))
	for _, g := range c.Groups {
		epic := Epic{Label: g.Label, Stories: make([]Story, 0, len(g.Notes))}
		for i, note := range g.Notes {
			epic.Stories = append(epic.Stories, Story{
				Index:   i + 1,
				Note:    note,
				Summary: StorySummary(g.Label, i+1, note),
			})
		}
		epics = append(epics, epic)
	}
	return epics
}

// RenderText writes the tree as indented plain text.
func RenderText(w io.Writer, epics []Epic) error {
	for _, epic := range epics {
		if _, err := fmt.Fprintf(w, "Epic: %s\n", epic.Label); err != nil {
			return err
		}
		for _, story := range epic.Stories {
			if _, err := fmt.Fprintf(w, "└── %s\n", story.Summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderJSON writes the tree as indented JSON.
func RenderJSON(w io.Writer, epics []Epic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(epics); err != nil {
		return fmt.Errorf("failed to encode story tree: %w", err)
	}
	return nil
}
