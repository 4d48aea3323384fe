package affinity

import "fmt"

// Group is one affinity group: a label and its notes in input order.
type Group struct {
	ID    int      `json:"id"`
	Label string   `json:"label"`
	Notes []string `json:"notes"`
}

// Collection is the result of a grouping run, ordered by ascending cluster id.
type Collection struct {
	Groups []*Group `json:"groups"`
}

// SyntheticLabel is the fallback label for cluster id.
func SyntheticLabel(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

// Len returns the number of groups.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Groups)
}

// NoteCount returns the number of notes over all groups.
func (c *Collection) NoteCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, g := range c.Groups {
		total += len(g.Notes)
	}
	return total
}

// Map returns the label -> notes view consumed at the sink boundary.
func (c *Collection) Map() map[string][]string {
	out := make(map[string][]string, c.Len())
	if c == nil {
		return out
	}
	for _, g := range c.Groups {
		notes := make([]string, len(g.Notes))
		copy(notes, g.Notes)
		out[g.Label] = notes
	}
	return out
}

// Labels returns group labels in collection order.
func (c *Collection) Labels() []string {
	out := make([]string, 0, c.Len())
	if c == nil {
		return out
	}
	for _, g := range c.Groups {
		out = append(out, g.Label)
	}
	return out
}

// newCollection partitions notes by their cluster assignment.
func newCollection(notes []string, assignment []int) *Collection {
	byID := make(map[int]*Group)
	maxID := -1
	for i, id := range assignment {
		g, ok := byID[id]
		if !ok {
			g = &Group{ID: id, Label: SyntheticLabel(id)}
			byID[id] = g
		}
		g.Notes = append(g.Notes, notes[i])
		if id > maxID {
			maxID = id
		}
	}
	c := &Collection{Groups: make([]*Group, 0, len(byID))}
	for id := 0; id <= maxID; id++ {
		if g, ok := byID[id]; ok {
			c.Groups = append(c.Groups, g)
		}
	}
	return c
}
