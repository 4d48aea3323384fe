// Package connector holds the types shared by the board and tracker connectors.
package connector

// PushedEpic is one epic created on a target system.
type PushedEpic struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Stories []string `json:"stories"`
}

// PushResult lists what a sink created, in collection order.
// On failure it holds everything created before the error.
type PushResult struct {
	Target string       `json:"target"`
	Epics  []PushedEpic `json:"epics"`
}

// StoryCount returns the number of stories created.
func (r *PushResult) StoryCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, e := range r.Epics {
		total += len(e.Stories)
	}
	return total
}
