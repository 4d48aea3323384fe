package storymap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/compozy/storymapper/engine/core"
)

// Source yields the raw notes to group.
type Source interface {
	Notes(ctx context.Context) ([]string, error)
}

// FileSource reads one note per non-blank line. Path "-" or "" reads Reader.
type FileSource struct {
	Path   string
	Reader io.Reader
}

// Notes reads and cleans the lines, preserving order.
func (s *FileSource) Notes(_ context.Context) ([]string, error) {
	r := s.Reader
	if s.Path != "" && s.Path != "-" {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open notes file: %w", err)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		return nil, fmt.Errorf("no notes input provided")
	}
	notes := []string{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if note := core.CleanNote(scanner.Text()); note != "" {
			notes = append(notes, note)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return notes, nil
}

// StaticSource returns a fixed list of notes.
type StaticSource []string

func (s StaticSource) Notes(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
