// Package jira creates one epic per affinity group and one story per note.
package jira

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/engine/connector"
	"github.com/compozy/storymapper/engine/connector/httpclient"
	"github.com/compozy/storymapper/pkg/logger"
)

const (
	TargetName         = "jira"
	defaultDescription = "Created through affinity grouping of board notes"
	epicIssueType      = "Epic"
	storyIssueType     = "Story"
)

// ErrConfig marks missing Jira settings.
var ErrConfig = errors.New("jira configuration error")

// Config holds the REST API root (".../rest/api/2" or ".../rest/api/3") and project.
type Config struct {
	BaseURL         string
	User            string
	APIToken        string
	ProjectKey      string
	Labels          []string
	EpicDescription string
	HTTP            httpclient.Config
}

// Writer pushes a story map into one Jira project.
type Writer struct {
	client      *httpclient.Client
	project     string
	labels      []string
	description string
	// adf is set for REST v3, which only accepts Atlassian Document Format text.
	adf bool
}

// NewWriter validates cfg and builds a writer.
func NewWriter(cfg Config) (*Writer, error) {
	switch {
	case strings.TrimSpace(cfg.BaseURL) == "":
		return nil, fmt.Errorf("%w: base url is required", ErrConfig)
	case strings.TrimSpace(cfg.User) == "" || strings.TrimSpace(cfg.APIToken) == "":
		return nil, fmt.Errorf("%w: user and api token are required", ErrConfig)
	case strings.TrimSpace(cfg.ProjectKey) == "":
		return nil, fmt.Errorf("%w: project key is required", ErrConfig)
	}
	httpCfg := cfg.HTTP
	httpCfg.Name = TargetName
	httpCfg.BaseURL = cfg.BaseURL
	client, err := httpclient.New(httpCfg, httpclient.WithBasicAuth(cfg.User, cfg.APIToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	description := cfg.EpicDescription
	if description == "" {
		description = defaultDescription
	}
	return &Writer{
		client:      client,
		project:     cfg.ProjectKey,
		labels:      cfg.Labels,
		description: description,
		adf:         strings.HasSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/3"),
	}, nil
}

type issueFields struct {
	Project     projectRef `json:"project"`
	Summary     string     `json:"summary"`
	Description any        `json:"description"`
	IssueType   issueType  `json:"issuetype"`
	Labels      []string   `json:"labels,omitempty"`
	Parent      *parentRef `json:"parent,omitempty"`
}

// adfNode is one node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

// adfDocument puts each non-blank line of text into its own paragraph.
func adfDocument(text string) adfNode {
	doc := adfNode{Type: "doc", Version: 1, Content: []adfNode{}}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		doc.Content = append(doc.Content, adfNode{
			Type:    "paragraph",
			Content: []adfNode{{Type: "text", Text: line}},
		})
	}
	return doc
}

func (w *Writer) richText(text string) any {
	if w.adf {
		return adfDocument(text)
	}
	return text
}

type projectRef struct {
	Key string `json:"key"`
}

type issueType struct {
	Name string `json:"name"`
}

type parentRef struct {
	Key string `json:"key"`
}

type issueRequest struct {
	Fields issueFields `json:"fields"`
}

// Push creates the epics and stories. It stops at the first failure and
// returns what was created so far together with the error.
func (w *Writer) Push(ctx context.Context, collection *affinity.Collection) (*connector.PushResult, error) {
	log := logger.FromContext(ctx)
	result := &connector.PushResult{Target: TargetName, Epics: []connector.PushedEpic{}}
	for _, epic := range affinity.BuildTree(collection) {
		epicKey, err := w.createIssue(ctx, issueFields{
			Project:     projectRef{Key: w.project},
			Summary:     epic.Label,
			Description: w.richText(w.description),
			IssueType:   issueType{Name: epicIssueType},
			Labels:      w.epicLabels(epic.Label),
		})
		if err != nil {
			return result, fmt.Errorf("failed to create epic %q: %w", epic.Label, err)
		}
		pushed := connector.PushedEpic{Key: epicKey, Label: epic.Label, Stories: []string{}}
		for _, story := range epic.Stories {
			storyKey, err := w.createIssue(ctx, issueFields{
				Project:     projectRef{Key: w.project},
				Summary:     story.Summary,
				Description: w.richText(story.Note),
				IssueType:   issueType{Name: storyIssueType},
				Parent:      &parentRef{Key: epicKey},
			})
			if err != nil {
				result.Epics = append(result.Epics, pushed)
				return result, fmt.Errorf("failed to create story %q under %s: %w", story.Summary, epicKey, err)
			}
			pushed.Stories = append(pushed.Stories, storyKey)
		}
		result.Epics = append(result.Epics, pushed)
		log.Info("jira epic created", "key", epicKey, "label", epic.Label, "stories", len(pushed.Stories))
	}
	return result, nil
}

func (w *Writer) epicLabels(label string) []string {
	labels := make([]string, 0, len(w.labels)+1)
	if s := slug.Make(label); s != "" {
		labels = append(labels, s)
	}
	return append(labels, w.labels...)
}

func (w *Writer) createIssue(ctx context.Context, fields issueFields) (string, error) {
	body, err := w.client.Post(ctx, "/issue", issueRequest{Fields: fields})
	if err != nil {
		return "", err
	}
	key := gjson.GetBytes(body, "key").String()
	if key == "" {
		return "", fmt.Errorf("jira response has no issue key")
	}
	return key, nil
}
