// Package storiesonboard creates epic and story cards on a StoriesOnBoard board.
package storiesonboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/engine/connector"
	"github.com/compozy/storymapper/engine/connector/httpclient"
	"github.com/compozy/storymapper/pkg/logger"
)

const (
	TargetName    = "storiesonboard"
	cardTypeEpic  = "epic"
	cardTypeStory = "story"
)

// ErrConfig marks missing board settings.
var ErrConfig = errors.New("storiesonboard configuration error")

type Config struct {
	BaseURL string
	APIKey  string
	BoardID string
	HTTP    httpclient.Config
}

// Writer pushes a story map onto one board.
type Writer struct {
	client  *httpclient.Client
	boardID string
}

func NewWriter(cfg Config) (*Writer, error) {
	switch {
	case strings.TrimSpace(cfg.BaseURL) == "":
		return nil, fmt.Errorf("%w: base url is required", ErrConfig)
	case strings.TrimSpace(cfg.APIKey) == "":
		return nil, fmt.Errorf("%w: api key is required", ErrConfig)
	case strings.TrimSpace(cfg.BoardID) == "":
		return nil, fmt.Errorf("%w: board id is required", ErrConfig)
	}
	httpCfg := cfg.HTTP
	httpCfg.Name = TargetName
	httpCfg.BaseURL = cfg.BaseURL
	client, err := httpclient.New(httpCfg, httpclient.WithBearerToken(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return &Writer{client: client, boardID: cfg.BoardID}, nil
}

type card struct {
	Title    string `json:"title"`
	CardType string `json:"cardType"`
	ParentID string `json:"parentId,omitempty"`
}

// Push creates one epic card per group and a story card per note.
// It stops at the first failure and returns the partial result.
func (w *Writer) Push(ctx context.Context, collection *affinity.Collection) (*connector.PushResult, error) {
	log := logger.FromContext(ctx)
	result := &connector.PushResult{Target: TargetName, Epics: []connector.PushedEpic{}}
	for _, epic := range affinity.BuildTree(collection) {
		epicID, err := w.createCard(ctx, card{Title: epic.Label, CardType: cardTypeEpic})
		if err != nil {
			return result, fmt.Errorf("failed to create epic card %q: %w", epic.Label, err)
		}
		pushed := connector.PushedEpic{Key: epicID, Label: epic.Label, Stories: []string{}}
		for _, story := range epic.Stories {
			storyID, err := w.createCard(ctx, card{Title: story.Summary, CardType: cardTypeStory, ParentID: epicID})
			if err != nil {
				result.Epics = append(result.Epics, pushed)
				return result, fmt.Errorf("failed to create story card %q: %w", story.Summary, err)
			}
			pushed.Stories = append(pushed.Stories, storyID)
		}
		result.Epics = append(result.Epics, pushed)
		log.Info("storiesonboard epic created", "id", epicID, "label", epic.Label, "stories", len(pushed.Stories))
	}
	return result, nil
}

func (w *Writer) createCard(ctx context.Context, c card) (string, error) {
	body, err := w.client.Post(ctx, "/boards/"+url.PathEscape(w.boardID)+"/items", c)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("storiesonboard response has no card id")
	}
	return id, nil
}
