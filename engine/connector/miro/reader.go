// Package miro reads sticky notes from a Miro board.
package miro

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/compozy/storymapper/engine/connector/httpclient"
	"github.com/compozy/storymapper/engine/core"
	"github.com/compozy/storymapper/pkg/logger"
)

const (
	DefaultBaseURL   = "https://api.miro.com/v2"
	DefaultPageLimit = 50
	stickyNoteType   = "sticky_note"
)

// ErrConfig marks missing board settings.
var ErrConfig = errors.New("miro configuration error")

// Config identifies the board and credentials.
type Config struct {
	BaseURL     string
	AccessToken string
	BoardID     string
	PageLimit   int
	HTTP        httpclient.Config
}

// Reader fetches sticky note text from one board.
type Reader struct {
	client    *httpclient.Client
	boardID   string
	pageLimit int
}

// NewReader validates cfg and builds a reader.
func NewReader(cfg Config) (*Reader, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrConfig)
	}
	if strings.TrimSpace(cfg.BoardID) == "" {
		return nil, fmt.Errorf("%w: board id is required", ErrConfig)
	}
	httpCfg := cfg.HTTP
	httpCfg.Name = "miro"
	httpCfg.BaseURL = cfg.BaseURL
	if httpCfg.BaseURL == "" {
		httpCfg.BaseURL = DefaultBaseURL
	}
	client, err := httpclient.New(httpCfg, httpclient.WithBearerToken(cfg.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &Reader{client: client, boardID: cfg.BoardID, pageLimit: limit}, nil
}

func (r *Reader) boardPath() string {
	return "/boards/" + url.PathEscape(r.boardID)
}

// Notes returns the text of every sticky note on the board, in board order.
// Notes that are empty after markup removal are dropped.
func (r *Reader) Notes(ctx context.Context) ([]string, error) {
	query := map[string]string{
		"limit": strconv.Itoa(r.pageLimit),
		"type":  stickyNoteType,
	}
	var notes []string
	skipped := 0
	err := r.client.Paginate(ctx, r.boardPath()+"/items", query, httpclient.Page{CursorKey: "cursor", ItemsKey: "data"},
		func(item gjson.Result) error {
			if item.Get("type").String() != stickyNoteType {
				return nil
			}
			note := core.CleanNote(item.Get("data.content").String())
			if note == "" {
				skipped++
				return nil
			}
			notes = append(notes, note)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read board %s: %w", r.boardID, err)
	}
	logger.FromContext(ctx).Info("miro notes read", "board", r.boardID, "notes", len(notes), "skipped_empty", skipped)
	if notes == nil {
		notes = []string{}
	}
	return notes, nil
}

// Check verifies the token and that the board is reachable.
func (r *Reader) Check(ctx context.Context) error {
	err := r.client.Ping(ctx, r.boardPath())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, httpclient.ErrUnauthorized):
		return fmt.Errorf("miro rejected the access token: %w", err)
	case errors.Is(err, httpclient.ErrNotFound):
		return fmt.Errorf("miro board %s not found: %w", r.boardID, err)
	default:
		return fmt.Errorf("miro board check failed: %w", err)
	}
}
