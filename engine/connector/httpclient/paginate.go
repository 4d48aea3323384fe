package httpclient

import (
	"context"
	"fmt"
	"maps"

	"github.com/tidwall/gjson"
)

// Page describes cursor pagination for Paginate.
type Page struct {
	// CursorKey is the response field that holds the next cursor. It is also
	// sent back as the query parameter of the same name.
	CursorKey string
	// ItemsKey is the gjson path of the item array in each page.
	ItemsKey string
}

// Paginate walks a cursor paginated collection and calls visit for each item.
// It stops on an empty cursor or when the server repeats a cursor.
func (c *Client) Paginate(
	ctx context.Context,
	path string,
	query map[string]string,
	page Page,
	visit func(item gjson.Result) error,
) error {
	cursorKey := page.CursorKey
	if cursorKey == "" {
		cursorKey = "cursor"
	}
	itemsKey := page.ItemsKey
	if itemsKey == "" {
		itemsKey = "data"
	}
	params := make(map[string]string, len(query)+1)
	maps.Copy(params, query)
	seen := make(map[string]struct{})
	for {
		body, err := c.Get(ctx, path, params)
		if err != nil {
			return err
		}
		if !gjson.ValidBytes(body) {
			return fmt.Errorf("%s: GET %s: response is not valid JSON", c.name, path)
		}
		parsed := gjson.ParseBytes(body)
		var visitErr error
		parsed.Get(itemsKey).ForEach(func(_, item gjson.Result) bool {
			visitErr = visit(item)
			return visitErr == nil
		})
		if visitErr != nil {
			return visitErr
		}
		cursor := parsed.Get(cursorKey).String()
		if cursor == "" {
			return nil
		}
		if _, dup := seen[cursor]; dup {
			return fmt.Errorf("%s: GET %s: server repeated cursor %q", c.name, path, cursor)
		}
		seen[cursor] = struct{}{}
		params[cursorKey] = cursor
	}
}
