package naming

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// tokenEncoder is the subset of *tiktoken.Tiktoken used for truncation.
type tokenEncoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// loadTiktoken resolves the encoding for model, falling back to cl100k_base.
func loadTiktoken(model string) (tokenEncoder, error) {
	if model != "" {
		if tke, err := tiktoken.EncodingForModel(model); err == nil {
			return tke, nil
		}
	}
	tke, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get default encoding '%s': %w", defaultEncoding, err)
	}
	return tke, nil
}

func truncateTokens(enc tokenEncoder, text string, limit int) string {
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return enc.Decode(tokens[:limit])
}
