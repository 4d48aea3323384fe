package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compozy/storymapper/engine/core"
)

func TestCleanNote(t *testing.T) {
	t.Run("Should strip tags and unescape entities", func(t *testing.T) {
		assert.Equal(t, "Pay & ship", core.CleanNote("<p><strong>Pay</strong> &amp; ship</p>"))
	})

	t.Run("Should separate paragraphs and collapse whitespace", func(t *testing.T) {
		assert.Equal(t, "first second", core.CleanNote("<p>first</p><p>second</p>"))
		assert.Equal(t, "a b", core.CleanNote("  a \n\t b  "))
	})

	t.Run("Should return empty for markup only", func(t *testing.T) {
		assert.Equal(t, "", core.CleanNote("<p><br></p>"))
	})
}
