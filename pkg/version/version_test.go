package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	t.Run("Should render injected build variables", func(t *testing.T) {
		prev := Version
		Version = "v0.3.0"
		t.Cleanup(func() { Version = prev })

		info := Get()

		assert.Equal(t, "v0.3.0", info.Version)
		assert.Equal(t, "v0.3.0 (commit unknown, built unknown)", info.String())
	})
}
