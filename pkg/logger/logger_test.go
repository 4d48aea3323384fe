package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(level LogLevel, jsonOut bool) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&Config{Level: level, Output: buf, JSON: jsonOut, TimeFormat: defaultTimeFormat}), buf
}

func TestContextLogger(t *testing.T) {
	t.Run("Should hand back the logger stored on the context", func(t *testing.T) {
		stored := NewLogger(TestConfig())
		got := FromContext(ContextWithLogger(t.Context(), stored))
		assert.Same(t, stored, got)
	})

	t.Run("Should fall back to the default logger", func(t *testing.T) {
		assert.Same(t, GetDefault(), FromContext(t.Context()))
	})

	t.Run("Should ignore values of the wrong type under the logger key", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, "board-42")
		assert.Same(t, GetDefault(), FromContext(ctx))
	})

	t.Run("Should expose the logger installed by Init", func(t *testing.T) {
		previous := GetDefault()
		t.Cleanup(func() {
			defaultMu.Lock()
			defaultLogger = previous
			defaultMu.Unlock()
		})
		buf := &bytes.Buffer{}
		Init(&Config{Level: InfoLevel, Output: buf, TimeFormat: defaultTimeFormat})
		GetDefault().Info("pipeline started")
		assert.Contains(t, buf.String(), "pipeline started")
	})
}

func TestLevels(t *testing.T) {
	t.Run("Should map levels onto the charm scale", func(t *testing.T) {
		cases := map[LogLevel]charmlog.Level{
			DebugLevel:          charmlog.DebugLevel,
			InfoLevel:           charmlog.InfoLevel,
			WarnLevel:           charmlog.WarnLevel,
			ErrorLevel:          charmlog.ErrorLevel,
			DisabledLevel:       disabledCharmLevel,
			LogLevel("verbose"): charmlog.InfoLevel,
		}
		for level, want := range cases {
			assert.Equal(t, want, level.ToCharmlogLevel(), "level %q", level)
		}
	})

	t.Run("Should parse level names case-insensitively", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
		assert.Equal(t, WarnLevel, ParseLevel(" warn "))
		assert.Equal(t, ErrorLevel, ParseLevel("error"))
		assert.Equal(t, DisabledLevel, ParseLevel("disabled"))
	})

	t.Run("Should default to info for unknown names", func(t *testing.T) {
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
		assert.Equal(t, InfoLevel, ParseLevel(""))
	})

	t.Run("Should drop messages below the configured level", func(t *testing.T) {
		log, buf := bufferLogger(WarnLevel, false)
		log.Debug("embedding batch")
		log.Info("clusters formed")
		log.Warn("note without text skipped")
		log.Error("jira rejected issue")

		out := buf.String()
		assert.NotContains(t, out, "embedding batch")
		assert.NotContains(t, out, "clusters formed")
		assert.Contains(t, out, "note without text skipped")
		assert.Contains(t, out, "jira rejected issue")
	})

	t.Run("Should stay silent when disabled", func(t *testing.T) {
		log, buf := bufferLogger(DisabledLevel, false)
		log.Error("jira rejected issue")
		assert.Empty(t, buf.String())
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text records", func(t *testing.T) {
		log, buf := bufferLogger(InfoLevel, false)
		log.Info("fetched board", "notes", 12)
		assert.Contains(t, buf.String(), "fetched board")
		assert.Contains(t, buf.String(), "12")
	})

	t.Run("Should write one JSON object per record", func(t *testing.T) {
		log, buf := bufferLogger(InfoLevel, true)
		log.Info("fetched board", "notes", 3)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "fetched board", record["msg"])
		assert.EqualValues(t, 3, record["notes"])
	})

	t.Run("Should carry fields added with With", func(t *testing.T) {
		log, buf := bufferLogger(InfoLevel, true)
		log.With("component", "miro", "board", "uXjV").Info("board fetched")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "miro", record["component"])
		assert.Equal(t, "uXjV", record["board"])
	})

	t.Run("Should discard output in tests when no config is given", func(t *testing.T) {
		require.True(t, IsTestEnvironment())
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
		assert.NotNil(t, NewLogger(nil))
	})

	t.Run("Should log info to stdout by default", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.False(t, cfg.JSON)
		assert.Equal(t, defaultTimeFormat, cfg.TimeFormat)
	})
}

func TestSetupLogger(t *testing.T) {
	restoreDefault := func(t *testing.T) {
		previous := GetDefault()
		t.Cleanup(func() {
			defaultMu.Lock()
			defaultLogger = previous
			defaultMu.Unlock()
		})
	}

	t.Run("Should write records to the log file and create its directory", func(t *testing.T) {
		restoreDefault(t)
		path := filepath.Join(t.TempDir(), "logs", "storymapper.log")

		closer, err := SetupLogger("info", false, false, path)
		require.NoError(t, err)
		GetDefault().Info("pushed epics", "target", "jira")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "pushed epics")
		assert.Contains(t, string(data), "jira")
	})

	t.Run("Should append to an existing log file", func(t *testing.T) {
		restoreDefault(t)
		path := filepath.Join(t.TempDir(), "run.log")
		require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0o644))

		closer, err := SetupLogger("info", true, false, path)
		require.NoError(t, err)
		GetDefault().Warn("note skipped")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "earlier run")
		assert.Contains(t, string(data), `"msg":"note skipped"`)
	})

	t.Run("Should fail when the log path cannot be created", func(t *testing.T) {
		restoreDefault(t)
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))

		_, err := SetupLogger("info", false, false, filepath.Join(blocker, "run.log"))

		assert.ErrorContains(t, err, "failed to create log directory")
	})

	t.Run("Should keep stderr when no file is set", func(t *testing.T) {
		restoreDefault(t)
		closer, err := SetupLogger("disabled", false, false, "")
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
	})
}
