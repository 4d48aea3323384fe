package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

type (
	LogLevel string

	// Logger is the structured logger handed through contexts.
	Logger interface {
		Debug(msg string, keyvals ...any)
		Info(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Error(msg string, keyvals ...any)
		With(keyvals ...any) Logger
	}

	ContextKey string
)

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
	NoLevel       LogLevel = ""

	LoggerCtxKey ContextKey = "logger"
)

// disabledCharmLevel sits above every level charm emits.
const disabledCharmLevel charmlog.Level = 1000

var charmLevels = map[LogLevel]charmlog.Level{
	DebugLevel:    charmlog.DebugLevel,
	InfoLevel:     charmlog.InfoLevel,
	WarnLevel:     charmlog.WarnLevel,
	ErrorLevel:    charmlog.ErrorLevel,
	DisabledLevel: disabledCharmLevel,
}

var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
)

func (c *LogLevel) String() string {
	return string(*c)
}

// ToCharmlogLevel maps the level onto charm's scale. Unknown levels log at info.
func (c *LogLevel) ToCharmlogLevel() charmlog.Level {
	if lvl, ok := charmLevels[*c]; ok {
		return lvl
	}
	return charmlog.InfoLevel
}

// ParseLevel converts a textual level into a LogLevel, defaulting to info.
func ParseLevel(level string) LogLevel {
	candidate := LogLevel(strings.ToLower(strings.TrimSpace(level)))
	if _, ok := charmLevels[candidate]; ok {
		return candidate
	}
	return InfoLevel
}

// charmAdapter satisfies Logger on top of charmbracelet/log.
type charmAdapter struct {
	inner *charmlog.Logger
}

func (a *charmAdapter) Debug(msg string, keyvals ...any) { a.inner.Debug(msg, keyvals...) }
func (a *charmAdapter) Info(msg string, keyvals ...any)  { a.inner.Info(msg, keyvals...) }
func (a *charmAdapter) Warn(msg string, keyvals ...any)  { a.inner.Warn(msg, keyvals...) }
func (a *charmAdapter) Error(msg string, keyvals ...any) { a.inner.Error(msg, keyvals...) }

func (a *charmAdapter) With(keyvals ...any) Logger {
	return &charmAdapter{inner: a.inner.With(keyvals...)}
}

type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

const defaultTimeFormat = "15:04:05"

func DefaultConfig() *Config {
	return &Config{Level: InfoLevel, Output: os.Stdout, TimeFormat: defaultTimeFormat}
}

// TestConfig returns a configuration that discards every message.
func TestConfig() *Config {
	return &Config{Level: DisabledLevel, Output: io.Discard, TimeFormat: defaultTimeFormat}
}

func NewLogger(cfg *Config) Logger {
	switch {
	case cfg != nil:
	case IsTestEnvironment():
		cfg = TestConfig()
	default:
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	inner := charmlog.NewWithOptions(out, charmlog.Options{
		Level:           cfg.Level.ToCharmlogLevel(),
		ReportCaller:    cfg.AddSource,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	})
	if cfg.JSON {
		inner.SetFormatter(charmlog.JSONFormatter)
	} else {
		inner.SetFormatter(charmlog.TextFormatter)
		inner.SetStyles(getDefaultStyles())
	}
	return &charmAdapter{inner: inner}
}

// Init replaces the process default logger.
func Init(cfg *Config) {
	l := NewLogger(cfg)
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// IsTestEnvironment reports whether the binary runs under go test.
func IsTestEnvironment() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext returns the context logger or the process default.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
			return l
		}
	}
	return GetDefault()
}

func GetDefault() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}
