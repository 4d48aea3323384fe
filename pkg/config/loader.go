package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// loader implements Service on top of a single koanf tree.
type loader struct {
	koanf      *koanf.Koanf
	validator  *validator.Validate
	metadata   Metadata
	metadataMu sync.RWMutex
}

// NewService creates a new configuration service with validation support.
func NewService() Service {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		panic(fmt.Sprintf("failed to register config validators: %v", err))
	}
	return &loader{
		koanf:     koanf.New("."),
		validator: v,
		metadata:  Metadata{Sources: make(map[string]SourceType)},
	}
}

// Load resolves configuration as defaults < file sources < environment < CLI flags.
// Within each tier, later sources win.
func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	l.reset()
	var files, flags []Source
	for _, source := range sources {
		switch {
		case source == nil || source.Type() == SourceEnv:
		case source.Type() == SourceCLI:
			flags = append(flags, source)
		default:
			files = append(files, source)
		}
	}

	steps := []func() error{l.loadDefaults}
	for _, source := range files {
		steps = append(steps, l.sourceStep(source))
	}
	steps = append(steps, l.loadEnvironment)
	for _, source := range flags {
		steps = append(steps, l.sourceStep(source))
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return l.unmarshalAndValidate()
}

func (l *loader) reset() {
	l.koanf = koanf.New(".")
	l.metadataMu.Lock()
	l.metadata.Sources = make(map[string]SourceType)
	l.metadata.LoadedAt = time.Now()
	l.metadataMu.Unlock()
}

func (l *loader) loadDefaults() error {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	for _, key := range l.koanf.Keys() {
		l.trackSource(key, SourceDefault)
	}
	return nil
}

// loadEnvironment reads variables named by env tags, then STORYMAPPER_ prefixed ones.
// Anything else in the process environment is ignored.
func (l *loader) loadEnvironment() error {
	envToPath := make(map[string]string)
	for _, m := range GenerateEnvMappings() {
		envToPath[m.EnvVar] = m.ConfigPath
	}
	provider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envToPath[key]; ok {
				return path, value
			}
			if rest, ok := strings.CutPrefix(key, EnvPrefix); ok {
				return transformEnvKey(rest), value
			}
			return "", nil
		},
	})
	before := l.snapshot()
	if err := l.koanf.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	l.trackChanges(before, SourceEnv)
	return nil
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: GROUPING_CLUSTER_COUNT -> grouping.cluster_count
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

func (l *loader) sourceStep(source Source) func() error {
	return func() error { return l.loadSource(source) }
}

// loadSource merges one source. YAML keys are set one by one so that a
// partial file only replaces the keys it names.
func (l *loader) loadSource(source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load from source %s: %w", source.Type(), err)
	}
	if len(data) == 0 {
		return nil
	}
	before := l.snapshot()
	if source.Type() == SourceYAML {
		leaves := make(map[string]any)
		flattenInto(leaves, "", data)
		for key, value := range leaves {
			if err := l.koanf.Set(key, value); err != nil {
				return fmt.Errorf("failed to set key %s from source %s: %w", key, source.Type(), err)
			}
		}
	} else if err := l.koanf.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("failed to apply source %s: %w", source.Type(), err)
	}
	l.trackChanges(before, source.Type())
	return nil
}

func (l *loader) snapshot() map[string]any {
	out := make(map[string]any)
	for _, key := range l.koanf.Keys() {
		out[key] = l.koanf.Get(key)
	}
	return out
}

// trackChanges attributes every key that is new or changed since before.
func (l *loader) trackChanges(before map[string]any, source SourceType) {
	for _, key := range l.koanf.Keys() {
		prev, existed := before[key]
		if !existed || !reflect.DeepEqual(prev, l.koanf.Get(key)) {
			l.trackSource(key, source)
		}
	}
}

// flattenInto writes the leaves of m into out under dotted keys.
func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, path, nested)
			continue
		}
		out[path] = v
	}
}

// sensitiveStringDecodeHook converts plain strings into SensitiveString fields.
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sensitiveType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

func (l *loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.koanf.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &config,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration meets all validation requirements.
func (l *loader) Validate(config *Config) error {
	if config == nil {
		return errors.New("nil configuration")
	}
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := validateCrossField(config); err != nil {
		return fmt.Errorf("custom validation failed: %w", err)
	}
	return nil
}

// validateCrossField checks rules that span more than one field.
func validateCrossField(config *Config) error {
	g := config.Grouping
	// Only the parameter of the active mode is checked; the other one is ignored.
	switch g.Mode {
	case "clusters":
		if g.ClusterCount < 1 {
			return fmt.Errorf("grouping cluster_count must be at least 1 in clusters mode, got %d", g.ClusterCount)
		}
	case "distance":
		if g.DistanceThreshold < 0 {
			return fmt.Errorf("grouping distance_threshold must be non-negative in distance mode, got %v", g.DistanceThreshold)
		}
	}
	if g.Linkage == "ward" && g.Metric != "euclidean" && g.Metric != "l2" {
		return fmt.Errorf("ward linkage requires the euclidean metric, got %q", g.Metric)
	}
	n := config.Naming
	if n.Mode == "llm" {
		if strings.TrimSpace(n.Provider) == "" {
			return fmt.Errorf("naming provider is required when naming mode is llm")
		}
		if n.Provider != "mock" && strings.TrimSpace(n.Model) == "" {
			return fmt.Errorf("naming model is required when naming mode is llm")
		}
	}
	if n.RetryMaxBackoff > 0 && n.RetryBackoff > n.RetryMaxBackoff {
		return fmt.Errorf("naming retry_backoff must not exceed retry_max_backoff")
	}
	return nil
}

// GetSource returns the source type for a specific configuration key.
func (l *loader) GetSource(key string) SourceType {
	l.metadataMu.RLock()
	source, ok := l.metadata.Sources[key]
	l.metadataMu.RUnlock()
	if !ok {
		return SourceDefault
	}
	return source
}

func (l *loader) trackSource(key string, source SourceType) {
	l.metadataMu.Lock()
	defer l.metadataMu.Unlock()
	l.metadata.Sources[key] = source
}

// mapProvider exposes an already decoded map as a koanf.Provider.
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) { return p, nil }

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider has no byte form")
}
