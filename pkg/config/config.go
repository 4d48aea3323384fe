package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for storymapper.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Runtime        RuntimeConfig        `koanf:"runtime"        json:"runtime"        yaml:"runtime"`
	Grouping       GroupingConfig       `koanf:"grouping"       json:"grouping"       yaml:"grouping"`
	Embedder       EmbedderConfig       `koanf:"embedder"       json:"embedder"       yaml:"embedder"`
	Naming         NamingConfig         `koanf:"naming"         json:"naming"         yaml:"naming"`
	HTTP           HTTPConfig           `koanf:"http"           json:"http"           yaml:"http"`
	Miro           MiroConfig           `koanf:"miro"           json:"miro"           yaml:"miro"`
	Jira           JiraConfig           `koanf:"jira"           json:"jira"           yaml:"jira"`
	StoriesOnBoard StoriesOnBoardConfig `koanf:"storiesonboard" json:"storiesonboard" yaml:"storiesonboard"`
}

// RuntimeConfig contains logging behavior.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON  bool   `koanf:"log_json"  json:"log_json"  yaml:"log_json"                                                  env:"RUNTIME_LOG_JSON"`
	// LogFile redirects log records to a file, created with its directory when missing.
	LogFile  string `koanf:"log_file" json:"log_file" yaml:"log_file" env:"RUNTIME_LOG_FILE"`
}

// GroupingConfig selects how notes are clustered.
type GroupingConfig struct {
	Mode              string  `koanf:"mode"               json:"mode"               yaml:"mode"               validate:"oneof=clusters distance"                        env:"GROUPING_MODE"`
	ClusterCount      int     `koanf:"cluster_count"      json:"cluster_count"      yaml:"cluster_count"                                                                env:"GROUPING_CLUSTER_COUNT"`
	DistanceThreshold float64 `koanf:"distance_threshold" json:"distance_threshold" yaml:"distance_threshold"                                                           env:"GROUPING_DISTANCE_THRESHOLD"`
	Linkage           string  `koanf:"linkage"            json:"linkage"            yaml:"linkage"            validate:"oneof=average complete single ward"             env:"GROUPING_LINKAGE"`
	Metric            string  `koanf:"metric"             json:"metric"             yaml:"metric"             validate:"oneof=cosine euclidean l2 manhattan l1"         env:"GROUPING_METRIC"`
}

// EmbedderConfig describes the sentence embedding model.
type EmbedderConfig struct {
	Provider      string          `koanf:"provider"        json:"provider"        yaml:"provider"        validate:"oneof=local openai ollama googleai" env:"EMBEDDER_PROVIDER"`
	Model         string          `koanf:"model"           json:"model"           yaml:"model"           validate:"required"                           env:"EMBEDDER_MODEL"`
	APIKey        SensitiveString `koanf:"api_key"         json:"api_key"         yaml:"api_key"                                                       env:"EMBEDDER_API_KEY"        sensitive:"true"`
	BaseURL       string          `koanf:"base_url"        json:"base_url"        yaml:"base_url"                                                      env:"EMBEDDER_BASE_URL" validate:"http_url_or_empty"`
	BatchSize     int             `koanf:"batch_size"      json:"batch_size"      yaml:"batch_size"      validate:"min=1"                              env:"EMBEDDER_BATCH_SIZE"`
	CacheSize     int             `koanf:"cache_size"      json:"cache_size"      yaml:"cache_size"      validate:"min=0"                              env:"EMBEDDER_CACHE_SIZE"`
	ModelsDir     string          `koanf:"models_dir"      json:"models_dir"      yaml:"models_dir"                                                    env:"EMBEDDER_MODELS_DIR"`
	StripNewLines bool            `koanf:"strip_new_lines" json:"strip_new_lines" yaml:"strip_new_lines"                                               env:"EMBEDDER_STRIP_NEW_LINES"`
}

// NamingConfig selects synthetic or LLM generated group labels.
type NamingConfig struct {
	Mode                string          `koanf:"mode"                  json:"mode"                  yaml:"mode"                  validate:"oneof=synthetic llm" env:"NAMING_MODE"`
	Provider            string          `koanf:"provider"              json:"provider"              yaml:"provider"                                             env:"NAMING_PROVIDER"`
	Model               string          `koanf:"model"                 json:"model"                 yaml:"model"                                                env:"NAMING_MODEL"`
	APIKey              SensitiveString `koanf:"api_key"               json:"api_key"               yaml:"api_key"                                              env:"NAMING_API_KEY"               sensitive:"true"`
	BaseURL             string          `koanf:"base_url"              json:"base_url"              yaml:"base_url"                                             env:"NAMING_BASE_URL" validate:"http_url_or_empty"`
	Separator           string          `koanf:"separator"             json:"separator"             yaml:"separator"                                            env:"NAMING_SEPARATOR"`
	Temperature         float64         `koanf:"temperature"           json:"temperature"           yaml:"temperature"           validate:"min=0,max=2"         env:"NAMING_TEMPERATURE"`
	MaxTokens           int             `koanf:"max_tokens"            json:"max_tokens"            yaml:"max_tokens"            validate:"min=0"               env:"NAMING_MAX_TOKENS"`
	MaxPromptTokens     int             `koanf:"max_prompt_tokens"     json:"max_prompt_tokens"     yaml:"max_prompt_tokens"     validate:"min=0"               env:"NAMING_MAX_PROMPT_TOKENS"`
	RetryAttempts       int             `koanf:"retry_attempts"        json:"retry_attempts"        yaml:"retry_attempts"        validate:"min=0,max=10"        env:"NAMING_RETRY_ATTEMPTS"`
	RetryBackoff        time.Duration   `koanf:"retry_backoff"         json:"retry_backoff"         yaml:"retry_backoff"                                        env:"NAMING_RETRY_BACKOFF"`
	RetryMaxBackoff     time.Duration   `koanf:"retry_max_backoff"     json:"retry_max_backoff"     yaml:"retry_max_backoff"                                    env:"NAMING_RETRY_MAX_BACKOFF"`
	FallbackToSynthetic bool            `koanf:"fallback_to_synthetic" json:"fallback_to_synthetic" yaml:"fallback_to_synthetic"                                env:"NAMING_FALLBACK_TO_SYNTHETIC"`
}

// HTTPConfig contains transport settings shared by the connectors.
type HTTPConfig struct {
	Timeout      time.Duration `koanf:"timeout"        json:"timeout"        yaml:"timeout"                          env:"HTTP_TIMEOUT"`
	RetryCount   int           `koanf:"retry_count"    json:"retry_count"    yaml:"retry_count"    validate:"min=0"  env:"HTTP_RETRY_COUNT"`
	RetryWait    time.Duration `koanf:"retry_wait"     json:"retry_wait"     yaml:"retry_wait"                       env:"HTTP_RETRY_WAIT"`
	RetryMaxWait time.Duration `koanf:"retry_max_wait" json:"retry_max_wait" yaml:"retry_max_wait"                   env:"HTTP_RETRY_MAX_WAIT"`
}

// MiroConfig identifies the board notes are read from.
type MiroConfig struct {
	BaseURL     string          `koanf:"base_url"     json:"base_url"     yaml:"base_url"                      env:"MIRO_BASE_URL" validate:"http_url_or_empty"`
	AccessToken SensitiveString `koanf:"access_token" json:"access_token" yaml:"access_token"                  env:"MIRO_ACCESS_TOKEN" sensitive:"true"`
	BoardID     string          `koanf:"board_id"     json:"board_id"     yaml:"board_id"                      env:"MIRO_BOARD_ID"`
	PageLimit   int             `koanf:"page_limit"   json:"page_limit"   yaml:"page_limit"   validate:"min=1,max=50" env:"MIRO_PAGE_LIMIT"`
}

// JiraConfig identifies the project epics and stories are created in.
type JiraConfig struct {
	BaseURL    string          `koanf:"base_url"    json:"base_url"    yaml:"base_url"    env:"JIRA_BASE_URL" validate:"http_url_or_empty"`
	User       string          `koanf:"user"        json:"user"        yaml:"user"        env:"JIRA_USER"`
	APIToken   SensitiveString `koanf:"api_token"   json:"api_token"   yaml:"api_token"   env:"JIRA_API_TOKEN"   sensitive:"true"`
	ProjectKey string          `koanf:"project_key" json:"project_key" yaml:"project_key" env:"JIRA_PROJECT_KEY"`
	Labels     []string        `koanf:"labels"      json:"labels"      yaml:"labels"      env:"JIRA_LABELS"`
	// EpicDescription is copied into every created epic.
	EpicDescription string `koanf:"epic_description" json:"epic_description" yaml:"epic_description" env:"JIRA_EPIC_DESCRIPTION"`
}

// StoriesOnBoardConfig identifies the board cards are created on.
type StoriesOnBoardConfig struct {
	BaseURL string          `koanf:"base_url" json:"base_url" yaml:"base_url" env:"SOB_BASE_URL" validate:"http_url_or_empty"`
	APIKey  SensitiveString `koanf:"api_key"  json:"api_key"  yaml:"api_key"  env:"SOB_API_KEY"  sensitive:"true"`
	BoardID string          `koanf:"board_id" json:"board_id" yaml:"board_id" env:"SOB_BOARD_ID"`
}

// Service defines the configuration loading interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
// This is a convenience function for simple configuration loading.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Grouping: GroupingConfig{
			Mode:              "clusters",
			ClusterCount:      5,
			DistanceThreshold: 1.0,
			Linkage:           "average",
			Metric:            "cosine",
		},
		Embedder: EmbedderConfig{
			Provider:      "local",
			Model:         "sentence-transformers/all-MiniLM-L6-v2",
			BatchSize:     64,
			CacheSize:     1024,
			StripNewLines: true,
		},
		Naming: NamingConfig{
			Mode:            "synthetic",
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			Separator:       "\n",
			Temperature:     0.2,
			MaxTokens:       32,
			RetryBackoff:    500 * time.Millisecond,
			RetryMaxBackoff: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			RetryCount:   3,
			RetryWait:    100 * time.Millisecond,
			RetryMaxWait: 2 * time.Second,
		},
		Miro: MiroConfig{
			BaseURL:   "https://api.miro.com/v2",
			PageLimit: 50,
		},
		Jira: JiraConfig{
			Labels: []string{},
		},
		StoriesOnBoard: StoriesOnBoardConfig{
			BaseURL: "https://app.storiesonboard.com/api/v1",
		},
	}
}
