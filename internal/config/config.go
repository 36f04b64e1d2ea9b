package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"  validate:"required"`
	Classifier ClassifierConfig `mapstructure:"classifier" validate:"required"`
	Fetch      FetchConfig      `mapstructure:"fetch"      validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownDrainSeconds bounds how long shutdown waits for the
	// scheduler to go idle before closing the server anyway.
	ShutdownDrainSeconds int `mapstructure:"shutdown_drain_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains authentication settings for both client API keys
// and operator JWTs.
type AuthConfig struct {
	// APIKeyHash is the bcrypt hash of the API key clients present in
	// the X-API-Key header.
	APIKeyHash string `mapstructure:"api_key_hash" validate:"required"`

	// JWTSecret signs operator tokens for the admin endpoints.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the operator token lifetime.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// SchedulerConfig contains the task scheduler settings.
type SchedulerConfig struct {
	// ConcurrencyLimit caps how many classification operations run at
	// once. Non-positive values fall back to the scheduler's default.
	ConcurrencyLimit int `mapstructure:"concurrency_limit"`

	// DefaultTimeoutMs bounds an operation's wall-clock time when the
	// request does not supply its own timeout.
	DefaultTimeoutMs int `mapstructure:"default_timeout_ms"`
}

// ClassifierConfig contains the Gemini model integration settings.
type ClassifierConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// MaxLabels caps how many labels a single classification returns.
	MaxLabels int `mapstructure:"max_labels" validate:"required,gt=0"`

	MaxRetries        int `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`

	// PromptTemplatePath overrides the embedded prompt template when set.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`

	// TaxonomyPath overrides the embedded label taxonomy when set.
	TaxonomyPath string `mapstructure:"taxonomy_path"`
}

// FetchConfig contains the remote image fetcher settings.
type FetchConfig struct {
	MaxBytes       int64  `mapstructure:"max_bytes"       validate:"required,gt=0"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	UserAgent      string `mapstructure:"user_agent"      validate:"required"`
}

// CacheConfig contains the optional Redis result cache settings.
// The cache is disabled when Addr is empty.
type CacheConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"          validate:"gte=0"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gte=0"`
}
