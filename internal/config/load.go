package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variable overrides,
// e.g. ARGUS_SERVER_PORT or ARGUS_CLASSIFIER_GEMINI_API_KEY.
const envPrefix = "ARGUS"

// Load reads configuration from an optional config.yaml in the working
// directory and from ARGUS_* environment variables, with environment
// variables taking precedence. Returns a validated Config or an error
// describing what failed to load or validate.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// A missing config file is fine; environment variables and defaults
	// cover everything. Any other read error is reported.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through
	// Unmarshal; binding each known key explicitly does.
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %q: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every known key so AllKeys sees
// the full key set and partial configs stay usable.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_drain_seconds", 15)

	v.SetDefault("database.url", "")

	v.SetDefault("auth.api_key_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("scheduler.concurrency_limit", 5)
	v.SetDefault("scheduler.default_timeout_ms", 30000)

	v.SetDefault("classifier.gemini_api_key", "")
	v.SetDefault("classifier.model_name", "gemini-2.0-flash")
	v.SetDefault("classifier.max_labels", 10)
	v.SetDefault("classifier.max_retries", 3)
	v.SetDefault("classifier.retry_delay_seconds", 2)
	v.SetDefault("classifier.prompt_template_path", "")
	v.SetDefault("classifier.taxonomy_path", "")

	v.SetDefault("fetch.max_bytes", 8*1024*1024)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.user_agent", "argus-api/1.0")

	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl_seconds", 3600)
}
