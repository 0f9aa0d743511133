// Package config loads settings for both pipeline stages from an optional
// YAML file, QUILL_* environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/research"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. QUILL_SEARCH_COMMAND.
const EnvPrefix = "QUILL"

// Config holds all configuration for the research and write-article commands.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig configures the provider chain and the depth expansion.
type SearchConfig struct {
	Command           string        `mapstructure:"command"`
	NumResults        int           `mapstructure:"num_results"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	HTMLEndpoint      string        `mapstructure:"html_endpoint"`
	HTMLTimeout       time.Duration `mapstructure:"html_timeout"`
	MaxResults        int           `mapstructure:"max_results"`
	UserAgents        []string      `mapstructure:"user_agents"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	ProxyFile         string        `mapstructure:"proxy_file"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Jitter            float64       `mapstructure:"jitter"`
	// Variations are the extra queries of an advanced run. "{query}" is
	// replaced by the user's query.
	Variations []string `mapstructure:"variations"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text dump at exit.
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.command", "ddgr")
	v.SetDefault("search.num_results", 10)
	v.SetDefault("search.command_timeout", 30*time.Second)
	v.SetDefault("search.html_endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.html_timeout", 15*time.Second)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.user_agents", []string{})
	v.SetDefault("search.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("search.proxy_file", "")
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("search.jitter", 0.2)
	v.SetDefault("search.variations", research.DefaultVariations)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.textfile", "")
}

// Load reads configuration. An empty path looks for quill.yaml in the
// working directory and silently uses defaults when none exists; an explicit
// path must be readable.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	s := c.Search
	switch {
	case strings.TrimSpace(s.Command) == "":
		return errors.New("search.command is required")
	case s.NumResults <= 0:
		return errors.New("search.num_results must be greater than zero")
	case s.MaxResults <= 0:
		return errors.New("search.max_results must be greater than zero")
	case s.CommandTimeout <= 0:
		return errors.New("search.command_timeout must be positive")
	case s.HTMLTimeout <= 0:
		return errors.New("search.html_timeout must be positive")
	case s.RequestsPerSecond < 0:
		return errors.New("search.requests_per_second must not be negative")
	case s.Jitter < 0 || s.Jitter > 1:
		return errors.New("search.jitter must be between 0 and 1")
	}
	if _, err := fingerprint.ParseProfile(s.Fingerprint); err != nil {
		return fmt.Errorf("search.fingerprint: %w", err)
	}
	for _, tmpl := range s.Variations {
		if strings.TrimSpace(tmpl) == "" {
			return errors.New("search.variations must not contain empty entries")
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
