package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	ProviderMicrosoft = "microsoft"
	ProviderGoogle    = "google"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	str := strings.TrimSpace(value.Value)
	if str == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", str, err)
	}

	d.Duration = parsed
	return nil
}

// ConfigurationError lists every required setting that is missing or invalid.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, "; "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Config represents the root of the service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Translator TranslatorConfig `yaml:"translator"`
	DevOps     DevOpsConfig     `yaml:"devops"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls HTTP server behaviour.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// LoggingConfig customises slog and error reporting.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	SentryDSN   string `yaml:"sentry_dsn"`
	Environment string `yaml:"environment"`
}

// TranslatorConfig contains settings for the translation provider.
type TranslatorConfig struct {
	Provider              string   `yaml:"provider"`
	Endpoint              string   `yaml:"endpoint"`
	SubscriptionKey       string   `yaml:"subscription_key"`
	SubscriptionRegion    string   `yaml:"subscription_region"`
	APIVersion            string   `yaml:"api_version"`
	TargetLanguage        string   `yaml:"target_language"`
	SourceLanguage        string   `yaml:"source_language"`
	GoogleCredentialsFile string   `yaml:"google_credentials_file"`
	Timeout               Duration `yaml:"timeout"`
	SkipTLSVerify         bool     `yaml:"skip_tls_verify"`
}

// DevOpsConfig contains work item tracking settings.
type DevOpsConfig struct {
	PersonalAccessToken string   `yaml:"personal_access_token"`
	APIVersion          string   `yaml:"api_version"`
	SourceField         string   `yaml:"source_field"`
	TargetField         string   `yaml:"target_field"`
	OrganizationURL     string   `yaml:"organization_url"`
	Timeout             Duration `yaml:"timeout"`
	SkipTLSVerify       bool     `yaml:"skip_tls_verify"`
}

// Load reads configuration from the optional YAML file at path, then applies
// .env files and the process environment on top of it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	// A missing .env file is not an error; real environment variables win.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	texts := []struct {
		key string
		dst *string
	}{
		{"SERVER_ADDRESS", &c.Server.Address},
		{"LOG_LEVEL", &c.Logging.Level},
		{"SENTRY_DSN", &c.Logging.SentryDSN},
		{"APP_ENV", &c.Logging.Environment},
		{"TRANSLATION_PROVIDER", &c.Translator.Provider},
		{"TRANSLATION_ENDPOINT", &c.Translator.Endpoint},
		{"ENDPOINT_SECRET", &c.Translator.SubscriptionKey},
		{"ENDPOINT_REGION", &c.Translator.SubscriptionRegion},
		{"API_VERSION", &c.Translator.APIVersion},
		{"TARGET_LANGUAGE", &c.Translator.TargetLanguage},
		{"SOURCE_LANGUAGE", &c.Translator.SourceLanguage},
		{"GOOGLE_APPLICATION_CREDENTIALS", &c.Translator.GoogleCredentialsFile},
		{"PERSONAL_ACCESS_TOKEN", &c.DevOps.PersonalAccessToken},
		{"DEVOPS_API_VERSION", &c.DevOps.APIVersion},
		{"DESCRIPTION_FIELD", &c.DevOps.SourceField},
		{"TRANSLATION_FIELD", &c.DevOps.TargetField},
		{"DEVOPS_ORGANIZATION_URL", &c.DevOps.OrganizationURL},
	}
	for _, s := range texts {
		if v, ok := lookupEnv(s.key); ok {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"TRANSLATION_TIMEOUT", &c.Translator.Timeout},
		{"DEVOPS_TIMEOUT", &c.DevOps.Timeout},
		{"SERVER_READ_TIMEOUT", &c.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout},
	}
	for _, d := range durations {
		v, ok := lookupEnv(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigurationError{Invalid: []string{fmt.Sprintf("%s: %v", d.key, err)}}
		}
		d.dst.Duration = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"TRANSLATION_SKIP_TLS_VERIFY", &c.Translator.SkipTLSVerify},
		{"DEVOPS_SKIP_TLS_VERIFY", &c.DevOps.SkipTLSVerify},
	}
	for _, b := range bools {
		v, ok := lookupEnv(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Invalid: []string{fmt.Sprintf("%s: %v", b.key, err)}}
		}
		*b.dst = parsed
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{Duration: 90 * time.Second}
	}
	if c.Server.IdleTimeout.Duration == 0 {
		c.Server.IdleTimeout = Duration{Duration: 60 * time.Second}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "development"
	}

	c.Translator.Provider = strings.ToLower(c.Translator.Provider)
	if c.Translator.Provider == "" {
		c.Translator.Provider = ProviderMicrosoft
	}
	if c.Translator.Timeout.Duration == 0 {
		c.Translator.Timeout = Duration{Duration: 20 * time.Second}
	}

	if c.DevOps.APIVersion == "" {
		c.DevOps.APIVersion = "7.0"
	}
	if c.DevOps.Timeout.Duration == 0 {
		c.DevOps.Timeout = Duration{Duration: 30 * time.Second}
	}
}

func (c *Config) validate() error {
	var cfgErr ConfigurationError

	need := func(value, key string) {
		if value == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		}
	}

	switch c.Translator.Provider {
	case ProviderMicrosoft:
		need(c.Translator.Endpoint, "TRANSLATION_ENDPOINT")
		need(c.Translator.SubscriptionKey, "ENDPOINT_SECRET")
		need(c.Translator.SubscriptionRegion, "ENDPOINT_REGION")
	case ProviderGoogle:
	default:
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("TRANSLATION_PROVIDER: unknown provider %q", c.Translator.Provider))
	}
	need(c.Translator.APIVersion, "API_VERSION")
	need(c.Translator.TargetLanguage, "TARGET_LANGUAGE")
	need(c.DevOps.SourceField, "DESCRIPTION_FIELD")
	need(c.DevOps.TargetField, "TRANSLATION_FIELD")
	need(c.DevOps.PersonalAccessToken, "PERSONAL_ACCESS_TOKEN")

	if c.Translator.TargetLanguage != "" {
		if _, err := language.Parse(c.Translator.TargetLanguage); err != nil {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("TARGET_LANGUAGE: %v", err))
		}
	}
	if c.Translator.SourceLanguage != "" {
		if _, err := language.Parse(c.Translator.SourceLanguage); err != nil {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("SOURCE_LANGUAGE: %v", err))
		}
	}
	if c.DevOps.SourceField != "" && c.DevOps.SourceField == c.DevOps.TargetField {
		cfgErr.Invalid = append(cfgErr.Invalid, "DESCRIPTION_FIELD and TRANSLATION_FIELD must differ")
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return &cfgErr
	}
	return nil
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
