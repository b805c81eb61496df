package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once and then
// passed by value; nothing reads it from global state.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Output     OutputConfig     `mapstructure:"output"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Log        LogConfig        `mapstructure:"log"`
}

// APIConfig selects and parameterizes the analysis backend.
type APIConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ProcessingConfig holds image preprocessing settings.
type ProcessingConfig struct {
	CompressQuality         int     `mapstructure:"compress_quality"`
	TargetWidth             int     `mapstructure:"target_width"`
	TargetHeight            int     `mapstructure:"target_height"`
	SkipCompressThresholdMB float64 `mapstructure:"skip_compress_threshold_mb"`
}

type PromptConfig struct {
	ExamplesPath     string `mapstructure:"examples_path"`
	InstructionsPath string `mapstructure:"instructions_path"`
}

// OutputConfig controls where cards are written and what happens after.
type OutputConfig struct {
	Dir              string `mapstructure:"dir"`
	SaveAnalysisJSON bool   `mapstructure:"save_analysis_json"`
	AutoOpenBrowser  bool   `mapstructure:"auto_open_browser"`
	VerifyLinks      bool   `mapstructure:"verify_links"`
}

type StorageConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

// S3Config holds S3 publishing settings. Publishing is off when Bucket is empty.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	UploadsDir string `mapstructure:"uploads_dir"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var providers = []string{"openai", "ollama", "gemini"}

// Load reads configuration from path (or ./config.yaml when path is empty
// and the file exists) with SNAPCARD_ prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SNAPCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.provider", "openai")
	v.SetDefault("api.base_url", "https://api.openai.com/v1")
	v.SetDefault("api.api_key", "")
	v.SetDefault("api.model", "")
	v.SetDefault("api.max_tokens", 2000)
	v.SetDefault("api.temperature", 0.7)
	v.SetDefault("api.timeout", "120s")

	v.SetDefault("processing.compress_quality", 85)
	v.SetDefault("processing.target_width", 1080)
	v.SetDefault("processing.target_height", 1920)
	v.SetDefault("processing.skip_compress_threshold_mb", 0.5)

	v.SetDefault("prompt.examples_path", "prompt_examples.json")
	v.SetDefault("prompt.instructions_path", "")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.save_analysis_json", true)
	v.SetDefault("output.auto_open_browser", false)
	v.SetDefault("output.verify_links", false)

	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "cards/")

	v.SetDefault("server.port", "8888")
	v.SetDefault("server.uploads_dir", "uploads")

	v.SetDefault("batch.concurrency", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	valid := false
	for _, p := range providers {
		if c.API.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown api.provider %q (want one of %s)", c.API.Provider, strings.Join(providers, ", "))
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.MaxTokens <= 0 {
		return fmt.Errorf("api.max_tokens must be positive, got %d", c.API.MaxTokens)
	}
	if c.Processing.CompressQuality < 1 || c.Processing.CompressQuality > 100 {
		return fmt.Errorf("processing.compress_quality must be within 1-100, got %d", c.Processing.CompressQuality)
	}
	if c.Processing.SkipCompressThresholdMB < 0 {
		return fmt.Errorf("processing.skip_compress_threshold_mb must not be negative, got %g", c.Processing.SkipCompressThresholdMB)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}
	return nil
}
