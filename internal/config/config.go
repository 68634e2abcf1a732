// Package config loads runtime settings from flags, MELODIA_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tejashwikalptaru/melodia/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. MELODIA_CATALOG_URL.
const EnvPrefix = "MELODIA"

// Keys.
const (
	KeyCatalogURL         = "catalog-url"
	KeyFilesURL           = "files-url"
	KeyAuthToken          = "auth-token"
	KeyHTTPTimeout        = "http-timeout"
	KeyLogLevel           = "log-level"
	KeyLogFormat          = "log-format"
	KeyMockAudio          = "mock-audio"
	KeyDemo               = "demo"
	KeyMetricsAddr        = "metrics-addr"
	KeyPlayCountCacheSize = "playcount-cache-size"
	KeySampleRate         = "sample-rate"
	KeyProgressInterval   = "progress-interval"
	KeyVolume             = "volume"
)

// Config is the resolved application configuration.
type Config struct {
	CatalogURL         string
	FilesURL           string
	AuthToken          string
	HTTPTimeout        time.Duration
	LogLevel           string
	LogFormat          string
	MockAudio          bool
	Demo               bool
	MetricsAddr        string
	PlayCountCacheSize int
	SampleRate         int
	ProgressInterval   time.Duration
	Volume             float64
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CatalogURL:         "http://127.0.0.1:8080/api",
		FilesURL:           "http://127.0.0.1:8080",
		HTTPTimeout:        15 * time.Second,
		LogLevel:           "info",
		LogFormat:          "text",
		PlayCountCacheSize: 1024,
		SampleRate:         44100,
		ProgressInterval:   333 * time.Millisecond,
		Volume:             0.8,
	}
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyCatalogURL, d.CatalogURL)
	v.SetDefault(KeyFilesURL, d.FilesURL)
	v.SetDefault(KeyAuthToken, d.AuthToken)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyMockAudio, d.MockAudio)
	v.SetDefault(KeyDemo, d.Demo)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyPlayCountCacheSize, d.PlayCountCacheSize)
	v.SetDefault(KeySampleRate, d.SampleRate)
	v.SetDefault(KeyProgressInterval, d.ProgressInterval)
	v.SetDefault(KeyVolume, d.Volume)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags declares a flag for every key on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(KeyCatalogURL, d.CatalogURL, "content service API base URL")
	fs.String(KeyFilesURL, d.FilesURL, "base URL for relative file references")
	fs.String(KeyAuthToken, d.AuthToken, "bearer token for the content service")
	fs.Duration(KeyHTTPTimeout, d.HTTPTimeout, "timeout for content service calls")
	fs.String(KeyLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(KeyLogFormat, d.LogFormat, "log format (text, json)")
	fs.Bool(KeyMockAudio, d.MockAudio, "use the silent in-memory audio engine")
	fs.Bool(KeyDemo, d.Demo, "browse the built-in demo catalog instead of the content service")
	fs.String(KeyMetricsAddr, d.MetricsAddr, "serve Prometheus metrics on this address (empty disables)")
	fs.Int(KeyPlayCountCacheSize, d.PlayCountCacheSize, "number of play counters kept locally")
	fs.Int(KeySampleRate, d.SampleRate, "audio output sample rate")
	fs.Duration(KeyProgressInterval, d.ProgressInterval, "how often playback progress is reported")
	fs.Float64(KeyVolume, d.Volume, "starting volume (0.0-1.0)")
}

// Load reads configFile (if not empty) and resolves every key. Flags bound
// with BindPFlags win over environment variables, which win over the file.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := Config{
		CatalogURL:         v.GetString(KeyCatalogURL),
		FilesURL:           v.GetString(KeyFilesURL),
		AuthToken:          v.GetString(KeyAuthToken),
		HTTPTimeout:        v.GetDuration(KeyHTTPTimeout),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
		MockAudio:          v.GetBool(KeyMockAudio),
		Demo:               v.GetBool(KeyDemo),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		PlayCountCacheSize: v.GetInt(KeyPlayCountCacheSize),
		SampleRate:         v.GetInt(KeySampleRate),
		ProgressInterval:   v.GetDuration(KeyProgressInterval),
		Volume:             v.GetFloat64(KeyVolume),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Demo && c.CatalogURL == "" {
		errs = append(errs, fmt.Errorf("%s must be set unless %s is on", KeyCatalogURL, KeyDemo))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyHTTPTimeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}
	if c.PlayCountCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyPlayCountCacheSize))
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("%s must be between 8000 and 192000", KeySampleRate))
	}
	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyProgressInterval))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 1", KeyVolume))
	}
	return errors.Join(errs...)
}

// Logger returns the logger settings.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:  logger.ParseLevel(c.LogLevel, slog.LevelInfo),
		Format: c.LogFormat,
	}
}
