package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/gpucarbon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = "info"
	DefaultListen        = ":8080"
	DefaultZone          = "US-CAL-CISO"
	DefaultCacheDuration = 300
	DefaultFetchTimeout  = 5
	DefaultThreshold     = 400.0
	DefaultHistorySize   = 1000
	defaultDatabase      = "/var/lib/gpucarbon/telemetry.db"

	envPrefix = "GPUCARBON"
	envConfig = "GPUCARBON_CONFIG"
	envAPIKey = "ELECTRICITY_MAPS_API_KEY"
)

// Config holds all runtime settings. Values are resolved in order:
// defaults, config file, environment, command line flags.
type Config struct {
	Listen        string  `mapstructure:"listen"`
	Region        string  `mapstructure:"region"`
	APIKey        string  `mapstructure:"api_key"`
	CacheDuration int     `mapstructure:"cache_duration"`
	FetchTimeout  int     `mapstructure:"fetch_timeout"`
	Threshold     float64 `mapstructure:"threshold"`
	HistorySize   int     `mapstructure:"history_size"`
	Recorder      bool    `mapstructure:"recorder"`
	Database      string  `mapstructure:"database"`
	LogLevel      string  `mapstructure:"log_level"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("region", DefaultZone)
	v.SetDefault("cache_duration", DefaultCacheDuration)
	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("threshold", DefaultThreshold)
	v.SetDefault("history_size", DefaultHistorySize)
	v.SetDefault("recorder", false)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("log_level", DefaultLogLevel)

	fs := pflag.NewFlagSet("gpucarbon", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("listen", DefaultListen, "HTTP listen address")
	fs.String("region", DefaultZone, "Default carbon intensity zone")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("recorder", false, "Enable the sqlite telemetry recorder")
	fs.String("database", defaultDatabase, "Path to the telemetry database")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := v.BindPFlag("listen", fs.Lookup("listen")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("region", fs.Lookup("region")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("log_level", fs.Lookup("log-level")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("recorder", fs.Lookup("recorder")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := v.BindPFlag("database", fs.Lookup("database")); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath := os.Getenv(envConfig); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	} else {
		v.SetConfigName("gpucarbon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// The Electricity Maps credential is optional; its absence selects
	// mocked intensity values rather than an error.
	if config.APIKey == "" {
		config.APIKey = os.Getenv(envAPIKey)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Listen == "" {
		return errFactory.New(ErrInvalidListen)
	}
	if c.CacheDuration <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.CacheDuration)
	}
	if c.FetchTimeout <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.FetchTimeout)
	}
	if c.Threshold <= 0 {
		return errFactory.WithData(ErrInvalidThreshold, c.Threshold)
	}
	if c.HistorySize <= 0 {
		return errFactory.WithData(ErrInvalidHistorySize, c.HistorySize)
	}
	if c.Recorder && c.Database == "" {
		return errFactory.New(ErrInvalidDatabase)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "warn", "error":
		return true
	default:
		return false
	}
}
