package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/arcmed/arcmed_backend/pkg/constants"
)

func ReadConfig(configPath string) (*Config, error) {
	viper.SetConfigName(constants.ConfigName)
	viper.SetConfigType(constants.ConfigFormat)
	viper.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. ARCMED_DATABASE_HOST overrides database.host
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine in container environments where
		// everything comes in through env vars.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if os.Getenv("ARCMED_DATABASE_HOST") == "" {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func MustReadConfig(path string) *Config {
	cfg, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Auth.MaxFailedLogins == 0 {
		c.Auth.MaxFailedLogins = 6
	}
	if c.Auth.LockoutMinutes == 0 {
		c.Auth.LockoutMinutes = 30
	}
	if c.Auth.SessionTTLMinutes == 0 {
		c.Auth.SessionTTLMinutes = 12 * 60
	}
	if c.Pipeline.AutoConfirmIntervalMinutes == 0 {
		c.Pipeline.AutoConfirmIntervalMinutes = 60
	}
	if c.Pipeline.AutoConfirmAfterHours == 0 {
		c.Pipeline.AutoConfirmAfterHours = 24
	}
	if c.Pipeline.MaxConfirmAttempts == 0 {
		c.Pipeline.MaxConfirmAttempts = 3
	}
	if c.Pipeline.RestorePollSeconds == 0 {
		c.Pipeline.RestorePollSeconds = 60
	}
	if c.Pipeline.RestorePollIterations == 0 {
		c.Pipeline.RestorePollIterations = 60
	}
	if c.Pipeline.DownloadRequestLimit == 0 {
		c.Pipeline.DownloadRequestLimit = 5
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "s3"
	}
}

// Validate rejects configurations the process must not start with.
func (c *Config) Validate() error {
	if c.Encryption.KeyHex == "" {
		return errors.New("encryption.key_hex is required")
	}
	if c.Accounting.FiscalYear == "" {
		return errors.New("accounting.fiscal_year is required")
	}
	if c.Storage.Backend != "s3" && c.Storage.Backend != "local" {
		return fmt.Errorf("storage.backend must be s3 or local, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "local" && c.Storage.LocalRoot == "" {
		return errors.New("storage.local_root is required for the local backend")
	}
	return nil
}
