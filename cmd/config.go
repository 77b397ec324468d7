package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "PLDL"
	configName = "pldl"

	storeSQLite  = "sqlite"
	storeKeyring = "keyring"
	storeMemory  = "memory"
)

// Config holds the settings shared by all commands.
type Config struct {
	BackendURL        string        `mapstructure:"backend_url"`
	Store             string        `mapstructure:"store"`
	DBPath            string        `mapstructure:"db_path"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DownloadTimeout   time.Duration `mapstructure:"download_timeout"`
	RenewalInterval   time.Duration `mapstructure:"renewal_interval"`
	DownloadRateLimit int64         `mapstructure:"download_rate_limit"`
}

func configDir() string { return filepath.Join(os.Getenv("HOME"), ".pldl") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "http://localhost:5000")
	v.SetDefault("store", storeSQLite)
	v.SetDefault("db_path", filepath.Join(configDir(), "pldl.db"))
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("download_timeout", time.Duration(0))
	v.SetDefault("renewal_interval", 60*time.Second)
	v.SetDefault("download_rate_limit", 0)
}

// loadConfig merges defaults, the config file, PLDL_* environment variables and flags, in rising priority.
// Without cfgFile a pldl.yaml (or .toml, .json) is looked up in the working directory and then in ~/.pldl.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else {
			log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
		}
	}

	setDefaults(v)

	if flags != nil {
		for key, name := range map[string]string{"backend_url": "backend", "store": "store"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend URL %q", c.BackendURL)
	}

	c.Store = strings.ToLower(c.Store)
	switch c.Store {
	case storeSQLite, storeKeyring, storeMemory:
	default:
		return fmt.Errorf("unknown credential store %q (must be one of: sqlite, keyring, memory)", c.Store)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.DownloadTimeout < 0 {
		return fmt.Errorf("download timeout cannot be negative, got %s", c.DownloadTimeout)
	}
	if c.RenewalInterval <= 0 {
		return fmt.Errorf("renewal interval must be positive, got %s", c.RenewalInterval)
	}
	return nil
}
