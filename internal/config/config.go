// Package config loads querydesk settings from a config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. QUERYDESK_LOG_JSON.
const EnvPrefix = "QUERYDESK"

// Vault key sources.
const (
	VaultSourceKeyring    = "keyring"
	VaultSourcePassphrase = "passphrase"
)

// Config holds the application settings.
type Config struct {
	DataDir        string        `mapstructure:"data_dir"`
	DatabaseFile   string        `mapstructure:"database_file"`
	User           string        `mapstructure:"user"`
	LogJSON        bool          `mapstructure:"log_json"`
	LogLevel       string        `mapstructure:"log_level"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Vault          VaultConfig   `mapstructure:"vault"`
}

// VaultConfig selects where the secret-encryption key comes from.
type VaultConfig struct {
	Source         string `mapstructure:"source"`
	KeyringService string `mapstructure:"keyring_service"`
	Passphrase     string `mapstructure:"passphrase"`
}

// DatabasePath returns the absolute path of the metadata database.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.DatabaseFile) {
		return c.DatabaseFile
	}
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// defaultDataDir returns $HOME/.querydesk, or .querydesk when no home is set.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".querydesk"
	}
	return filepath.Join(home, ".querydesk")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("database_file", "app.db")
	v.SetDefault("user", "admin")
	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("connect_timeout", 30*time.Second)
	v.SetDefault("vault.source", VaultSourceKeyring)
	v.SetDefault("vault.keyring_service", "querydesk")
	v.SetDefault("vault.passphrase", "")
}

// Load reads configuration. cfgFile, when set, overrides the search for
// config.yaml in $HOME/.querydesk and the working directory. flags may be nil;
// any flag whose name matches a config key takes precedence over file and env.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(defaultDataDir())
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindFlags maps dashed flag names onto underscored config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !isConfigKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func isConfigKey(key string) bool {
	switch key {
	case "data_dir", "database_file", "user", "log_json", "log_level", "connect_timeout":
		return true
	}
	return false
}

func (c Config) validate() error {
	switch c.Vault.Source {
	case VaultSourceKeyring:
		if c.Vault.KeyringService == "" {
			return fmt.Errorf("vault.keyring_service is required for the keyring source")
		}
	case VaultSourcePassphrase:
		if c.Vault.Passphrase == "" {
			return fmt.Errorf("vault.passphrase is required for the passphrase source")
		}
	default:
		return fmt.Errorf("unsupported vault.source %q: use %q or %q", c.Vault.Source, VaultSourceKeyring, VaultSourcePassphrase)
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must not be negative")
	}
	return nil
}
