// Package config loads vaulto.yaml, VAULTO_* environment variables and
// command-line flags into a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName    = "vaulto"
	configName = "vaulto"
	envPrefix  = "VAULTO"
)

type VaultConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type KeystoreConfig struct {
	// Backend is auto, keychain, file or memory.
	Backend string `mapstructure:"backend" yaml:"backend"`
	Alias   string `mapstructure:"alias" yaml:"alias"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AutoLockConfig struct {
	// Timeout of zero disables auto-lock.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type UnlockConfig struct {
	Burst    int           `mapstructure:"burst" yaml:"burst"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type GeneratorConfig struct {
	Length int `mapstructure:"length" yaml:"length"`
}

type HealthConfig struct {
	MaxAge      time.Duration `mapstructure:"max_age" yaml:"max_age"`
	BreachCheck bool          `mapstructure:"breach_check" yaml:"breach_check"`
	HIBPURL     string        `mapstructure:"hibp_url" yaml:"hibp_url"`
}

// Config is the full application configuration.
type Config struct {
	Vault     VaultConfig     `mapstructure:"vault" yaml:"vault"`
	Keystore  KeystoreConfig  `mapstructure:"keystore" yaml:"keystore"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	AutoLock  AutoLockConfig  `mapstructure:"autolock" yaml:"autolock"`
	Unlock    UnlockConfig    `mapstructure:"unlock" yaml:"unlock"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Health    HealthConfig    `mapstructure:"health" yaml:"health"`
}

// configDir is <user config dir>/vaulto.
func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// DefaultPath is where Write puts the config file when no path is given.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+".yaml"), nil
}

// DefaultVaultDir is the vault location used when vault.dir is unset.
func DefaultVaultDir() string {
	if dir, err := configDir(); err == nil {
		return filepath.Join(dir, "vault")
	}
	return ".vaulto"
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]any {
	return map[string]any{
		"vault.dir":           DefaultVaultDir(),
		"keystore.backend":    "auto",
		"keystore.alias":      "VaultoKeyAlias",
		"log.level":           "info",
		"log.format":          "text",
		"autolock.timeout":    5 * time.Minute,
		"unlock.burst":        5,
		"unlock.interval":     30 * time.Second,
		"generator.length":    16,
		"health.max_age":      90 * 24 * time.Hour,
		"health.breach_check": false,
		"health.hibp_url":     "https://api.pwnedpasswords.com/range/",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"dir":          "vault.dir",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"keystore":     "keystore.backend",
	"breach-check": "health.breach_check",
}

// Load resolves the configuration. Precedence, highest first: flags set on
// cmd, VAULTO_* environment variables, the config file, defaults. An
// explicit path must exist; otherwise vaulto.yaml is searched in the user
// config directory and the working directory, and may be absent.
func Load(cmd *cobra.Command, path string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Vault.Dir) == "" {
		return errors.New("vault.dir must not be empty")
	}
	switch c.Keystore.Backend {
	case "auto", "keychain", "file", "memory":
	default:
		return fmt.Errorf("keystore.backend %q is not one of auto, keychain, file, memory", c.Keystore.Backend)
	}
	if strings.TrimSpace(c.Keystore.Alias) == "" {
		return errors.New("keystore.alias must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", c.Log.Format)
	}
	if c.AutoLock.Timeout < 0 {
		return errors.New("autolock.timeout must not be negative")
	}
	if c.Unlock.Burst < 1 {
		return errors.New("unlock.burst must be at least 1")
	}
	if c.Unlock.Interval <= 0 {
		return errors.New("unlock.interval must be positive")
	}
	if c.Generator.Length < 4 || c.Generator.Length > 128 {
		return errors.New("generator.length must be between 4 and 128")
	}
	if c.Health.MaxAge <= 0 {
		return errors.New("health.max_age must be positive")
	}
	return nil
}

// Write stores c as YAML at path, or at DefaultPath when path is empty.
// The file is created with 0600 permissions.
func Write(path string, c Config) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
