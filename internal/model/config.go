package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// KeyringConfig controls where the credential master key is stored.
type KeyringConfig struct {
	// FileDir is the fallback directory for the file-backed keyring.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// AppConfig is the application-level configuration, distinct from the
// per-roadmap DatasourceConfig rows kept in the store.
type AppConfig struct {
	// DBPath locates the SQLite database holding datasource rows.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// HTTPTimeoutSec bounds every call to the external tracker.
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	Keyring KeyringConfig `mapstructure:"keyring" yaml:"keyring"`
}

// HTTPTimeout returns the tracker request timeout as a duration.
func (c *AppConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/roadmap/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "roadmap", "config.yaml")
}

func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".config", "roadmap")
	return &AppConfig{
		DBPath:         filepath.Join(base, "roadmap.db"),
		HTTPTimeoutSec: 30,
		Keyring: KeyringConfig{
			FileDir: filepath.Join(base, "credentials"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("http_timeout_sec", def.HTTPTimeoutSec)
	v.SetDefault("keyring.file_dir", def.Keyring.FileDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("http_timeout_sec", cfg.HTTPTimeoutSec)
	v.Set("keyring", cfg.Keyring)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
