package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ika-labs/ika/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized configuration keys.
const (
	KeySuiBinary        = "sui.binary"
	KeySuiMinVersion    = "sui.min_version"
	KeyNpmBinary        = "npm.binary"
	KeyGitBinary        = "git.binary"
	KeyValidatorAddress = "validator.address"
	KeyProbeRetries     = "validator.probe_retries"
	KeyProbeInterval    = "validator.probe_interval"
)

// Default values applied before the config file and environment are read.
const (
	DefaultSuiBinary        = "sui"
	DefaultNpmBinary        = "npm"
	DefaultGitBinary        = "git"
	DefaultValidatorAddress = "127.0.0.1:9000"
	DefaultProbeRetries     = 30
	DefaultProbeInterval    = time.Second
)

// Settings is a typed snapshot of the loaded configuration.
type Settings struct {
	SuiBinary        string
	SuiMinVersion    string
	NpmBinary        string
	GitBinary        string
	ValidatorAddress string
	ProbeRetries     int
	ProbeInterval    time.Duration
}

// Dir returns the path to the user config directory (~/.ika/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.ika/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// IKA_VALIDATOR_ADDRESS overrides validator.address, and so on.
func Load() {
	setDefaults()
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault(KeySuiBinary, DefaultSuiBinary)
	viper.SetDefault(KeySuiMinVersion, "")
	viper.SetDefault(KeyNpmBinary, DefaultNpmBinary)
	viper.SetDefault(KeyGitBinary, DefaultGitBinary)
	viper.SetDefault(KeyValidatorAddress, DefaultValidatorAddress)
	viper.SetDefault(KeyProbeRetries, DefaultProbeRetries)
	viper.SetDefault(KeyProbeInterval, DefaultProbeInterval)
}

// Current returns the typed settings. Load must be called first.
func Current() Settings {
	s := Settings{
		SuiBinary:        viper.GetString(KeySuiBinary),
		SuiMinVersion:    viper.GetString(KeySuiMinVersion),
		NpmBinary:        viper.GetString(KeyNpmBinary),
		GitBinary:        viper.GetString(KeyGitBinary),
		ValidatorAddress: viper.GetString(KeyValidatorAddress),
		ProbeRetries:     viper.GetInt(KeyProbeRetries),
		ProbeInterval:    viper.GetDuration(KeyProbeInterval),
	}
	if s.ProbeRetries < 0 {
		s.ProbeRetries = 0
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = DefaultProbeInterval
	}
	return s
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Keys returns every known key in sorted order.
func Keys() []string {
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
