package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ValidationMode selects how sidebar indexes are checked when decoded.
type ValidationMode string

const (
	ValidationStrict  ValidationMode = "strict"
	ValidationLenient ValidationMode = "lenient"
)

// Enabled reports whether decoded indexes must pass validation.
func (m ValidationMode) Enabled() bool {
	return m != ValidationLenient
}

type SidebarConfig struct {
	Validation ValidationMode `mapstructure:"validation"`
}

type DocsConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the fetch timeout as a duration.
func (d DocsConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

type DaemonConfig struct {
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
	CrateCacheSize    int `mapstructure:"crate_cache_size"`
}

type Config struct {
	Sidebar SidebarConfig `mapstructure:"sidebar"`
	Docs    DocsConfig    `mapstructure:"docs"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
}

// cacheBase returns the base cache directory for ferrisnav.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/ferrisnav as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "ferrisnav")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".cache", "ferrisnav")
	}
	return filepath.Join(os.TempDir(), "ferrisnav")
}

// DBPath returns the path to the SQLite catalog.
func DBPath() string {
	return filepath.Join(cacheBase(), "catalog.db")
}

// CASDir returns the path to the content-addressable storage directory.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// JSONCacheDir returns the path to the rustdoc JSON cache directory.
func JSONCacheDir() string {
	return filepath.Join(cacheBase(), "json")
}

// LogPath returns the path to the daemon's log file.
func LogPath() string {
	return filepath.Join(cacheBase(), "daemon.log")
}

func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "ferrisnav")
	}
	return filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), "ferrisnav")
}

// SocketPath returns the path to the daemon's unix socket.
func SocketPath() string {
	return filepath.Join(runtimeDir(), "daemon.sock")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "ferrisnav"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "ferrisnav"))
	}

	viper.SetDefault("sidebar.validation", string(ValidationStrict))
	viper.SetDefault("docs.base_url", "https://docs.rs")
	viper.SetDefault("docs.timeout_seconds", 60)
	viper.SetDefault("daemon.expiration_seconds", 600)
	viper.SetDefault("daemon.crate_cache_size", 32)

	viper.SetEnvPrefix("FERRISNAV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// stringToValidationModeHookFunc accepts strict/lenient in any case, plus
// booleans (true is strict).
func stringToValidationModeHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(ValidationMode("")) {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Bool:
			if data.(bool) {
				return ValidationStrict, nil
			}
			return ValidationLenient, nil
		case reflect.String:
			switch s := strings.ToLower(strings.TrimSpace(data.(string))); s {
			case "", "strict", "true", "on":
				return ValidationStrict, nil
			case "lenient", "false", "off":
				return ValidationLenient, nil
			default:
				return nil, fmt.Errorf("unknown validation mode %q (want strict or lenient)", s)
			}
		}
		return data, nil
	}
}

// Decode builds a Config from raw settings, as produced by viper.AllSettings.
func Decode(settings map[string]interface{}) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToValidationModeHookFunc(),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Sidebar.Validation == "" {
		config.Sidebar.Validation = ValidationStrict
	}
	return &config, nil
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}
	return Decode(viper.AllSettings())
}
