// ABOUTME: Configuration loader for the apikeys client
// ABOUTME: Merges defaults, YAML config file, .env file and environment variables

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sumitbondd/api-key-manager/internal/session"
)

// Environment variables recognised by Load
const (
	EnvAPIURL      = "APIKEYS_API_URL"
	EnvSessionFile = "APIKEYS_SESSION_FILE"
	EnvTimeout     = "APIKEYS_TIMEOUT"
	EnvLogLevel    = "APIKEYS_LOG_LEVEL"
	EnvDebug       = "APIKEYS_DEBUG"
)

// Defaults
const (
	DefaultAPIURL  = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second
	appDirName     = "apikeys"
	configFileName = "config.yaml"
)

// Config holds client settings
type Config struct {
	APIURL      string        `yaml:"api_url"`
	SessionFile string        `yaml:"session_file"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	Debug       bool          `yaml:"debug"`

	// Dir is the config directory; debug.log lives here
	Dir string `yaml:"-"`
}

// Dir returns the config directory under XDG_CONFIG_HOME or ~/.config
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDirName)
}

// Load builds the configuration. An empty path means the default config file,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	dir := Dir()
	cfg := &Config{
		APIURL:   DefaultAPIURL,
		Timeout:  DefaultTimeout,
		LogLevel: "info",
		Dir:      dir,
	}

	explicit := path != ""
	if !explicit && dir != "" {
		path = filepath.Join(dir, configFileName)
	}
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.SessionFile == "" && dir != "" {
		cfg.SessionFile = session.DefaultPath(dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv(EnvAPIURL, c.APIURL)
	c.SessionFile = getEnv(EnvSessionFile, c.SessionFile)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.Debug = getEnvBool(EnvDebug, c.Debug)

	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 30s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	if err := ValidateAPIURL(c.APIURL); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.SessionFile == "" {
		return fmt.Errorf("session file location is unknown; set %s", EnvSessionFile)
	}
	return nil
}

// ValidateAPIURL requires an absolute http or https URL
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API URL must start with http:// or https://, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("API URL %q has no host", raw)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
