// ABOUTME: Tests for configuration loading
// ABOUTME: Verifies precedence of defaults, config file, .env and environment

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir and working directory at fresh temp dirs
// and clears every APIKEYS_ variable for the duration of the test.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{EnvAPIURL, EnvSessionFile, EnvTimeout, EnvLogLevel, EnvDebug} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
	return filepath.Join(xdg, appDirName)
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, filepath.Join(dir, "session"), cfg.SessionFile)
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
api_url: https://keys.example.com
timeout: 5s
log_level: debug
debug: true
`), 0600))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://keys.example.com", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example.com\n"), 0600))
	t.Setenv(EnvAPIURL, "https://env.example.com")
	t.Setenv(EnvTimeout, "90s")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvSessionFile, "/tmp/apikeys-session")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/apikeys-session", cfg.SessionFile)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("APIKEYS_API_URL=http://dotenv.example.com:5000\n"), 0600))
	t.Cleanup(func() { os.Unsetenv(EnvAPIURL) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example.com:5000", cfg.APIURL)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTimeout, "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIURL, "localhost:5000")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateAPIURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://localhost:5000", false},
		{"https://keys.example.com", false},
		{"ftp://keys.example.com", true},
		{"keys.example.com", true},
		{"http://", true},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			err := ValidateAPIURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
