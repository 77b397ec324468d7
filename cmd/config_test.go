package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"BACKEND_URL", "STORE", "DB_PATH", "TIMEOUT", "DOWNLOAD_TIMEOUT", "RENEWAL_INTERVAL", "DOWNLOAD_RATE_LIMIT"} {
		t.Setenv(envPrefix+"_"+key, "")
		require.NoError(t, os.Unsetenv(envPrefix+"_"+key))
	}
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("backend", "", "")
	fs.String("store", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := loadConfig("", testFlags(t))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, storeSQLite, cfg.Store)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".pldl", "pldl.db"), cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.DownloadTimeout)
	assert.Equal(t, 60*time.Second, cfg.RenewalInterval)
	assert.Equal(t, int64(0), cfg.DownloadRateLimit)
}

func TestLoadConfig_Precedence(t *testing.T) {
	isolateEnv(t)
	file := filepath.Join(t.TempDir(), "pldl.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"backend_url: https://file.example.com/\n"+
			"store: keyring\n"+
			"timeout: 10s\n"+
			"renewal_interval: 2m\n"), 0o600))
	t.Setenv("PLDL_TIMEOUT", "45s")
	t.Setenv("PLDL_DOWNLOAD_RATE_LIMIT", "1048576")

	cfg, err := loadConfig(file, testFlags(t, "--backend", "https://flag.example.com"))

	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.BackendURL, "flags win over the file")
	assert.Equal(t, storeKeyring, cfg.Store, "the file wins over defaults")
	assert.Equal(t, 45*time.Second, cfg.Timeout, "the environment wins over the file")
	assert.Equal(t, 2*time.Minute, cfg.RenewalInterval)
	assert.Equal(t, int64(1048576), cfg.DownloadRateLimit)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad store", nil, []string{"--store", "s3"}},
		{"bad scheme", nil, []string{"--backend", "ftp://example.com"}},
		{"no host", nil, []string{"--backend", "http://"}},
		{"zero timeout", map[string]string{"PLDL_TIMEOUT": "0s"}, nil},
		{"zero renewal interval", map[string]string{"PLDL_RENEWAL_INTERVAL": "0s"}, nil},
		{"negative download timeout", map[string]string{"PLDL_DOWNLOAD_TIMEOUT": "-1s"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig("", testFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_DiscoversFileInConfigDir(t *testing.T) {
	isolateEnv(t)
	dir := filepath.Join(os.Getenv("HOME"), ".pldl")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pldl.yaml"), []byte(
		"backend_url: https://found.example.com\n"+
			"store: memory\n"), 0o600))

	cfg, err := loadConfig("", testFlags(t))

	require.NoError(t, err)
	assert.Equal(t, "https://found.example.com", cfg.BackendURL)
	assert.Equal(t, storeMemory, cfg.Store)
}

func TestLoadConfig_BrokenDiscoveredFile(t *testing.T) {
	isolateEnv(t)
	dir := filepath.Join(os.Getenv("HOME"), ".pldl")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pldl.yaml"), []byte("backend_url: [unclosed\n"), 0o600))

	_, err := loadConfig("", testFlags(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	isolateEnv(t)
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
