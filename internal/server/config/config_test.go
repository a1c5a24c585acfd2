package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "0.0.0.0:5039", c.ListenAddr)
	assert.Equal(t, "gophvault.db", c.DatabaseDSN)
	assert.Equal(t, "backups", c.BackupDir)
	assert.Equal(t, 6*time.Hour, c.BackupInterval)
	assert.Equal(t, 10, c.MaxBackups)
	assert.Empty(t, c.S3Bucket)
}

func TestLoadConfig_NoArgs(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-t", "cert.pem", "-k", "key.pem", "-d", "postgres://db", "-l", "logs",
				"-b", "snap", "-i", "0", "-m", "3", "-u", "user", "-p", "password", "-g", "eu-west-1",
				"-e", "http://minio:9000", "-s", "bucket",
			},
			expected: &Config{
				ListenAddr:     "127.0.0.1:9090",
				TLSCertFile:    "cert.pem",
				TLSKeyFile:     "key.pem",
				DatabaseDSN:    "postgres://db",
				LogDir:         "logs",
				BackupDir:      "snap",
				BackupInterval: 0,
				MaxBackups:     3,
				S3RootUser:     "user",
				S3RootPassword: "password",
				S3Region:       "eu-west-1",
				S3BaseEndpoint: "http://minio:9000",
				S3Bucket:       "bucket",
			},
		},
		{
			name: "unknown flags ignored",
			args: []string{"-c", "x.json", "-z", "-i", "12"},
			expected: func() *Config {
				c := defaults()
				c.BackupInterval = 12 * time.Hour
				return c
			}(),
		},
		{name: "bad number", args: []string{"-m", "many"}, wantErr: true},
		{name: "negative interval", args: []string{"-i", "-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			err := parseFlags(c, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, c))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"listen_addr":           "www.example:9000",
		"database_dsn":          "vault.db",
		"backup_interval_hours": 24,
		"s3_bucket":             "bucket",
	})

	c := defaults()
	require.NoError(t, parseJson(c, []string{"-config", path}))

	want := defaults()
	want.ListenAddr = "www.example:9000"
	want.DatabaseDSN = "vault.db"
	want.BackupInterval = 24 * time.Hour
	want.S3Bucket = "bucket"
	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseJson_Errors(t *testing.T) {
	require.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	require.Error(t, parseJson(defaults(), []string{"-c", bad}))

	neg := writeTempJSON(t, map[string]any{"max_backups": -1})
	require.Error(t, parseJson(defaults(), []string{"-c", neg}))
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"listen_addr": "json:1", "log_dir": "json-logs"})

	c, err := LoadConfig([]string{"-c", path, "-a", "flag:2"})
	require.NoError(t, err)
	assert.Equal(t, "flag:2", c.ListenAddr)
	assert.Equal(t, "json-logs", c.LogDir)
}
