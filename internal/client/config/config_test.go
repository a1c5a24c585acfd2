package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:5039", c.ServerEndpointAddr)
	assert.Empty(t, c.CACertFile)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
	}{
		{name: "address and CA", args: []string{"-a", "vault.example:443", "-t", "ca.pem"},
			expected: &Config{ServerEndpointAddr: "vault.example:443", CACertFile: "ca.pem"}},
		{name: "equals form", args: []string{"-a=10.0.0.1:5039"},
			expected: &Config{ServerEndpointAddr: "10.0.0.1:5039"}},
		{name: "foreign flags ignored", args: []string{"-x", "1", "-config", "c.json"},
			expected: &Config{ServerEndpointAddr: "127.0.0.1:5039"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.LoadDefaults()
			require.NoError(t, parseFlags(c, tt.args))
			assert.Empty(t, cmp.Diff(tt.expected, c))
		})
	}
}

func TestLoadConfig_JsonThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr":"json:1","ca_cert_file":"json-ca.pem"}`), 0o600))

	c, err := LoadConfig([]string{"-c", path, "-a", "flag:2"})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(&Config{ServerEndpointAddr: "flag:2", CACertFile: "json-ca.pem"}, c))
}

func TestLoadConfig_JsonKeepsAbsentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ca_cert_file":"ca.pem"}`), 0o600))

	c, err := LoadConfig([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5039", c.ServerEndpointAddr)
	assert.Equal(t, "ca.pem", c.CACertFile)
}

func TestLoadConfig_BadJson(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadConfig([]string{"-c", path})
	require.Error(t, err)
}
