package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.DatabaseDSN = filepath.Join(dir, "vault.db")
	c.LogDir = filepath.Join(dir, "logs")
	c.BackupDir = filepath.Join(dir, "backups")
	c.BackupInterval = 0
	return c
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}

	_, err = os.Stat(c.DatabaseDSN)
	assert.NoError(t, err, "database file should exist")
	_, err = os.Stat(filepath.Join(c.LogDir, "server.log"))
	assert.NoError(t, err, "log file should exist")
}

func TestApp_RunReportsServerFailure(t *testing.T) {
	c := testConfig(t)
	c.ListenAddr = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop after server failure")
	}
}

func TestNewApp_BadStorage(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = filepath.Join(t.TempDir(), "missing", "dir", "vault.db")

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}
