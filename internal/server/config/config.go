// Package config handles configuration for the server component.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (LoadDefaults).
//  2. An optional JSON file named with -c or -config.
//  3. Command-line flags.
package config

import "time"

// Config holds runtime settings for the gophvault server.
//
// DatabaseDSN is either an SQLite file path (or "file:" URI) or a
// postgres:// URL. BackupInterval of zero disables backups; MaxBackups of
// zero keeps every snapshot. Snapshots are mirrored to S3 only when
// S3Bucket is set.
type Config struct {
	ListenAddr     string
	TLSCertFile    string
	TLSKeyFile     string
	DatabaseDSN    string
	LogDir         string
	BackupDir      string
	BackupInterval time.Duration
	MaxBackups     int
	S3RootUser     string
	S3RootPassword string
	S3Region       string
	S3BaseEndpoint string
	S3Bucket       string
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = "0.0.0.0:5039"
	c.DatabaseDSN = "gophvault.db"
	c.BackupDir = "backups"
	c.BackupInterval = 6 * time.Hour
	c.MaxBackups = 10
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config from defaults, the JSON file and the flags in
// args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
