package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// JsonConfig is the on-disk shape of the config file. Absent keys keep the
// values loaded before the file.
type JsonConfig struct {
	ListenAddr          string `json:"listen_addr"`
	TLSCertFile         string `json:"tls_cert_file"`
	TLSKeyFile          string `json:"tls_key_file"`
	DatabaseDSN         string `json:"database_dsn"`
	LogDir              string `json:"log_dir"`
	BackupDir           string `json:"backup_dir"`
	BackupIntervalHours int    `json:"backup_interval_hours"`
	MaxBackups          int    `json:"max_backups"`
	S3RootUser          string `json:"s3_root_user"`
	S3RootPassword      string `json:"s3_root_password"`
	S3Region            string `json:"s3_region"`
	S3BaseEndpoint      string `json:"s3_base_endpoint"`
	S3Bucket            string `json:"s3_bucket"`
}

func parseJson(config *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := JsonConfig{
		ListenAddr:          config.ListenAddr,
		TLSCertFile:         config.TLSCertFile,
		TLSKeyFile:          config.TLSKeyFile,
		DatabaseDSN:         config.DatabaseDSN,
		LogDir:              config.LogDir,
		BackupDir:           config.BackupDir,
		BackupIntervalHours: int(config.BackupInterval / time.Hour),
		MaxBackups:          config.MaxBackups,
		S3RootUser:          config.S3RootUser,
		S3RootPassword:      config.S3RootPassword,
		S3Region:            config.S3Region,
		S3BaseEndpoint:      config.S3BaseEndpoint,
		S3Bucket:            config.S3Bucket,
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.BackupIntervalHours < 0 || c.MaxBackups < 0 {
		return fmt.Errorf("parse config %s: backup interval and max backups must not be negative", path)
	}

	config.ListenAddr = c.ListenAddr
	config.TLSCertFile = c.TLSCertFile
	config.TLSKeyFile = c.TLSKeyFile
	config.DatabaseDSN = c.DatabaseDSN
	config.LogDir = c.LogDir
	config.BackupDir = c.BackupDir
	config.BackupInterval = time.Duration(c.BackupIntervalHours) * time.Hour
	config.MaxBackups = c.MaxBackups
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3Bucket = c.S3Bucket
	return nil
}
