package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags overlays command-line flags on config.
//
//	-a string   listen address
//	-t string   TLS certificate file
//	-k string   TLS key file
//	-d string   storage DSN (SQLite path or postgres:// URL)
//	-l string   log directory
//	-b string   backup directory
//	-i int      backup interval, hours (0 disables)
//	-m int      max backups kept (0 keeps all)
//	-u string   S3 user
//	-p string   S3 password
//	-g string   S3 region
//	-e string   S3 endpoint
//	-s string   S3 bucket (empty disables the mirror)
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.TLSCertFile, "t", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "k", config.TLSKeyFile, "TLS key file")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "storage DSN")
	fs.StringVar(&config.LogDir, "l", config.LogDir, "log directory")
	fs.StringVar(&config.BackupDir, "b", config.BackupDir, "backup directory")
	interval := fs.Int("i", int(config.BackupInterval/time.Hour), "backup interval (in hours)")
	fs.IntVar(&config.MaxBackups, "m", config.MaxBackups, "max backups kept")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")
	fs.StringVar(&config.S3Bucket, "s", config.S3Bucket, "S3 bucket")

	if err := flagx.ParseFiltered(fs, args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *interval < 0 || config.MaxBackups < 0 {
		return fmt.Errorf("parse flags: -i and -m must not be negative")
	}

	config.BackupInterval = time.Duration(*interval) * time.Hour
	return nil
}
