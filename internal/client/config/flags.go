package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the server")
	fs.StringVar(&cfg.CACertFile, "t", cfg.CACertFile, "CA certificate file")

	if err := flagx.ParseFiltered(fs, args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
