package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// JsonConfig is the on-disk shape of the config file. Absent keys keep the
// values loaded before the file.
type JsonConfig struct {
	ServerEndpointAddr string `json:"server_endpoint_addr"`
	CACertFile         string `json:"ca_cert_file"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	jc := JsonConfig{ServerEndpointAddr: cfg.ServerEndpointAddr, CACertFile: cfg.CACertFile}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.CACertFile = jc.CACertFile
	return nil
}
