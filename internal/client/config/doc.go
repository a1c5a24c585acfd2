// Package config loads runtime configuration for the gophvault client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (LoadDefaults).
//  2. An optional JSON file named with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   address:port of the server
//	-t string   CA certificate used to verify the server (empty: plaintext)
//
// JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:5039",
//	  "ca_cert_file": "ca.pem"
//	}
package config
