package config

// Config holds runtime settings for the gophvault client.
type Config struct {
	ServerEndpointAddr string
	CACertFile         string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:5039"
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
