// Package config handles configuration for the mailseal CLI, including
// defaults, environment overlay, and command-line flags.
package config

// Config holds runtime settings for the mailseal CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the attachment server HTTP API.
//   - AccessToken: Bearer token identifying the requester. Issued by the
//     messaging backend's session service; the CLI only carries it.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.AccessToken = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
