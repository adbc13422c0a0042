package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file
// in the working directory is loaded first, without overriding variables
// already present in the environment.
//
// Recognized variables:
//
//	MAILSEAL_ADDRESS  base URL of the attachment server
//	MAILSEAL_TOKEN    Bearer token for API requests
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("MAILSEAL_ADDRESS"); ok {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := os.LookupEnv("MAILSEAL_TOKEN"); ok {
		cfg.AccessToken = v
	}
}
