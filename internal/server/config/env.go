package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file
// in the working directory is loaded first, without overriding variables
// already present in the environment.
//
// Recognized variables:
//
//	ADDRESS              HTTP bind address
//	DATABASE_DSN         PostgreSQL DSN
//	SECRET_KEY           JWT HMAC secret
//	DEFAULT_QUOTA_BYTES  per-owner quota in bytes
//	REAP_INTERVAL        reaper tick, Go duration string (e.g. "1h")
//	RETENTION            stale upload retention, Go duration string
//	IN_MEMORY            "true" to use in-memory repositories
//	S3_ROOT_USER         S3 root user
//	S3_ROOT_PASSWORD     S3 root password
//	S3_BUCKET            S3 bucket (empty keeps ciphertext in the database)
//	S3_REGION            S3 region
//	S3_BASE_ENDPOINT     S3 base endpoint
//
// Malformed numeric or duration values are ignored and the previous value
// is kept.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.EndpointAddr = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("DEFAULT_QUOTA_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.DefaultQuotaBytes = n
		}
	}
	if v, ok := os.LookupEnv("REAP_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReapInterval = d
		}
	}
	if v, ok := os.LookupEnv("RETENTION"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.Retention = d
		}
	}
	if v, ok := os.LookupEnv("IN_MEMORY"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.InMemory = b
		}
	}
	if v, ok := os.LookupEnv("S3_ROOT_USER"); ok {
		config.S3RootUser = v
	}
	if v, ok := os.LookupEnv("S3_ROOT_PASSWORD"); ok {
		config.S3RootPassword = v
	}
	if v, ok := os.LookupEnv("S3_BUCKET"); ok {
		config.S3Bucket = v
	}
	if v, ok := os.LookupEnv("S3_REGION"); ok {
		config.S3Region = v
	}
	if v, ok := os.LookupEnv("S3_BASE_ENDPOINT"); ok {
		config.S3BaseEndpoint = v
	}
}
