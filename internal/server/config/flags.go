package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mailseal/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-q int      default per-owner quota, bytes
//	-i int      reaper interval, minutes
//	-r int      stale upload retention, hours
//	-m          use in-memory repositories
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name (empty keeps ciphertext in the database)
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers (minutes or hours) and then
//     converted to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-q", "-i", "-r", "-m", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.Int64Var(&config.DefaultQuotaBytes, "q", config.DefaultQuotaBytes, "default per-owner quota (in bytes)")

	reapInterval := fs.Int("i", int(config.ReapInterval.Minutes()), "reaper interval (in minutes)")
	retention := fs.Int("r", int(config.Retention.Hours()), "stale upload retention (in hours)")

	fs.BoolVar(&config.InMemory, "m", config.InMemory, "use in-memory repositories")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReapInterval = time.Duration(*reapInterval) * time.Minute
	config.Retention = time.Duration(*retention) * time.Hour
}
