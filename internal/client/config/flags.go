package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mailseal/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the attachment server (default from Config)
//	-t string   Bearer token for API requests
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with per-command
// flag sets.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address of the attachment server")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
