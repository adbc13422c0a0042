// Package cli implements the mailseal command-line client. One invocation
// runs one command: upload, download, status, delete, or quota. Global
// flags (-a server address, -t access token) may appear anywhere on the
// command line; each command additionally parses its own flags.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/mailseal/internal/client/api"
	"github.com/dmitrijs2005/mailseal/internal/client/config"
	"github.com/dmitrijs2005/mailseal/internal/client/services"
)

type App struct {
	config   *config.Config
	api      *api.Client
	transfer *services.TransferService
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient := api.NewClient(c.ServerEndpointAddr, c.AccessToken)
	return &App{
		config:   c,
		api:      apiClient,
		transfer: services.NewTransferService(apiClient),
		out:      os.Stdout,
	}, nil
}

const usage = `usage: mailseal <command> [flags]

commands:
  upload    seal a file and upload it
  download  download an attachment and open it
  status    show the upload progress of an attachment
  delete    delete an attachment
  quota     show storage usage

global flags:
  -a string  server address (default http://127.0.0.1:8080)
  -t string  access token
`

// Run dispatches one command. args is the command line after the binary
// name.
func (app *App) Run(ctx context.Context, args []string) error {

	if len(args) == 0 {
		fmt.Fprint(app.out, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "upload":
		return app.cmdUpload(ctx, args[1:])
	case "download":
		return app.cmdDownload(ctx, args[1:])
	case "status":
		return app.cmdStatus(ctx, args[1:])
	case "delete":
		return app.cmdDelete(ctx, args[1:])
	case "quota":
		return app.cmdQuota(ctx)
	default:
		fmt.Fprint(app.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}
