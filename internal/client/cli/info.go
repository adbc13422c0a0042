package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/mailseal/internal/flagx"
)

func parseIDFlag(name string, args []string) (string, error) {
	args = flagx.FilterArgs(args, []string{"-id"})

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("id", "", "attachment id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *id == "" {
		return "", fmt.Errorf("%s requires -id", name)
	}
	return *id, nil
}

func (app *App) cmdStatus(ctx context.Context, args []string) error {

	id, err := parseIDFlag("status", args)
	if err != nil {
		return err
	}

	status, err := app.api.GetStatus(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "status: %s\nchunks: %d/%d uploaded\n",
		status.Status, len(status.UploadedIndices), status.TotalChunks)
	return nil
}

func (app *App) cmdDelete(ctx context.Context, args []string) error {

	id, err := parseIDFlag("delete", args)
	if err != nil {
		return err
	}

	if err := app.api.DeleteAttachment(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(app.out, "deleted %s\n", id)
	return nil
}

func (app *App) cmdQuota(ctx context.Context) error {

	q, err := app.api.GetQuota(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "used: %d bytes\nlimit: %d bytes\n", q.UsedBytes, q.LimitBytes)
	return nil
}
