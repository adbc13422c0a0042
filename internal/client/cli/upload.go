package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/mailseal/internal/client/keys"
	"github.com/dmitrijs2005/mailseal/internal/flagx"
)

// cmdUpload seals a file for two recipients and uploads it.
//
// Flags:
//
//	-file string  path of the file to upload (required)
//	-name string  filename to seal into the envelope (default: base of -file)
//	-mime string  MIME type to record
//	-opub string  owner public key PEM (required)
//	-cpub string  counterparty public key PEM (required)
func (app *App) cmdUpload(ctx context.Context, args []string) error {

	args = flagx.FilterArgs(args, []string{"-file", "-name", "-mime", "-opub", "-cpub"})

	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	file := fs.String("file", "", "file to upload")
	name := fs.String("name", "", "filename to seal (default: base of -file)")
	mime := fs.String("mime", "application/octet-stream", "MIME type")
	ownerPub := fs.String("opub", "", "owner public key PEM")
	counterpartyPub := fs.String("cpub", "", "counterparty public key PEM")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" || *ownerPub == "" || *counterpartyPub == "" {
		return fmt.Errorf("upload requires -file, -opub and -cpub")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	filename := *name
	if filename == "" {
		filename = filepath.Base(*file)
	}

	ownerKey, err := keys.LoadPublicKey(*ownerPub)
	if err != nil {
		return err
	}
	counterpartyKey, err := keys.LoadPublicKey(*counterpartyPub)
	if err != nil {
		return err
	}

	result, err := app.transfer.Upload(ctx, data, filename, *mime, ownerKey, counterpartyKey)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "uploaded %s (%d bytes, %d chunks)\nid: %s\n",
		filename, result.TotalSize, result.TotalChunks, result.ID)
	return nil
}
