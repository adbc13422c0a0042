package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mailseal/internal/client/keys"
	"github.com/dmitrijs2005/mailseal/internal/envelope"
	"github.com/dmitrijs2005/mailseal/internal/flagx"
)

// cmdDownload fetches an attachment, opens the envelope, and writes the
// plaintext to disk.
//
// Flags:
//
//	-id string    attachment id (required)
//	-role string  reader role: owner or counterparty (default owner)
//	-key string   reader private key PEM (required)
//	-out string   output path (default: the sealed filename, or the id)
//	-fallback     also try the other wrapped key if the matching one fails
func (app *App) cmdDownload(ctx context.Context, args []string) error {

	args = flagx.FilterArgs(args, []string{"-id", "-role", "-key", "-out", "-fallback"})

	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	id := fs.String("id", "", "attachment id")
	roleName := fs.String("role", "owner", "reader role: owner or counterparty")
	keyPath := fs.String("key", "", "private key PEM")
	out := fs.String("out", "", "output path")
	fallback := fs.Bool("fallback", false, "try the alternate wrapped key on mismatch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id == "" || *keyPath == "" {
		return fmt.Errorf("download requires -id and -key")
	}

	var role envelope.Role
	switch *roleName {
	case "owner":
		role = envelope.RoleOwner
	case "counterparty":
		role = envelope.RoleCounterparty
	default:
		return fmt.Errorf("unknown role %q", *roleName)
	}

	priv, err := keys.LoadPrivateKey(*keyPath)
	if err != nil {
		return err
	}

	var opts []envelope.OpenOption
	if *fallback {
		opts = append(opts, envelope.WithKeyFallback())
	}

	opened, err := app.transfer.Download(ctx, *id, role, priv, opts...)
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = opened.Filename
	}
	if target == "" {
		target = *id
	}
	if opened.FilenameErr != nil {
		fmt.Fprintf(app.out, "warning: filename could not be decrypted: %v\n", opened.FilenameErr)
	}

	if err := os.WriteFile(target, opened.Data, 0o600); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	fmt.Fprintf(app.out, "downloaded %d bytes to %s\n", len(opened.Data), target)
	return nil
}
