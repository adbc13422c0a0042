package cli

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	clientconfig "github.com/dmitrijs2005/mailseal/internal/client/config"
	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/access"
	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/auth"
	"github.com/dmitrijs2005/mailseal/internal/server/httpapi"
	"github.com/dmitrijs2005/mailseal/internal/server/messages"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret"

func startBackend(t *testing.T) *httptest.Server {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	qs := quota.NewService(quota.NewInMemoryRepository(int64(1)<<30), logger)
	guard := access.NewGuard(messages.NewInMemoryRepository())
	as := attachments.NewService(attachments.NewInMemoryRepository(), qs, guard, logger)

	srv, err := httpapi.NewServer(":0", logger, as, qs, testSecret)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newTestApp(t *testing.T, serverURL, userID string) (*App, *bytes.Buffer) {
	t.Helper()

	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	app, err := NewApp(&clientconfig.Config{ServerEndpointAddr: serverURL, AccessToken: token})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	app.out = out
	return app, out
}

func writeKeyPair(t *testing.T, dir, name string) (privPath, pubPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	privPath = filepath.Join(dir, name+"_priv.pem")
	pubPath = filepath.Join(dir, name+"_pub.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))
	return privPath, pubPath
}

func TestApp_UnknownCommand(t *testing.T) {
	ts := startBackend(t)
	app, _ := newTestApp(t, ts.URL, "alice")

	err := app.Run(context.Background(), []string{"frobnicate"})
	assert.Error(t, err)

	err = app.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestApp_UploadDownloadCycle(t *testing.T) {
	ts := startBackend(t)
	ctx := context.Background()
	dir := t.TempDir()

	alicePriv, alicePub := writeKeyPair(t, dir, "alice")
	_, bobPub := writeKeyPair(t, dir, "bob")

	content := []byte("attachment body for the cli test")
	source := filepath.Join(dir, "letter.txt")
	require.NoError(t, os.WriteFile(source, content, 0o600))

	app, out := newTestApp(t, ts.URL, "alice")

	err := app.Run(ctx, []string{"upload", "-file", source, "-mime", "text/plain", "-opub", alicePub, "-cpub", bobPub})
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "letter.txt")

	// the id is the last token of the output
	fields := bytes.Fields(out.Bytes())
	id := string(fields[len(fields)-1])

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"status", "-id", id}))
	assert.Contains(t, out.String(), "completed")

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"quota"}))
	assert.Contains(t, out.String(), "used:")

	target := filepath.Join(dir, "downloaded.txt")
	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"download", "-id", id, "-role", "owner", "-key", alicePriv, "-out", target}))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"delete", "-id", id}))

	err = app.Run(ctx, []string{"status", "-id", id})
	assert.Error(t, err)
}

func TestApp_UploadMissingFlags(t *testing.T) {
	ts := startBackend(t)
	app, _ := newTestApp(t, ts.URL, "alice")

	err := app.Run(context.Background(), []string{"upload", "-file", "x.bin"})
	assert.Error(t, err)

	err = app.Run(context.Background(), []string{"download", "-id", "abc"})
	assert.Error(t, err)
}
