package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePEM(t *testing.T, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadKeys_RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	t.Run("PKCS8 private / PKIX public", func(t *testing.T) {
		privDER, err := x509.MarshalPKCS8PrivateKey(priv)
		require.NoError(t, err)
		pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		require.NoError(t, err)

		gotPriv, err := LoadPrivateKey(writePEM(t, "priv.pem", "PRIVATE KEY", privDER))
		require.NoError(t, err)
		assert.True(t, gotPriv.Equal(priv))

		gotPub, err := LoadPublicKey(writePEM(t, "pub.pem", "PUBLIC KEY", pubDER))
		require.NoError(t, err)
		assert.True(t, gotPub.Equal(&priv.PublicKey))
	})

	t.Run("PKCS1 forms", func(t *testing.T) {
		gotPriv, err := LoadPrivateKey(writePEM(t, "priv1.pem", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(priv)))
		require.NoError(t, err)
		assert.True(t, gotPriv.Equal(priv))

		gotPub, err := LoadPublicKey(writePEM(t, "pub1.pem", "RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&priv.PublicKey)))
		require.NoError(t, err)
		assert.True(t, gotPub.Equal(&priv.PublicKey))
	})
}

func TestLoadKeys_Errors(t *testing.T) {
	_, err := LoadPublicKey(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)

	notPEM := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(notPEM, []byte("not a key"), 0o600))
	_, err = LoadPublicKey(notPEM)
	assert.Error(t, err)
	_, err = LoadPrivateKey(notPEM)
	assert.Error(t, err)

	// wrong block type
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	path := writePEM(t, "cert.pem", "CERTIFICATE", x509.MarshalPKCS1PrivateKey(priv))
	_, err = LoadPrivateKey(path)
	assert.Error(t, err)
}
