package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// WrapKey encrypts the symmetric content key under a recipient public key
// using RSA-OAEP. Each envelope wraps the same key twice: once for the
// owner, once for the counterparty, so the owner can read back their own
// uploads without the counterparty's private key.
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: key wrap: %v", ErrEncryption, err)
	}
	return wrapped, nil
}

// UnwrapKey decrypts a wrapped content key with the reader's private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	return key, nil
}
