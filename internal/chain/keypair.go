package chain

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

// LoadBackendKeypair reads the backend's signing key from path: a file
// holding the 32-byte private key as hex, optionally prefixed "0x" and
// with trailing whitespace (the same plain format the rest of this
// package's test fixtures use for keys).
func LoadBackendKeypair(path string) (*btcec.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read backend keypair file")
	}

	text := strings.TrimSpace(string(raw))
	text = strings.TrimPrefix(text, "0x")

	keyBytes, err := hex.DecodeString(text)
	if err != nil {
		return nil, errors.Wrap(err, "decode backend keypair hex")
	}
	if len(keyBytes) != 32 {
		return nil, errors.Errorf("backend keypair must be 32 bytes, got %d", len(keyBytes))
	}

	priv, _ := btcec.PrivKeyFromBytes(keyBytes)
	return priv, nil
}
