package keystore

import (
	"fmt"
	"os"
	"strings"

	"github.com/0xPolygon/custody-gateway/helper/hex"
)

type createFn func() ([]byte, error)

// CreateIfNotExists returns the key material stored at path. A missing file is
// first created from the output of create. Keys are stored hex encoded.
func CreateIfNotExists(path string, create createFn) ([]byte, error) {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat (%s): %w", path, err)
	}

	if os.IsNotExist(err) {
		keyBuff, err := create()
		if err != nil {
			return nil, fmt.Errorf("unable to generate private key, %w", err)
		}

		if err = os.WriteFile(path, []byte(hex.EncodeToHex(keyBuff)), 0600); err != nil {
			return nil, fmt.Errorf("unable to write private key to disk (%s), %w", path, err)
		}

		return keyBuff, nil
	}

	return Read(path)
}

// Read reads a hex encoded key from path
func Read(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key from disk (%s), %w", path, err)
	}

	keyBuff, err := hex.DecodeHex(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("unable to decode private key (%s), %w", path, err)
	}

	return keyBuff, nil
}
