package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ed25519"

	"github.com/0xPolygon/custody-gateway/helper/keystore"
	"github.com/0xPolygon/custody-gateway/types"
)

// Key is an ed25519 signing key of a local-network identity
type Key struct {
	priv ed25519.PrivateKey
}

// GenerateKey generates a new random key
func GenerateKey() (*Key, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &Key{priv: priv}, nil
}

// NewKeyFromSeed creates a key from a 32 byte seed
func NewKeyFromSeed(seed []byte) (*Key, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length %d, expected %d", len(seed), ed25519.SeedSize)
	}

	return &Key{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Identity returns the public identity of the key
func (k *Key) Identity() types.Identity {
	pub, _ := k.priv.Public().(ed25519.PublicKey)

	return types.BytesToIdentity(pub)
}

// Sign signs the digest
func (k *Key) Sign(digest []byte) []byte {
	return ed25519.Sign(k.priv, digest)
}

// VerifySignature checks that signature was produced by signer over digest
func VerifySignature(signer types.Identity, digest, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(signer.Bytes()), digest, signature)
}

// GenerateOrReadKey reads the key stored at path, generating and storing a new one if the file is missing
func GenerateOrReadKey(path string) (*Key, error) {
	seed, err := keystore.CreateIfNotExists(path, func() ([]byte, error) {
		seed := make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}

		return seed, nil
	})
	if err != nil {
		return nil, err
	}

	return NewKeyFromSeed(seed)
}
