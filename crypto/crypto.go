package crypto

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/0xPolygon/custody-gateway/helper/keccak"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	// MaxSeeds is the maximum number of seeds (derivation tag included)
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed
	MaxSeedLength = 32
)

var (
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrOnCurve               = errors.New("derived address lies on the curve")
	ErrNoViableTag           = errors.New("unable to find a viable derivation tag")

	derivedAddressMarker = []byte("DerivedAddress")
)

// CreateDerivedAddress derives a deterministic address from the given seeds and
// program identity. Derived addresses must not decode as ed25519 points, so they
// are never a verifying key for any signature.
func CreateDerivedAddress(seeds [][]byte, programID types.Identity) (types.Identity, error) {
	if len(seeds) > MaxSeeds {
		return types.ZeroIdentity, ErrTooManySeeds
	}

	parts := make([][]byte, 0, len(seeds)+2)

	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return types.ZeroIdentity, fmt.Errorf("%w: %d bytes", ErrMaxSeedLengthExceeded, len(seed))
		}

		parts = append(parts, seed)
	}

	parts = append(parts, programID.Bytes(), derivedAddressMarker)

	digest := keccak.Keccak256Concat(nil, parts...)
	if isOnCurve(digest) {
		return types.ZeroIdentity, ErrOnCurve
	}

	return types.BytesToIdentity(digest), nil
}

// FindDerivedAddress searches for the highest derivation tag that yields an
// off-curve address for the given seeds. The tag is appended as the last seed.
func FindDerivedAddress(seeds [][]byte, programID types.Identity) (types.Identity, uint8, error) {
	withTag := make([][]byte, len(seeds)+1)
	copy(withTag, seeds)

	for tag := 255; tag >= 0; tag-- {
		withTag[len(seeds)] = []byte{byte(tag)}

		addr, err := CreateDerivedAddress(withTag, programID)
		if err == nil {
			return addr, uint8(tag), nil
		}

		if !errors.Is(err, ErrOnCurve) {
			return types.ZeroIdentity, 0, err
		}
	}

	return types.ZeroIdentity, 0, ErrNoViableTag
}

// isOnCurve checks whether the digest is the encoding of an ed25519 point
func isOnCurve(digest []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(digest)

	return err == nil
}
