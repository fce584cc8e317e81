package gateway

import (
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/custody-gateway/crypto"
	"github.com/0xPolygon/custody-gateway/helper/keccak"
	"github.com/0xPolygon/custody-gateway/types"
)

// Proof is a signature of an identity over an instruction digest
type Proof struct {
	Signer    types.Identity
	Signature []byte
}

// Instruction is a gateway operation request that can be signed
type Instruction interface {
	Name() string
	marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value)
}

// Digest is keccak256(rlp([name, programID, fields...])) of the instruction
func Digest(inst Instruction, programID types.Identity) types.Hash {
	ar := fastrlp.DefaultArenaPool.Get()
	defer fastrlp.DefaultArenaPool.Put(ar)

	vv := ar.NewArray()
	vv.Set(ar.NewString(inst.Name()))
	vv.Set(ar.NewCopyBytes(programID.Bytes()))
	inst.marshalFields(ar, vv)

	return types.BytesToHash(keccak.Keccak256Rlp(nil, vv))
}

// Sign produces the proof of key over the instruction
func Sign(key *crypto.Key, inst Instruction, programID types.Identity) Proof {
	digest := Digest(inst, programID)

	return Proof{
		Signer:    key.Identity(),
		Signature: key.Sign(digest.Bytes()),
	}
}

// authorizer verifies the proofs of an instruction on first use
type authorizer struct {
	digest types.Hash
	proofs []Proof

	verified bool
	signers  map[types.Identity]struct{}
	err      error
}

func newAuthorizer(digest types.Hash, proofs []Proof) *authorizer {
	return &authorizer{digest: digest, proofs: proofs}
}

// verify checks every proof against the digest. A single invalid proof
// fails the whole instruction.
func (a *authorizer) verify() error {
	if a.verified {
		return a.err
	}

	a.verified = true
	a.signers = make(map[types.Identity]struct{}, len(a.proofs))

	for _, proof := range a.proofs {
		if !crypto.VerifySignature(proof.Signer, a.digest.Bytes(), proof.Signature) {
			a.err = fmt.Errorf("%w: invalid signature of %s", ErrUnauthorized, proof.Signer)

			return a.err
		}

		a.signers[proof.Signer] = struct{}{}
	}

	return nil
}

// require fails unless every id signed the instruction
func (a *authorizer) require(ids ...types.Identity) error {
	if err := a.verify(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, ok := a.signers[id]; !ok {
			return fmt.Errorf("%w: missing signature of %s", ErrUnauthorized, id)
		}
	}

	return nil
}
