package ledger

import (
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/custody-gateway/helper/keccak"
	"github.com/0xPolygon/custody-gateway/types"
)

// TokenProgramID is the owner of every fungible token account
var TokenProgramID = types.BytesToIdentity(keccak.Keccak256(nil, []byte("TokenProgram")))

// Account is a ledger account. Native value lives in Balance, program state in Data.
type Account struct {
	Owner   types.Identity
	Balance uint64
	Data    []byte

	// Version is bumped on every committed write of the account
	Version uint64
}

// Copy returns a deep copy of the account
func (a *Account) Copy() *Account {
	aa := new(Account)
	*aa = *a

	if a.Data != nil {
		aa.Data = append([]byte{}, a.Data...)
	}

	return aa
}

func (a *Account) MarshalRLPTo(dst []byte) []byte {
	return types.MarshalRLPTo(a.MarshalRLPWith, dst)
}

func (a *Account) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(a.Owner.Bytes()))
	vv.Set(ar.NewUint(a.Balance))
	vv.Set(ar.NewCopyBytes(a.Data))
	vv.Set(ar.NewUint(a.Version))

	return vv
}

func (a *Account) UnmarshalRLP(input []byte) error {
	return types.UnmarshalRlp(a.UnmarshalRLPFrom, input)
}

func (a *Account) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 4 {
		return fmt.Errorf("incorrect number of elements to decode account, expected 4 but found %d", len(elems))
	}

	if err = elems[0].GetHash(a.Owner[:]); err != nil {
		return err
	}

	if a.Balance, err = elems[1].GetUint64(); err != nil {
		return err
	}

	if a.Data, err = elems[2].GetBytes(a.Data[:0]); err != nil {
		return err
	}

	if a.Version, err = elems[3].GetUint64(); err != nil {
		return err
	}

	return nil
}

// TokenAccount is the data of an account owned by TokenProgramID
type TokenAccount struct {
	Mint      types.Identity
	Authority types.Identity
	Amount    uint64
}

func (t *TokenAccount) MarshalRLPTo(dst []byte) []byte {
	return types.MarshalRLPTo(t.MarshalRLPWith, dst)
}

func (t *TokenAccount) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(t.Mint.Bytes()))
	vv.Set(ar.NewCopyBytes(t.Authority.Bytes()))
	vv.Set(ar.NewUint(t.Amount))

	return vv
}

func (t *TokenAccount) UnmarshalRLP(input []byte) error {
	return types.UnmarshalRlp(t.UnmarshalRLPFrom, input)
}

func (t *TokenAccount) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 3 {
		return fmt.Errorf("incorrect number of elements to decode token account, expected 3 but found %d", len(elems))
	}

	if err = elems[0].GetHash(t.Mint[:]); err != nil {
		return err
	}

	if err = elems[1].GetHash(t.Authority[:]); err != nil {
		return err
	}

	if t.Amount, err = elems[2].GetUint64(); err != nil {
		return err
	}

	return nil
}

// Event is a fact appended to the ledger event log on commit
type Event struct {
	// Seq is the position in the event log, assigned on commit
	Seq  uint64
	Name string
	Data []byte
}

func (e *Event) MarshalRLPTo(dst []byte) []byte {
	return types.MarshalRLPTo(e.MarshalRLPWith, dst)
}

func (e *Event) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(e.Seq))
	vv.Set(ar.NewString(e.Name))
	vv.Set(ar.NewCopyBytes(e.Data))

	return vv
}

func (e *Event) UnmarshalRLP(input []byte) error {
	return types.UnmarshalRlp(e.UnmarshalRLPFrom, input)
}

func (e *Event) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 3 {
		return fmt.Errorf("incorrect number of elements to decode event, expected 3 but found %d", len(elems))
	}

	if e.Seq, err = elems[0].GetUint64(); err != nil {
		return err
	}

	if e.Name, err = elems[1].GetString(); err != nil {
		return err
	}

	if e.Data, err = elems[2].GetBytes(e.Data[:0]); err != nil {
		return err
	}

	return nil
}

func (e *Event) Copy() *Event {
	ee := new(Event)
	*ee = *e
	ee.Data = append([]byte{}, e.Data...)

	return ee
}
