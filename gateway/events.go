package gateway

import (
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	ProgramInitializedEvent             = "ProgramInitialized"
	DepositAndCallExecutedEvent         = "DepositAndCallExecuted"
	DepositSplTokenAndCallExecutedEvent = "DepositSplTokenAndCallExecuted"
	OnCallExecutedEvent                 = "OnCallExecuted"
	OnRevertExecutedEvent               = "OnRevertExecuted"
	WithdrawAndCallExecutedEvent        = "WithdrawAndCallExecuted"
	GatewayUpdatedEvent                 = "GatewayUpdated"
	OwnerUpdatedEvent                   = "OwnerUpdated"
)

// Event is a fact emitted by a gateway operation
type Event interface {
	Name() string
	MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value
	UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error
}

func emit(txn *ledger.Txn, evnt Event) {
	txn.Emit(evnt.Name(), types.MarshalRLPTo(evnt.MarshalRLPWith, nil))
}

// DecodeEvent decodes a committed ledger event into its typed form
func DecodeEvent(raw *ledger.Event) (Event, error) {
	var evnt Event

	switch raw.Name {
	case ProgramInitializedEvent:
		evnt = &ProgramInitialized{}
	case DepositAndCallExecutedEvent:
		evnt = &DepositAndCallExecuted{}
	case DepositSplTokenAndCallExecutedEvent:
		evnt = &DepositSplTokenAndCallExecuted{}
	case OnCallExecutedEvent:
		evnt = &OnCallExecuted{}
	case OnRevertExecutedEvent:
		evnt = &OnRevertExecuted{}
	case WithdrawAndCallExecutedEvent:
		evnt = &WithdrawAndCallExecuted{}
	case GatewayUpdatedEvent:
		evnt = &GatewayUpdated{}
	case OwnerUpdatedEvent:
		evnt = &OwnerUpdated{}
	default:
		return nil, fmt.Errorf("unknown event %q", raw.Name)
	}

	if err := types.UnmarshalRlp(evnt.UnmarshalRLPFrom, raw.Data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", raw.Name, err)
	}

	return evnt, nil
}

// fieldReader reads consecutive RLP elements, keeping the first error
type fieldReader struct {
	elems []*fastrlp.Value
	pos   int
	err   error
}

func newFieldReader(v *fastrlp.Value, name string, expected int) (*fieldReader, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	if len(elems) != expected {
		return nil, fmt.Errorf("incorrect number of elements to decode %s, expected %d but found %d",
			name, expected, len(elems))
	}

	return &fieldReader{elems: elems}, nil
}

func (r *fieldReader) next() *fastrlp.Value {
	v := r.elems[r.pos]
	r.pos++

	return v
}

func (r *fieldReader) identity(dst *types.Identity) {
	v := r.next()
	if r.err == nil {
		r.err = v.GetHash(dst[:])
	}
}

func (r *fieldReader) address(dst *types.Address) {
	v := r.next()
	if r.err == nil {
		r.err = v.GetAddr(dst[:])
	}
}

func (r *fieldReader) number(dst *uint64) {
	v := r.next()
	if r.err == nil {
		*dst, r.err = v.GetUint64()
	}
}

func (r *fieldReader) blob(dst *[]byte) {
	v := r.next()
	if r.err == nil {
		*dst, r.err = v.GetBytes((*dst)[:0])
	}
}

type ProgramInitialized struct {
	Config           types.Identity
	GatewayReference types.Identity
	TargetNetworkID  uint64
	Owner            types.Identity
	DerivationTag    uint8
}

func (*ProgramInitialized) Name() string { return ProgramInitializedEvent }

func (e *ProgramInitialized) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.Config.Bytes()))
	vv.Set(ar.NewCopyBytes(e.GatewayReference.Bytes()))
	vv.Set(ar.NewUint(e.TargetNetworkID))
	vv.Set(ar.NewCopyBytes(e.Owner.Bytes()))
	vv.Set(ar.NewUint(uint64(e.DerivationTag)))

	return vv
}

func (e *ProgramInitialized) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 5)
	if err != nil {
		return err
	}

	var tag uint64

	r.identity(&e.Config)
	r.identity(&e.GatewayReference)
	r.number(&e.TargetNetworkID)
	r.identity(&e.Owner)
	r.number(&tag)

	if r.err == nil && tag > 0xff {
		return fmt.Errorf("derivation tag %d out of range", tag)
	}

	e.DerivationTag = uint8(tag)

	return r.err
}

type DepositAndCallExecuted struct {
	User             types.Identity
	RecipientChainID uint64
	RecipientAddress types.Address
	Amount           uint64
	Message          []byte
}

func (*DepositAndCallExecuted) Name() string { return DepositAndCallExecutedEvent }

func (e *DepositAndCallExecuted) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.User.Bytes()))
	vv.Set(ar.NewUint(e.RecipientChainID))
	vv.Set(ar.NewCopyBytes(e.RecipientAddress.Bytes()))
	vv.Set(ar.NewUint(e.Amount))
	vv.Set(ar.NewCopyBytes(e.Message))

	return vv
}

func (e *DepositAndCallExecuted) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 5)
	if err != nil {
		return err
	}

	r.identity(&e.User)
	r.number(&e.RecipientChainID)
	r.address(&e.RecipientAddress)
	r.number(&e.Amount)
	r.blob(&e.Message)

	return r.err
}

type DepositSplTokenAndCallExecuted struct {
	User             types.Identity
	Mint             types.Identity
	RecipientChainID uint64
	RecipientAddress types.Address
	Amount           uint64
	Message          []byte
}

func (*DepositSplTokenAndCallExecuted) Name() string { return DepositSplTokenAndCallExecutedEvent }

func (e *DepositSplTokenAndCallExecuted) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.User.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Mint.Bytes()))
	vv.Set(ar.NewUint(e.RecipientChainID))
	vv.Set(ar.NewCopyBytes(e.RecipientAddress.Bytes()))
	vv.Set(ar.NewUint(e.Amount))
	vv.Set(ar.NewCopyBytes(e.Message))

	return vv
}

func (e *DepositSplTokenAndCallExecuted) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 6)
	if err != nil {
		return err
	}

	r.identity(&e.User)
	r.identity(&e.Mint)
	r.number(&e.RecipientChainID)
	r.address(&e.RecipientAddress)
	r.number(&e.Amount)
	r.blob(&e.Message)

	return r.err
}

type OnCallExecuted struct {
	SenderChainID uint64
	SenderAddress types.Address
	Recipient     types.Identity
	Message       []byte
	Amount        uint64
}

func (*OnCallExecuted) Name() string { return OnCallExecutedEvent }

func (e *OnCallExecuted) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(e.SenderChainID))
	vv.Set(ar.NewCopyBytes(e.SenderAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Recipient.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Message))
	vv.Set(ar.NewUint(e.Amount))

	return vv
}

func (e *OnCallExecuted) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 5)
	if err != nil {
		return err
	}

	r.number(&e.SenderChainID)
	r.address(&e.SenderAddress)
	r.identity(&e.Recipient)
	r.blob(&e.Message)
	r.number(&e.Amount)

	return r.err
}

type OnRevertExecuted struct {
	SourceChainID uint64
	SourceAddress types.Address
	Recipient     types.Identity
	Message       []byte
	Amount        uint64

	// Mint is zero for native reverts
	Mint types.Identity
}

func (*OnRevertExecuted) Name() string { return OnRevertExecutedEvent }

func (e *OnRevertExecuted) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(e.SourceChainID))
	vv.Set(ar.NewCopyBytes(e.SourceAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Recipient.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Message))
	vv.Set(ar.NewUint(e.Amount))
	vv.Set(ar.NewCopyBytes(e.Mint.Bytes()))

	return vv
}

func (e *OnRevertExecuted) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 6)
	if err != nil {
		return err
	}

	r.number(&e.SourceChainID)
	r.address(&e.SourceAddress)
	r.identity(&e.Recipient)
	r.blob(&e.Message)
	r.number(&e.Amount)
	r.identity(&e.Mint)

	return r.err
}

type WithdrawAndCallExecuted struct {
	User      types.Identity
	Recipient types.Address
	Amount    uint64
	Message   []byte
}

func (*WithdrawAndCallExecuted) Name() string { return WithdrawAndCallExecutedEvent }

func (e *WithdrawAndCallExecuted) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.User.Bytes()))
	vv.Set(ar.NewCopyBytes(e.Recipient.Bytes()))
	vv.Set(ar.NewUint(e.Amount))
	vv.Set(ar.NewCopyBytes(e.Message))

	return vv
}

func (e *WithdrawAndCallExecuted) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 4)
	if err != nil {
		return err
	}

	r.identity(&e.User)
	r.address(&e.Recipient)
	r.number(&e.Amount)
	r.blob(&e.Message)

	return r.err
}

type GatewayUpdated struct {
	Old       types.Identity
	New       types.Identity
	UpdatedBy types.Identity
}

func (*GatewayUpdated) Name() string { return GatewayUpdatedEvent }

func (e *GatewayUpdated) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.Old.Bytes()))
	vv.Set(ar.NewCopyBytes(e.New.Bytes()))
	vv.Set(ar.NewCopyBytes(e.UpdatedBy.Bytes()))

	return vv
}

func (e *GatewayUpdated) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 3)
	if err != nil {
		return err
	}

	r.identity(&e.Old)
	r.identity(&e.New)
	r.identity(&e.UpdatedBy)

	return r.err
}

type OwnerUpdated struct {
	OldOwner types.Identity
	NewOwner types.Identity
}

func (*OwnerUpdated) Name() string { return OwnerUpdatedEvent }

func (e *OwnerUpdated) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewCopyBytes(e.OldOwner.Bytes()))
	vv.Set(ar.NewCopyBytes(e.NewOwner.Bytes()))

	return vv
}

func (e *OwnerUpdated) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	r, err := newFieldReader(v, e.Name(), 2)
	if err != nil {
		return err
	}

	r.identity(&e.OldOwner)
	r.identity(&e.NewOwner)

	return r.err
}
