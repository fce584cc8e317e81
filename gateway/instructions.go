package gateway

import (
	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/custody-gateway/types"
)

type InitializeArgs struct {
	Payer            types.Identity
	Seed             string
	GatewayReference types.Identity
	TargetNetworkID  uint64
	Owner            types.Identity
}

func (*InitializeArgs) Name() string { return "initialize" }

func (a *InitializeArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewCopyBytes(a.Payer.Bytes()))
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.GatewayReference.Bytes()))
	vv.Set(ar.NewUint(a.TargetNetworkID))
	vv.Set(ar.NewCopyBytes(a.Owner.Bytes()))
}

type UpdateGatewayArgs struct {
	Seed         string
	Caller       types.Identity
	NewReference types.Identity
}

func (*UpdateGatewayArgs) Name() string { return "update_gateway" }

func (a *UpdateGatewayArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.Caller.Bytes()))
	vv.Set(ar.NewCopyBytes(a.NewReference.Bytes()))
}

type SetOwnerArgs struct {
	Seed         string
	CurrentOwner types.Identity
	NewOwner     types.Identity
}

func (*SetOwnerArgs) Name() string { return "set_owner" }

func (a *SetOwnerArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.CurrentOwner.Bytes()))
	vv.Set(ar.NewCopyBytes(a.NewOwner.Bytes()))
}

type DepositArgs struct {
	Seed             string
	User             types.Identity
	Amount           uint64
	RecipientChainID uint64
	RecipientAddress types.Address
	Message          []byte
}

func (*DepositArgs) Name() string { return "deposit" }

func (a *DepositArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.User.Bytes()))
	vv.Set(ar.NewUint(a.Amount))
	vv.Set(ar.NewUint(a.RecipientChainID))
	vv.Set(ar.NewCopyBytes(a.RecipientAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Message))
}

type DepositTokenArgs struct {
	Seed               string
	User               types.Identity
	Mint               types.Identity
	SourceTokenAccount types.Identity
	Amount             uint64
	RecipientChainID   uint64
	RecipientAddress   types.Address
	Message            []byte
}

func (*DepositTokenArgs) Name() string { return "deposit_token" }

func (a *DepositTokenArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.User.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Mint.Bytes()))
	vv.Set(ar.NewCopyBytes(a.SourceTokenAccount.Bytes()))
	vv.Set(ar.NewUint(a.Amount))
	vv.Set(ar.NewUint(a.RecipientChainID))
	vv.Set(ar.NewCopyBytes(a.RecipientAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Message))
}

type OnCallArgs struct {
	Seed          string
	SenderChainID uint64
	SenderAddress types.Address
	Message       []byte
	Amount        uint64
}

func (*OnCallArgs) Name() string { return "on_call" }

func (a *OnCallArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewUint(a.SenderChainID))
	vv.Set(ar.NewCopyBytes(a.SenderAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Message))
	vv.Set(ar.NewUint(a.Amount))
}

type OnRevertArgs struct {
	Seed          string
	User          types.Identity
	SourceChainID uint64
	SourceAddress types.Address
	Message       []byte
	Amount        uint64

	// Mint selects a token revert into UserTokenAccount, zero for native
	Mint             types.Identity
	UserTokenAccount types.Identity
}

func (*OnRevertArgs) Name() string { return "on_revert" }

func (a *OnRevertArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.User.Bytes()))
	vv.Set(ar.NewUint(a.SourceChainID))
	vv.Set(ar.NewCopyBytes(a.SourceAddress.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Message))
	vv.Set(ar.NewUint(a.Amount))
	vv.Set(ar.NewCopyBytes(a.Mint.Bytes()))
	vv.Set(ar.NewCopyBytes(a.UserTokenAccount.Bytes()))
}

type WithdrawArgs struct {
	Seed      string
	User      types.Identity
	Recipient types.Address
	Amount    uint64
	Message   []byte
}

func (*WithdrawArgs) Name() string { return "withdraw_and_call" }

func (a *WithdrawArgs) marshalFields(ar *fastrlp.Arena, vv *fastrlp.Value) {
	vv.Set(ar.NewString(normalizeSeed(a.Seed)))
	vv.Set(ar.NewCopyBytes(a.User.Bytes()))
	vv.Set(ar.NewCopyBytes(a.Recipient.Bytes()))
	vv.Set(ar.NewUint(a.Amount))
	vv.Set(ar.NewCopyBytes(a.Message))
}
