package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	id := types.StringToIdentity("0x0102")
	addr := types.StringToAddress("0x0304")

	events := []Event{
		&ProgramInitialized{Config: id, GatewayReference: id, TargetNetworkID: 7001, Owner: id, DerivationTag: 255},
		&DepositAndCallExecuted{User: id, RecipientChainID: 1, RecipientAddress: addr, Amount: 2, Message: []byte("m")},
		&DepositSplTokenAndCallExecuted{User: id, Mint: id, RecipientChainID: 1, RecipientAddress: addr, Amount: 2, Message: []byte("m")},
		&OnCallExecuted{SenderChainID: 1, SenderAddress: addr, Recipient: id, Message: []byte("m"), Amount: 3},
		&OnRevertExecuted{SourceChainID: 1, SourceAddress: addr, Recipient: id, Message: []byte("m"), Amount: 4, Mint: id},
		&WithdrawAndCallExecuted{User: id, Recipient: addr, Amount: 5, Message: []byte("m")},
		&GatewayUpdated{Old: id, New: types.ZeroIdentity, UpdatedBy: id},
		&OwnerUpdated{OldOwner: id, NewOwner: types.ZeroIdentity},
	}

	for _, evnt := range events {
		raw := &ledger.Event{Name: evnt.Name(), Data: types.MarshalRLPTo(evnt.MarshalRLPWith, nil)}

		decoded, err := DecodeEvent(raw)
		require.NoError(t, err, evnt.Name())
		assert.Equal(t, evnt, decoded)
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvent(&ledger.Event{Name: "Unknown"})
	require.Error(t, err)

	// a field set of the wrong size is rejected
	data := types.MarshalRLPTo((&OwnerUpdated{}).MarshalRLPWith, nil)
	_, err = DecodeEvent(&ledger.Event{Name: GatewayUpdatedEvent, Data: data})
	require.Error(t, err)
}
