package crosschain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/0xPolygon/custody-gateway/types"
)

func messageGenerator() *rapid.Generator[*CrossChainMessage] {
	return rapid.Custom(func(t *rapid.T) *CrossChainMessage {
		recipient := rapid.SliceOfN(rapid.Byte(), types.IdentityLength, types.IdentityLength).Draw(t, "recipient")

		return &CrossChainMessage{
			Action:      rapid.SampledFrom([]Action{MintEquivalent, TransferToken, Custom}).Draw(t, "action"),
			Recipient:   types.BytesToIdentity(recipient),
			MetadataURI: rapid.Ptr(rapid.String(), true).Draw(t, "uri"),
			TokenID:     rapid.Ptr(rapid.Uint64(), true).Draw(t, "tokenID"),
			Data:        rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "data"),
		}
	})
}

func TestCrossChainMessage_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		msg := messageGenerator().Draw(t, "msg")

		decoded, err := DecodeMessage(msg.MarshalRLP())
		require.NoError(t, err)

		if len(msg.Data) == 0 {
			msg.Data = nil
		}

		if len(decoded.Data) == 0 {
			decoded.Data = nil
		}

		require.Equal(t, msg, decoded)
	})
}

func TestCrossChainMessage_TrailingBytes(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		msg := messageGenerator().Draw(t, "msg")
		extra := rapid.SliceOfN(rapid.Byte(), 1, 8).Draw(t, "extra")

		raw := append(msg.MarshalRLP(), extra...)

		_, err := DecodeMessage(raw)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})
}

func TestCrossChainMessage_Optional(t *testing.T) {
	t.Parallel()

	uri := "ipfs://meta"
	zero := uint64(0)

	msg := &CrossChainMessage{
		Action:      TransferToken,
		Recipient:   types.StringToIdentity("0x01"),
		MetadataURI: &uri,
		TokenID:     &zero,
		Data:        []byte("payload"),
	}

	decoded, err := DecodeMessage(msg.MarshalRLP())
	require.NoError(t, err)
	require.NotNil(t, decoded.MetadataURI)
	require.NotNil(t, decoded.TokenID)
	assert.Equal(t, uri, *decoded.MetadataURI)
	assert.Equal(t, uint64(0), *decoded.TokenID)

	msg.MetadataURI = nil
	msg.TokenID = nil

	decoded, err = DecodeMessage(msg.MarshalRLP())
	require.NoError(t, err)
	assert.Nil(t, decoded.MetadataURI)
	assert.Nil(t, decoded.TokenID)
}

func TestDecodeMessage_Malformed(t *testing.T) {
	t.Parallel()

	valid := (&CrossChainMessage{Action: Custom, Data: []byte{1}}).MarshalRLP()

	cases := []struct {
		name  string
		input []byte
		err   error
	}{
		{"empty", nil, ErrMalformedMessage},
		{"not a list", []byte{0x83, 1, 2, 3}, ErrMalformedMessage},
		{"empty list", []byte{0xc0}, ErrMalformedMessage},
		{"truncated", valid[:len(valid)-1], ErrMalformedMessage},
		{"trailing", append(append([]byte{}, valid...), 0x00), ErrMalformedMessage},
		{"unknown action", (&CrossChainMessage{Action: Action(3)}).MarshalRLP(), ErrUnknownAction},
		{"short recipient", rawMessage(0x01, []byte{1, 2}), ErrMalformedMessage},
		{"non canonical action", rawMessage(0x00, make([]byte, 32)), ErrMalformedMessage},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			msg, err := DecodeMessage(c.input)
			require.ErrorIs(t, err, c.err)
			assert.Nil(t, msg)
		})
	}
}

// rawMessage builds [action, recipient, [], [], ""] by hand with the action
// written as a single raw byte
func rawMessage(action byte, recipient []byte) []byte {
	body := []byte{action}
	body = append(body, byte(0x80+len(recipient)))
	body = append(body, recipient...)
	body = append(body, 0xc0, 0xc0, 0x80)

	return append([]byte{byte(0xc0 + len(body))}, body...)
}

func TestAction_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MintEquivalent", MintEquivalent.String())
	assert.Equal(t, "Custom", Custom.String())
	assert.Equal(t, "Action(9)", Action(9).String())
	assert.False(t, Action(3).IsValid())
}
