package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringToIdentity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{
			"0x01",
			"0x0000000000000000000000000000000000000000000000000000000000000001",
		},
		{
			"0xeEd210D",
			"0x000000000000000000000000000000000000000000000000000000000eed210d",
		},
		{
			"c5c2f1a1f5d3b0f8e8b9f0b3b3c3d1a2f3e4d5c6b7a8f9e0d1c2b3a4f5e6d7c8",
			"0xc5c2f1a1f5d3b0f8e8b9f0b3b3c3d1a2f3e4d5c6b7a8f9e0d1c2b3a4f5e6d7c8",
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, c.expected, StringToIdentity(c.input).String())
		})
	}
}

func TestBytesToAddress_Truncates(t *testing.T) {
	t.Parallel()

	long := make([]byte, 32)
	long[31] = 7
	long[0] = 9

	addr := BytesToAddress(long)
	assert.Equal(t, byte(7), addr[AddressLength-1])
	assert.Equal(t, byte(0), addr[0])
}

func TestIdentity_TextRoundTrip(t *testing.T) {
	t.Parallel()

	id := StringToIdentity("0xabcdef")

	raw, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded Identity
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, decoded.UnmarshalText([]byte("0x01")))
	assert.True(t, ZeroIdentity.IsZero())
	assert.False(t, id.IsZero())
}

func TestAddress_UnmarshalText(t *testing.T) {
	t.Parallel()

	var addr Address

	require.NoError(t, addr.UnmarshalText([]byte("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")))
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", addr.String())
	assert.Error(t, addr.UnmarshalText([]byte("0x5aaeb6")))
}
