package hex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected []byte
		valid    bool
	}{
		{"0x0102", []byte{1, 2}, true},
		{"0102", []byte{1, 2}, true},
		{"0x", []byte{}, true},
		{"0xzz", nil, false},
		{"0x123", nil, false},
	}

	for _, c := range cases {
		c := c

		t.Run(c.input, func(t *testing.T) {
			t.Parallel()

			buf, err := DecodeHex(c.input)
			if !c.valid {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.expected, buf)
		})
	}
}

func TestEncodeToHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x00ff", EncodeToHex([]byte{0, 255}))
	assert.Equal(t, []byte{0, 255}, MustDecodeHex(EncodeToHex([]byte{0, 255})))
	assert.Panics(t, func() { MustDecodeHex("0xgg") })
}
