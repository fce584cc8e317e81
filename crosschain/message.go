package crosschain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/0xPolygon/custody-gateway/types"
)

var (
	ErrMalformedMessage = errors.New("malformed cross-chain message")
	ErrUnknownAction    = errors.New("unknown cross-chain action")
)

// Action is the closed set of actions a cross-chain message can request
type Action uint8

const (
	MintEquivalent Action = iota
	TransferToken
	Custom
)

func (a Action) String() string {
	switch a {
	case MintEquivalent:
		return "MintEquivalent"
	case TransferToken:
		return "TransferToken"
	case Custom:
		return "Custom"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// IsValid reports whether a is one of the known actions
func (a Action) IsValid() bool {
	return a <= Custom
}

// CrossChainMessage is the payload carried by an inbound call
type CrossChainMessage struct {
	Action      Action
	Recipient   types.Identity
	MetadataURI *string
	TokenID     *uint64
	Data        []byte
}

func (m *CrossChainMessage) MarshalRLP() []byte {
	return m.MarshalRLPTo(nil)
}

func (m *CrossChainMessage) MarshalRLPTo(dst []byte) []byte {
	return types.MarshalRLPTo(m.MarshalRLPWith, dst)
}

// MarshalRLPWith encodes the message as
// [action, recipient, [metadataURI?], [tokenID?], data]
func (m *CrossChainMessage) MarshalRLPWith(ar *fastrlp.Arena) *fastrlp.Value {
	vv := ar.NewArray()
	vv.Set(ar.NewUint(uint64(m.Action)))
	vv.Set(ar.NewCopyBytes(m.Recipient.Bytes()))

	uri := ar.NewArray()
	if m.MetadataURI != nil {
		uri.Set(ar.NewString(*m.MetadataURI))
	}

	vv.Set(uri)

	tokenID := ar.NewArray()
	if m.TokenID != nil {
		tokenID.Set(ar.NewUint(*m.TokenID))
	}

	vv.Set(tokenID)
	vv.Set(ar.NewCopyBytes(m.Data))

	return vv
}

// UnmarshalRLP decodes a message. Any input that does not re-encode to the
// exact same bytes is rejected, so trailing data and non-canonical encodings
// never decode.
func (m *CrossChainMessage) UnmarshalRLP(input []byte) error {
	msg := new(CrossChainMessage)

	if err := types.UnmarshalRlp(msg.UnmarshalRLPFrom, input); err != nil {
		if errors.Is(err, ErrUnknownAction) {
			return err
		}

		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if !bytes.Equal(msg.MarshalRLP(), input) {
		return fmt.Errorf("%w: non-canonical encoding", ErrMalformedMessage)
	}

	*m = *msg

	return nil
}

func (m *CrossChainMessage) UnmarshalRLPFrom(p *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 5 {
		return fmt.Errorf("incorrect number of elements to decode message, expected 5 but found %d", len(elems))
	}

	action, err := elems[0].GetUint64()
	if err != nil {
		return err
	}

	if action > uint64(Custom) {
		return fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}

	m.Action = Action(action)

	if err = elems[1].GetHash(m.Recipient[:]); err != nil {
		return err
	}

	uri, err := getOption(elems[2])
	if err != nil {
		return fmt.Errorf("metadata uri: %w", err)
	}

	if uri != nil {
		s, err := uri.GetString()
		if err != nil {
			return err
		}

		m.MetadataURI = &s
	}

	tokenID, err := getOption(elems[3])
	if err != nil {
		return fmt.Errorf("token id: %w", err)
	}

	if tokenID != nil {
		id, err := tokenID.GetUint64()
		if err != nil {
			return err
		}

		m.TokenID = &id
	}

	if m.Data, err = elems[4].GetBytes(m.Data[:0]); err != nil {
		return err
	}

	return nil
}

// getOption unwraps an optional value encoded as a list of zero or one element
func getOption(v *fastrlp.Value) (*fastrlp.Value, error) {
	elems, err := v.GetElems()
	if err != nil {
		return nil, err
	}

	switch len(elems) {
	case 0:
		return nil, nil
	case 1:
		return elems[0], nil
	default:
		return nil, fmt.Errorf("option holds %d elements", len(elems))
	}
}

// DecodeMessage decodes raw bytes into a message
func DecodeMessage(input []byte) (*CrossChainMessage, error) {
	msg := new(CrossChainMessage)
	if err := msg.UnmarshalRLP(input); err != nil {
		return nil, err
	}

	return msg, nil
}
