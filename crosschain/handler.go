package crosschain

import (
	"fmt"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

// MintEquivalentHandler mints the local equivalent of a remote asset
type MintEquivalentHandler interface {
	MintEquivalent(txn *ledger.Txn, recipient types.Identity, amount uint64) error
}

// TransferTokenHandler releases a local token to the recipient
type TransferTokenHandler interface {
	TransferToken(txn *ledger.Txn, recipient types.Identity, amount uint64) error
}

// CustomHandler executes an application specific payload
type CustomHandler interface {
	Custom(txn *ledger.Txn, data []byte, amount uint64) error
}

// actionHandler defines the interface each registered action handler implements
type actionHandler interface {
	run(txn *ledger.Txn, msg *CrossChainMessage, amount uint64) error
}

type mintEquivalentAction struct{ h MintEquivalentHandler }

func (a *mintEquivalentAction) run(txn *ledger.Txn, msg *CrossChainMessage, amount uint64) error {
	return a.h.MintEquivalent(txn, msg.Recipient, amount)
}

type transferTokenAction struct{ h TransferTokenHandler }

func (a *transferTokenAction) run(txn *ledger.Txn, msg *CrossChainMessage, amount uint64) error {
	return a.h.TransferToken(txn, msg.Recipient, amount)
}

type customAction struct{ h CustomHandler }

func (a *customAction) run(txn *ledger.Txn, msg *CrossChainMessage, amount uint64) error {
	return a.h.Custom(txn, msg.Data, amount)
}

// Handlers routes decoded messages to one capability per action
type Handlers struct {
	handlers map[Action]actionHandler
}

// NewHandlers creates a registry. A nil capability falls back to a no-op.
func NewHandlers(mint MintEquivalentHandler, transfer TransferTokenHandler, custom CustomHandler) *Handlers {
	if mint == nil {
		mint = NopHandler{}
	}

	if transfer == nil {
		transfer = NopHandler{}
	}

	if custom == nil {
		custom = NopHandler{}
	}

	h := &Handlers{handlers: map[Action]actionHandler{}}
	h.registerHandler(MintEquivalent, &mintEquivalentAction{mint})
	h.registerHandler(TransferToken, &transferTokenAction{transfer})
	h.registerHandler(Custom, &customAction{custom})

	return h
}

// DefaultHandlers returns a registry where every action is a no-op
func DefaultHandlers() *Handlers {
	return NewHandlers(nil, nil, nil)
}

func (h *Handlers) registerHandler(action Action, handler actionHandler) {
	h.handlers[action] = handler
}

// Dispatch runs the handler registered for the message action inside txn
func (h *Handlers) Dispatch(txn *ledger.Txn, msg *CrossChainMessage, amount uint64) error {
	handler, ok := h.handlers[msg.Action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, msg.Action)
	}

	if err := handler.run(txn, msg, amount); err != nil {
		return fmt.Errorf("%s handler: %w", msg.Action, err)
	}

	return nil
}

// NopHandler accepts every action without side effects
type NopHandler struct{}

func (NopHandler) MintEquivalent(*ledger.Txn, types.Identity, uint64) error { return nil }

func (NopHandler) TransferToken(*ledger.Txn, types.Identity, uint64) error { return nil }

func (NopHandler) Custom(*ledger.Txn, []byte, uint64) error { return nil }
