package gateway

import (
	"context"
	"fmt"

	"github.com/0xPolygon/custody-gateway/crosschain"
	"github.com/0xPolygon/custody-gateway/ledger"
)

// OnCall handles a message relayed from the remote network by the trusted gateway
func (p *Program) OnCall(ctx context.Context, args *OnCallArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		_, cfg, err := p.loadConfig(txn, args.Seed)
		if err != nil {
			return err
		}

		if args.SenderChainID != cfg.TargetNetworkID {
			return fmt.Errorf("%w: got %d, expected %d", ErrInvalidChainId, args.SenderChainID, cfg.TargetNetworkID)
		}

		if len(args.Message) == 0 {
			return ErrEmptyMessage
		}

		if err := auth.require(cfg.GatewayReference); err != nil {
			return err
		}

		msg, err := crosschain.DecodeMessage(args.Message)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMessageDecodingFailed, err)
		}

		if err := p.handlers.Dispatch(txn, msg, args.Amount); err != nil {
			return err
		}

		emit(txn, &OnCallExecuted{
			SenderChainID: args.SenderChainID,
			SenderAddress: args.SenderAddress,
			Recipient:     msg.Recipient,
			Message:       args.Message,
			Amount:        args.Amount,
		})

		return nil
	})
}
