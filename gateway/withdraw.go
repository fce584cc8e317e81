package gateway

import (
	"context"

	"github.com/0xPolygon/custody-gateway/ledger"
)

// Withdraw records the intent to release value to a recipient on the remote
// network. No local value moves.
func (p *Program) Withdraw(ctx context.Context, args *WithdrawArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		if args.Amount == 0 {
			return ErrInvalidAmount
		}

		if _, _, err := p.loadConfig(txn, args.Seed); err != nil {
			return err
		}

		if err := auth.require(args.User); err != nil {
			return err
		}

		emit(txn, &WithdrawAndCallExecuted{
			User:      args.User,
			Recipient: args.Recipient,
			Amount:    args.Amount,
			Message:   args.Message,
		})

		return nil
	})
}
