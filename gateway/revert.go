package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

// OnRevert returns custodied value to the original sender after the remote
// leg failed. The custody balance is never allowed to go below zero.
func (p *Program) OnRevert(ctx context.Context, args *OnRevertArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		if args.Amount == 0 {
			return ErrInvalidAmount
		}

		addr, cfg, err := p.loadConfig(txn, args.Seed)
		if err != nil {
			return err
		}

		if err := auth.require(cfg.GatewayReference); err != nil {
			return err
		}

		if args.Mint.IsZero() {
			err = revertNative(txn, addr, args.User, args.Amount)
		} else {
			err = p.revertToken(txn, addr, args.User, args.Mint, args.UserTokenAccount, args.Amount)
		}

		if err != nil {
			return err
		}

		emit(txn, &OnRevertExecuted{
			SourceChainID: args.SourceChainID,
			SourceAddress: args.SourceAddress,
			Recipient:     args.User,
			Message:       args.Message,
			Amount:        args.Amount,
			Mint:          args.Mint,
		})

		return nil
	})
}

func revertNative(txn *ledger.Txn, config, user types.Identity, amount uint64) error {
	err := txn.Transfer(config, user, amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return fmt.Errorf("%w: %v", ErrCustodyUnderflow, err)
	}

	return err
}

func (p *Program) revertToken(txn *ledger.Txn, config, user, mint, userTokenAccount types.Identity, amount uint64) error {
	custody, err := CustodyTokenAddress(config, mint, p.programID)
	if err != nil {
		return err
	}

	exists, err := txn.HasAccount(custody)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: no custody account for mint %s", ErrCustodyUnderflow, mint)
	}

	target, err := txn.GetTokenAccount(userTokenAccount)
	if err != nil {
		return err
	}

	if target.Mint != mint {
		return fmt.Errorf("%w: token account holds %s, requested %s", ErrInvalidMint, target.Mint, mint)
	}

	if target.Authority != user {
		return fmt.Errorf("%w: token account %s is not owned by %s", ErrUnauthorized, userTokenAccount, user)
	}

	err = txn.TransferToken(custody, userTokenAccount, amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return fmt.Errorf("%w: %v", ErrCustodyUnderflow, err)
	}

	return err
}
