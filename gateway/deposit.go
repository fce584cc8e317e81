package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

// Deposit moves native value from the user into custody and records the
// outbound intent
func (p *Program) Deposit(ctx context.Context, args *DepositArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		addr, _, err := p.validateDeposit(txn, auth, args.Seed, args.User, args.Amount, args.Message, args.RecipientChainID)
		if err != nil {
			return err
		}

		if err := debitUser(txn, args.User, addr, args.Amount); err != nil {
			return err
		}

		emit(txn, &DepositAndCallExecuted{
			User:             args.User,
			RecipientChainID: args.RecipientChainID,
			RecipientAddress: args.RecipientAddress,
			Amount:           args.Amount,
			Message:          args.Message,
		})

		return nil
	})
}

// DepositToken moves token value from the user's token account into the
// custody token account of the mint and records the outbound intent
func (p *Program) DepositToken(ctx context.Context, args *DepositTokenArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		addr, _, err := p.validateDeposit(txn, auth, args.Seed, args.User, args.Amount, args.Message, args.RecipientChainID)
		if err != nil {
			return err
		}

		source, err := txn.GetTokenAccount(args.SourceTokenAccount)
		if err != nil {
			return err
		}

		if source.Mint != args.Mint {
			return fmt.Errorf("%w: token account holds %s, requested %s", ErrInvalidMint, source.Mint, args.Mint)
		}

		if source.Authority != args.User {
			return fmt.Errorf("%w: token account is controlled by %s", ErrUnauthorized, source.Authority)
		}

		custody, err := p.custodyTokenAccount(txn, addr, args.Mint)
		if err != nil {
			return err
		}

		if err := txn.TransferToken(args.SourceTokenAccount, custody, args.Amount); err != nil {
			return err
		}

		emit(txn, &DepositSplTokenAndCallExecuted{
			User:             args.User,
			Mint:             args.Mint,
			RecipientChainID: args.RecipientChainID,
			RecipientAddress: args.RecipientAddress,
			Amount:           args.Amount,
			Message:          args.Message,
		})

		return nil
	})
}

// validateDeposit runs the checks shared by both deposit variants in order
func (p *Program) validateDeposit(
	txn *ledger.Txn,
	auth *authorizer,
	seed string,
	user types.Identity,
	amount uint64,
	message []byte,
	chainID uint64,
) (types.Identity, *Config, error) {
	if amount == 0 {
		return types.ZeroIdentity, nil, ErrInvalidAmount
	}

	if len(message) == 0 {
		return types.ZeroIdentity, nil, ErrEmptyMessage
	}

	addr, cfg, err := p.loadConfig(txn, seed)
	if err != nil {
		return types.ZeroIdentity, nil, err
	}

	if chainID != cfg.TargetNetworkID {
		return types.ZeroIdentity, nil, fmt.Errorf("%w: got %d, expected %d", ErrInvalidChainId, chainID, cfg.TargetNetworkID)
	}

	if err := auth.require(user); err != nil {
		return types.ZeroIdentity, nil, err
	}

	return addr, cfg, nil
}

// debitUser moves amount from user to custody. A user without an account
// holds nothing.
func debitUser(txn *ledger.Txn, user, custody types.Identity, amount uint64) error {
	err := txn.Transfer(user, custody, amount)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return fmt.Errorf("%w: account %s holds 0, required %d", ledger.ErrInsufficientFunds, user, amount)
	}

	return err
}

// custodyTokenAccount returns the custody token account of mint, creating it
// on first use
func (p *Program) custodyTokenAccount(txn *ledger.Txn, config, mint types.Identity) (types.Identity, error) {
	custody, err := CustodyTokenAddress(config, mint, p.programID)
	if err != nil {
		return types.ZeroIdentity, err
	}

	exists, err := txn.HasAccount(custody)
	if err != nil {
		return types.ZeroIdentity, err
	}

	if !exists {
		if err := txn.CreateTokenAccount(custody, mint, config); err != nil {
			return types.ZeroIdentity, err
		}
	}

	return custody, nil
}
