package gateway

import (
	"context"
	"fmt"

	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

// Initialize creates the Config at its derived address and returns that address
func (p *Program) Initialize(ctx context.Context, args *InitializeArgs, proofs ...Proof) (types.Identity, error) {
	var configAddr types.Identity

	err := p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		if err := auth.require(args.Payer); err != nil {
			return err
		}

		addr, tag, err := ConfigAddress(args.Seed, p.programID)
		if err != nil {
			return err
		}

		exists, err := txn.HasAccount(addr)
		if err != nil {
			return err
		}

		if exists {
			return fmt.Errorf("%w: %s", ErrConfigExists, addr)
		}

		cfg := &Config{
			GatewayReference: args.GatewayReference,
			TargetNetworkID:  args.TargetNetworkID,
			Owner:            args.Owner,
			DerivationTag:    tag,
		}

		data, _ := cfg.MarshalBinary()
		if err := txn.CreateAccount(addr, p.programID, data); err != nil {
			return err
		}

		emit(txn, &ProgramInitialized{
			Config:           addr,
			GatewayReference: cfg.GatewayReference,
			TargetNetworkID:  cfg.TargetNetworkID,
			Owner:            cfg.Owner,
			DerivationTag:    cfg.DerivationTag,
		})

		configAddr = addr

		return nil
	})
	if err != nil {
		return types.ZeroIdentity, err
	}

	p.logger.Info("program initialized", "config", configAddr, "target network", args.TargetNetworkID)

	return configAddr, nil
}

// UpdateGateway rotates the trusted gateway reference. Only the owner may call it.
func (p *Program) UpdateGateway(ctx context.Context, args *UpdateGatewayArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		addr, cfg, err := p.loadConfig(txn, args.Seed)
		if err != nil {
			return err
		}

		if args.Caller != cfg.Owner {
			return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, args.Caller)
		}

		if err := auth.require(args.Caller); err != nil {
			return err
		}

		old := cfg.GatewayReference
		cfg.GatewayReference = args.NewReference

		if err := storeConfig(txn, addr, cfg); err != nil {
			return err
		}

		emit(txn, &GatewayUpdated{
			Old:       old,
			New:       args.NewReference,
			UpdatedBy: args.Caller,
		})

		return nil
	})
}

// SetOwner transfers ownership. Both the current and the new owner must sign.
func (p *Program) SetOwner(ctx context.Context, args *SetOwnerArgs, proofs ...Proof) error {
	return p.execute(ctx, args, proofs, func(txn *ledger.Txn, auth *authorizer) error {
		addr, cfg, err := p.loadConfig(txn, args.Seed)
		if err != nil {
			return err
		}

		if args.CurrentOwner != cfg.Owner {
			return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, args.CurrentOwner)
		}

		if err := auth.require(args.CurrentOwner, args.NewOwner); err != nil {
			return err
		}

		old := cfg.Owner
		cfg.Owner = args.NewOwner

		if err := storeConfig(txn, addr, cfg); err != nil {
			return err
		}

		emit(txn, &OwnerUpdated{
			OldOwner: old,
			NewOwner: args.NewOwner,
		})

		return nil
	})
}
