package gateway

import (
	"encoding/binary"
	"fmt"

	"github.com/0xPolygon/custody-gateway/crypto"
	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	// DefaultConfigSeed is the seed of the deployment wide Config
	DefaultConfigSeed = "config"

	// ConfigLength is the persisted size of a Config record
	ConfigLength = types.IdentityLength + 8 + types.IdentityLength + 1
)

// Config is the access controlled record of a gateway deployment.
// Its account balance is the native custody balance.
type Config struct {
	GatewayReference types.Identity
	TargetNetworkID  uint64
	Owner            types.Identity
	DerivationTag    uint8
}

// MarshalBinary encodes the record as
// gateway_reference[32] | target_network_id[8] | owner[32] | derivation_tag[1]
func (c *Config) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ConfigLength)

	copy(buf[0:32], c.GatewayReference[:])
	binary.BigEndian.PutUint64(buf[32:40], c.TargetNetworkID)
	copy(buf[40:72], c.Owner[:])
	buf[72] = c.DerivationTag

	return buf, nil
}

func (c *Config) UnmarshalBinary(data []byte) error {
	if len(data) != ConfigLength {
		return fmt.Errorf("invalid config length %d, expected %d", len(data), ConfigLength)
	}

	copy(c.GatewayReference[:], data[0:32])
	c.TargetNetworkID = binary.BigEndian.Uint64(data[32:40])
	copy(c.Owner[:], data[40:72])
	c.DerivationTag = data[72]

	return nil
}

func normalizeSeed(seed string) string {
	if seed == "" {
		return DefaultConfigSeed
	}

	return seed
}

// ConfigAddress returns the derived address and canonical derivation tag of
// the Config for seed
func ConfigAddress(seed string, programID types.Identity) (types.Identity, uint8, error) {
	return crypto.FindDerivedAddress([][]byte{[]byte(normalizeSeed(seed))}, programID)
}

// CustodyTokenAddress returns the custody token account of mint under config
func CustodyTokenAddress(config, mint, programID types.Identity) (types.Identity, error) {
	addr, _, err := crypto.FindDerivedAddress(
		[][]byte{config.Bytes(), ledger.TokenProgramID.Bytes(), mint.Bytes()},
		programID,
	)

	return addr, err
}

// loadConfig reads and authenticates the Config for seed inside txn
func (p *Program) loadConfig(txn *ledger.Txn, seed string) (types.Identity, *Config, error) {
	addr, tag, err := ConfigAddress(seed, p.programID)
	if err != nil {
		return types.ZeroIdentity, nil, err
	}

	ok, err := txn.HasAccount(addr)
	if err != nil {
		return types.ZeroIdentity, nil, err
	}

	if !ok {
		return types.ZeroIdentity, nil, fmt.Errorf("%w: seed %q", ErrConfigNotFound, normalizeSeed(seed))
	}

	acct, err := txn.GetAccount(addr)
	if err != nil {
		return types.ZeroIdentity, nil, err
	}

	if acct.Owner != p.programID {
		return types.ZeroIdentity, nil, fmt.Errorf("%w: account %s is owned by %s", ErrInvalidDerivation, addr, acct.Owner)
	}

	cfg := new(Config)
	if err := cfg.UnmarshalBinary(acct.Data); err != nil {
		return types.ZeroIdentity, nil, err
	}

	if cfg.DerivationTag != tag {
		return types.ZeroIdentity, nil, fmt.Errorf("%w: stored %d, derived %d", ErrInvalidDerivation, cfg.DerivationTag, tag)
	}

	return addr, cfg, nil
}

// storeConfig writes cfg back to the Config account, keeping its balance
func storeConfig(txn *ledger.Txn, addr types.Identity, cfg *Config) error {
	acct, err := txn.GetAccount(addr)
	if err != nil {
		return err
	}

	acct.Data, _ = cfg.MarshalBinary()

	return txn.SetAccount(addr, acct)
}

// Config returns the committed Config for seed
func (p *Program) Config(seed string) (*Config, error) {
	txn := p.ledger.Begin()
	defer txn.Discard()

	_, cfg, err := p.loadConfig(txn, seed)

	return cfg, err
}

// CustodyBalance returns the committed native custody balance for seed
func (p *Program) CustodyBalance(seed string) (uint64, error) {
	txn := p.ledger.Begin()
	defer txn.Discard()

	addr, _, err := p.loadConfig(txn, seed)
	if err != nil {
		return 0, err
	}

	acct, err := txn.GetAccount(addr)
	if err != nil {
		return 0, err
	}

	return acct.Balance, nil
}

// CustodyTokenBalance returns the committed custody balance of mint for seed
func (p *Program) CustodyTokenBalance(seed string, mint types.Identity) (uint64, error) {
	txn := p.ledger.Begin()
	defer txn.Discard()

	addr, _, err := p.loadConfig(txn, seed)
	if err != nil {
		return 0, err
	}

	custody, err := CustodyTokenAddress(addr, mint, p.programID)
	if err != nil {
		return 0, err
	}

	ok, err := txn.HasAccount(custody)
	if err != nil || !ok {
		return 0, err
	}

	token, err := txn.GetTokenAccount(custody)
	if err != nil {
		return 0, err
	}

	return token.Amount, nil
}
