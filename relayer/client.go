package relayer

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/custody-gateway/helper/hex"
	"github.com/0xPolygon/custody-gateway/types"
)

// GatewayClient requests actions from the gateway on the remote network.
// Requests are issued only for committed outbound facts.
type GatewayClient interface {
	DepositAndCall(ctx context.Context, chainID uint64, recipient types.Address, amount uint64, message []byte) error
	DepositTokenAndCall(
		ctx context.Context,
		mint types.Identity,
		chainID uint64,
		recipient types.Address,
		amount uint64,
		message []byte,
	) error
	WithdrawAndCall(ctx context.Context, recipient types.Address, amount uint64, message []byte) error
}

var _ GatewayClient = (*loggingClient)(nil)

// loggingClient is a GatewayClient which only logs the requests
type loggingClient struct {
	logger hclog.Logger
}

// NewLoggingClient returns a client which logs every request and never fails
func NewLoggingClient(logger hclog.Logger) GatewayClient {
	return &loggingClient{logger: logger.Named("gateway_client")}
}

func (c *loggingClient) DepositAndCall(
	_ context.Context, chainID uint64, recipient types.Address, amount uint64, message []byte) error {
	c.logger.Info("deposit and call", "chainID", chainID, "recipient", recipient,
		"amount", amount, "message", hex.EncodeToHex(message))

	return nil
}

func (c *loggingClient) DepositTokenAndCall(
	_ context.Context,
	mint types.Identity,
	chainID uint64,
	recipient types.Address,
	amount uint64,
	message []byte,
) error {
	c.logger.Info("deposit token and call", "mint", mint, "chainID", chainID, "recipient", recipient,
		"amount", amount, "message", hex.EncodeToHex(message))

	return nil
}

func (c *loggingClient) WithdrawAndCall(
	_ context.Context, recipient types.Address, amount uint64, message []byte) error {
	c.logger.Info("withdraw and call", "recipient", recipient,
		"amount", amount, "message", hex.EncodeToHex(message))

	return nil
}
