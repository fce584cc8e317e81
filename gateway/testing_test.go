package gateway

import (
	"bytes"
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/custody-gateway/crypto"
	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

const testNetworkID = uint64(7001)

var testProgramID = types.StringToIdentity("0x9a7e3c1b")

// testingT is satisfied by both *testing.T and *rapid.T
type testingT interface {
	require.TestingT
	Helper()
}

func testKey(t testingT, b byte) *crypto.Key {
	t.Helper()

	key, err := crypto.NewKeyFromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)

	return key
}

type testEnv struct {
	t       testingT
	ctx     context.Context
	ledger  *ledger.Ledger
	program *Program

	payer   *crypto.Key
	owner   *crypto.Key
	gateway *crypto.Key
	user    *crypto.Key

	config types.Identity
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	l := ledger.NewTestLedger(t)

	e := &testEnv{
		t:       t,
		ctx:     context.Background(),
		ledger:  l,
		program: NewProgram(testProgramID, l, hclog.NewNullLogger(), opts...),
		payer:   testKey(t, 1),
		owner:   testKey(t, 2),
		gateway: testKey(t, 3),
		user:    testKey(t, 4),
	}

	args := &InitializeArgs{
		Payer:            e.payer.Identity(),
		GatewayReference: e.gateway.Identity(),
		TargetNetworkID:  testNetworkID,
		Owner:            e.owner.Identity(),
	}

	config, err := e.program.Initialize(e.ctx, args, e.sign(e.payer, args))
	require.NoError(t, err)

	e.config = config

	return e
}

func (e *testEnv) sign(key *crypto.Key, inst Instruction) Proof {
	return Sign(key, inst, testProgramID)
}

// fund allocates native balance to id
func (e *testEnv) fund(id types.Identity, amount uint64) {
	e.t.Helper()

	txn := e.ledger.Begin()
	require.NoError(e.t, txn.Allocate(id, amount))

	_, err := txn.Commit()
	require.NoError(e.t, err)
}

// fundToken creates a token account at addr holding amount of mint
func (e *testEnv) fundToken(addr, mint, authority types.Identity, amount uint64) {
	e.t.Helper()

	txn := e.ledger.Begin()
	require.NoError(e.t, txn.AllocateToken(addr, mint, authority, amount))

	_, err := txn.Commit()
	require.NoError(e.t, err)
}

func (e *testEnv) balance(id types.Identity) uint64 {
	e.t.Helper()

	acct, err := e.ledger.GetAccount(id)
	if err != nil {
		require.ErrorIs(e.t, err, ledger.ErrAccountNotFound)

		return 0
	}

	return acct.Balance
}

func (e *testEnv) tokenBalance(addr types.Identity) uint64 {
	e.t.Helper()

	token, err := e.ledger.GetTokenAccount(addr)
	require.NoError(e.t, err)

	return token.Amount
}

func (e *testEnv) custody() uint64 {
	e.t.Helper()

	balance, err := e.program.CustodyBalance("")
	require.NoError(e.t, err)

	return balance
}

// events returns every committed event decoded
func (e *testEnv) events() []Event {
	e.t.Helper()

	raw, err := e.ledger.Events(0, 1<<20)
	require.NoError(e.t, err)

	events := make([]Event, 0, len(raw))

	for _, r := range raw {
		evnt, err := DecodeEvent(r)
		require.NoError(e.t, err)

		events = append(events, evnt)
	}

	return events
}

func (e *testEnv) lastEvent() Event {
	e.t.Helper()

	events := e.events()
	require.NotEmpty(e.t, events)

	return events[len(events)-1]
}

func (e *testEnv) deposit(amount uint64) error {
	args := &DepositArgs{
		User:             e.user.Identity(),
		Amount:           amount,
		RecipientChainID: testNetworkID,
		RecipientAddress: types.StringToAddress("0xdead"),
		Message:          []byte("x"),
	}

	return e.program.Deposit(e.ctx, args, e.sign(e.user, args))
}

func (e *testEnv) revert(amount uint64) error {
	args := &OnRevertArgs{
		User:          e.user.Identity(),
		SourceChainID: testNetworkID,
		SourceAddress: types.StringToAddress("0xdead"),
		Message:       []byte("x"),
		Amount:        amount,
	}

	return e.program.OnRevert(e.ctx, args, e.sign(e.gateway, args))
}

func nopLogger() hclog.Logger {
	return hclog.NewNullLogger()
}
