package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"

	"github.com/0xPolygon/custody-gateway/crosschain"
	"github.com/0xPolygon/custody-gateway/helper/keccak"
	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	// DefaultConflictRetries is how many times an operation is re-executed
	// after losing an optimistic concurrency race
	DefaultConflictRetries = 5

	// DefaultConflictBackoff is the pause between conflict retries
	DefaultConflictBackoff = 10 * time.Millisecond
)

// DefaultProgramID is the program identity used when none is configured
var DefaultProgramID = types.BytesToIdentity(keccak.Keccak256(nil, []byte("CustodyGateway")))

// Program executes gateway operations against the ledger. Every operation
// runs in its own unit of work and either commits fully or not at all.
type Program struct {
	logger    hclog.Logger
	ledger    *ledger.Ledger
	programID types.Identity
	handlers  *crosschain.Handlers

	conflictRetries uint64
	conflictBackoff time.Duration
}

type Option func(*Program)

// WithHandlers sets the inbound action handlers
func WithHandlers(handlers *crosschain.Handlers) Option {
	return func(p *Program) {
		p.handlers = handlers
	}
}

// WithConflictRetry sets the retry policy of operations that hit a commit conflict
func WithConflictRetry(retries uint64, backoff time.Duration) Option {
	return func(p *Program) {
		p.conflictRetries = retries
		if backoff > 0 {
			p.conflictBackoff = backoff
		}
	}
}

// NewProgram creates the gateway program identified by programID
func NewProgram(programID types.Identity, l *ledger.Ledger, logger hclog.Logger, opts ...Option) *Program {
	p := &Program{
		logger:          logger.Named("gateway"),
		ledger:          l,
		programID:       programID,
		handlers:        crosschain.DefaultHandlers(),
		conflictRetries: DefaultConflictRetries,
		conflictBackoff: DefaultConflictBackoff,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProgramID returns the identity of the program
func (p *Program) ProgramID() types.Identity {
	return p.programID
}

// Ledger returns the ledger the program operates on
func (p *Program) Ledger() *ledger.Ledger {
	return p.ledger
}

// execute runs fn in a fresh unit of work and commits it. A commit conflict
// re-runs fn from scratch on a new unit of work, any other error is terminal.
func (p *Program) execute(
	ctx context.Context,
	inst Instruction,
	proofs []Proof,
	fn func(txn *ledger.Txn, auth *authorizer) error,
) error {
	name := inst.Name()
	defer metrics.MeasureSince([]string{"gateway", name}, time.Now())

	auth := newAuthorizer(Digest(inst, p.programID), proofs)
	backoff := retry.WithMaxRetries(p.conflictRetries, retry.NewConstant(p.conflictBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txn := p.ledger.Begin()

		if err := fn(txn, auth); err != nil {
			txn.Discard()

			return err
		}

		committed, err := txn.Commit()
		if err != nil {
			if errors.Is(err, ledger.ErrConflict) {
				metrics.IncrCounter([]string{"gateway", name, "conflict"}, 1)
				p.logger.Debug("commit conflict, retrying", "op", name, "err", err)

				return retry.RetryableError(err)
			}

			return err
		}

		for _, evnt := range committed {
			p.logger.Debug("event emitted", "op", name, "event", evnt.Name, "seq", evnt.Seq)
		}

		return nil
	})
	if err != nil {
		metrics.IncrCounter([]string{"gateway", name, "failed"}, 1)
		p.logger.Debug("operation failed", "op", name, "err", err)

		return err
	}

	metrics.IncrCounter([]string{"gateway", name, "success"}, 1)

	return nil
}
