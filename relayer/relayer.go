package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/armon/go-metrics"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"

	"github.com/0xPolygon/custody-gateway/gateway"
	"github.com/0xPolygon/custody-gateway/ledger"
)

const (
	// defaultMaxAttemptsToSend specifies how many delivery attempts one event gets
	defaultMaxAttemptsToSend = uint64(15)
	// defaultMaxEventsPerBatch specifies how many events are read from the ledger at once
	defaultMaxEventsPerBatch = 10
	// defaultRetryBackoff specifies the pause between two delivery attempts
	defaultRetryBackoff = time.Second
)

// Config parametrizes the relayer
type Config struct {
	MaxAttempts uint64
	Backoff     time.Duration
	BatchSize   int
}

// DefaultConfig returns the default relayer configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: defaultMaxAttemptsToSend,
		Backoff:     defaultRetryBackoff,
		BatchSize:   defaultMaxEventsPerBatch,
	}
}

// Relayer forwards committed outbound facts (deposits and withdrawals)
// to the gateway on the remote network, in ledger order
type Relayer struct {
	logger hclog.Logger
	ledger *ledger.Ledger
	client GatewayClient
	store  *Store
	config *Config

	ctx    context.Context
	cancel context.CancelFunc

	closeCh chan struct{}
	doneCh  chan struct{}
}

func NewRelayer(
	l *ledger.Ledger,
	client GatewayClient,
	store *Store,
	config *Config,
	logger hclog.Logger,
) *Relayer {
	defaults := DefaultConfig()

	if config == nil {
		config = defaults
	}

	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	if config.Backoff <= 0 {
		config.Backoff = defaults.Backoff
	}

	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Relayer{
		logger:  logger.Named("relayer"),
		ledger:  l,
		client:  client,
		store:   store,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		closeCh: make(chan struct{}),
	}
}

// Start relays the backlog and then every event committed afterwards
func (r *Relayer) Start() {
	notifyCh, unsubscribe := r.ledger.Subscribe()
	r.doneCh = make(chan struct{})

	go func() {
		defer close(r.doneCh)
		defer unsubscribe()

		r.processEvents()

		for {
			select {
			case <-r.closeCh:
				return
			case <-notifyCh:
				r.processEvents()
			}
		}
	}()
}

// Close stops the relayer, interrupting an in-flight delivery. The store is owned by the caller.
func (r *Relayer) Close() {
	close(r.closeCh)
	r.cancel()

	if r.doneCh != nil {
		<-r.doneCh
	}
}

// processEvents relays events in batches until the relayer catches up with the ledger
func (r *Relayer) processEvents() {
	for {
		next, err := r.store.NextSeq()
		if err != nil {
			r.logger.Error("reading relayer cursor failed", "err", err)

			return
		}

		events, err := r.ledger.Events(next, r.config.BatchSize)
		if err != nil {
			r.logger.Error("retrieving events failed", "from", next, "err", err)

			return
		}

		if len(events) == 0 {
			return
		}

		for _, evnt := range events {
			if err := r.relay(evnt); err != nil {
				r.logger.Error("relaying event failed", "seq", evnt.Seq, "event", evnt.Name, "err", err)

				return
			}
		}
	}
}

// relay delivers a single event. It returns an error only when the cursor could not be moved past it.
func (r *Relayer) relay(raw *ledger.Event) error {
	data, err := r.store.getEvent(raw.Seq)
	if err != nil {
		return err
	}

	if data == nil {
		data = &EventData{Seq: raw.Seq, Name: raw.Name, DeliveryID: uuid.NewString()}
	}

	logger := r.logger.With("seq", raw.Seq, "event", raw.Name, "id", data.DeliveryID)

	evnt, err := gateway.DecodeEvent(raw)
	if err != nil {
		logger.Error("event can not be decoded, skipping", "err", err)

		data.Failed = true
		data.LastError = err.Error()

		return r.store.complete(data)
	}

	deliver := r.deliveryFor(evnt)
	if deliver == nil {
		// not an outbound fact
		return r.store.complete(data)
	}

	if data.CountTries >= r.config.MaxAttempts {
		return r.giveUp(logger, data)
	}

	backoff := retry.WithMaxRetries(
		r.config.MaxAttempts-data.CountTries-1, retry.NewConstant(r.config.Backoff))

	err = retry.Do(r.ctx, backoff, func(ctx context.Context) error {
		data.CountTries++
		metrics.IncrCounter([]string{"relayer", "attempt"}, 1)

		err := deliver(ctx)
		if err == nil {
			return nil
		}

		data.LastError = err.Error()
		logger.Warn("delivery failed", "tries", data.CountTries, "err", err)

		if err := r.store.updateEvent(data); err != nil {
			return fmt.Errorf("failed to persist delivery attempt: %w", err)
		}

		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		metrics.IncrCounter([]string{"relayer", "delivered"}, 1)
		logger.Info("event relayed", "tries", data.CountTries)

		data.LastError = ""

		return r.store.complete(data)
	case r.ctx.Err() != nil:
		return r.ctx.Err()
	case data.CountTries >= r.config.MaxAttempts:
		return r.giveUp(logger, data)
	default:
		return err
	}
}

func (r *Relayer) giveUp(logger hclog.Logger, data *EventData) error {
	metrics.IncrCounter([]string{"relayer", "failed"}, 1)
	logger.Error("giving up on event", "tries", data.CountTries, "err", data.LastError)

	data.Failed = true

	return r.store.complete(data)
}

// deliveryFor maps an outbound fact to the matching gateway request, nil for any other fact
func (r *Relayer) deliveryFor(evnt gateway.Event) func(ctx context.Context) error {
	switch e := evnt.(type) {
	case *gateway.DepositAndCallExecuted:
		return func(ctx context.Context) error {
			return r.client.DepositAndCall(ctx, e.RecipientChainID, e.RecipientAddress, e.Amount, e.Message)
		}
	case *gateway.DepositSplTokenAndCallExecuted:
		return func(ctx context.Context) error {
			return r.client.DepositTokenAndCall(ctx, e.Mint, e.RecipientChainID, e.RecipientAddress, e.Amount, e.Message)
		}
	case *gateway.WithdrawAndCallExecuted:
		return func(ctx context.Context) error {
			return r.client.WithdrawAndCall(ctx, e.Recipient, e.Amount, e.Message)
		}
	default:
		return nil
	}
}
