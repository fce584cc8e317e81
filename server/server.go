package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/0xPolygon/custody-gateway/config"
	"github.com/0xPolygon/custody-gateway/crypto"
	"github.com/0xPolygon/custody-gateway/gateway"
	"github.com/0xPolygon/custody-gateway/helper/common"
	"github.com/0xPolygon/custody-gateway/ledger"
	"github.com/0xPolygon/custody-gateway/ledger/storage"
	"github.com/0xPolygon/custody-gateway/ledger/storage/boltdb"
	"github.com/0xPolygon/custody-gateway/ledger/storage/leveldb"
	"github.com/0xPolygon/custody-gateway/ledger/storage/memory"
	"github.com/0xPolygon/custody-gateway/relayer"
	"github.com/0xPolygon/custody-gateway/types"
)

const (
	ledgerDir  = "ledger"
	relayerDir = "relayer"
)

// Server wires the ledger, the gateway program and the outbound relayer together
type Server struct {
	logger  hclog.Logger
	config  *config.Config
	logFile *os.File

	ledger  *ledger.Ledger
	program *gateway.Program

	relayerStore *relayer.Store
	relayer      *relayer.Relayer

	prometheusServer *http.Server
	prometheusAddr   net.Addr
}

// NewServer creates and starts a server from the configuration. A nil client
// makes the relayer log the outbound requests instead of sending them.
func NewServer(cfg *config.Config, client relayer.GatewayClient, opts ...gateway.Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:  logger,
		config:  cfg,
		logFile: logFile,
	}

	if err := s.setup(client, opts); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}

		return nil, err
	}

	return s, nil
}

func (s *Server) setup(client relayer.GatewayClient, opts []gateway.Option) error {
	if s.config.DataDir != "" {
		if err := common.SetupDataDir(s.config.DataDir, []string{ledgerDir, relayerDir}); err != nil {
			return err
		}
	}

	if err := s.setupTelemetry(); err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	db, err := s.openStorage()
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", s.config.Storage, err)
	}

	s.ledger, err = ledger.NewLedger(db, s.logger, int(s.config.CacheSize))
	if err != nil {
		_ = db.Close()

		return err
	}

	programID := gateway.DefaultProgramID

	if s.config.ProgramID != "" {
		if err := programID.UnmarshalText([]byte(s.config.ProgramID)); err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
	}

	backoff, err := config.ParseDuration(s.config.ConflictBackoff)
	if err != nil {
		return err
	}

	opts = append([]gateway.Option{
		gateway.WithConflictRetry(uint64(s.config.ConflictRetries), backoff),
	}, opts...)

	s.program = gateway.NewProgram(programID, s.ledger, s.logger, opts...)

	if err := s.bootstrapGateway(); err != nil {
		return fmt.Errorf("failed to bootstrap gateway: %w", err)
	}

	if s.config.Relayer != nil && s.config.Relayer.Enabled {
		if err := s.setupRelayer(client); err != nil {
			return fmt.Errorf("failed to setup relayer: %w", err)
		}
	}

	s.logger.Info("server started", "program", programID, "storage", s.config.Storage)

	return nil
}

func (s *Server) openStorage() (storage.KV, error) {
	logger := s.logger.Named("storage")

	switch s.config.Storage {
	case config.StorageMemory:
		return memory.NewMemoryStorage(logger)
	case config.StorageLevelDB:
		return leveldb.NewLevelDBStorage(filepath.Join(s.config.DataDir, ledgerDir), logger)
	case config.StorageBoltDB:
		return boltdb.NewBoltDBStorage(filepath.Join(s.config.DataDir, ledgerDir, "ledger.db"), logger)
	default:
		return nil, fmt.Errorf("unknown storage %q", s.config.Storage)
	}
}

// bootstrapGateway initializes the configured gateway instance unless it already exists
func (s *Server) bootstrapGateway() error {
	gw := s.config.Gateway
	if gw == nil || gw.PayerKeyFile == "" {
		return nil
	}

	payer, err := crypto.GenerateOrReadKey(gw.PayerKeyFile)
	if err != nil {
		return err
	}

	var reference types.Identity
	if err := reference.UnmarshalText([]byte(gw.GatewayReference)); err != nil {
		return fmt.Errorf("invalid gateway reference: %w", err)
	}

	// the payer owns the gateway unless an owner is configured
	owner := payer.Identity()

	if gw.Owner != "" {
		if err := owner.UnmarshalText([]byte(gw.Owner)); err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}
	}

	args := &gateway.InitializeArgs{
		Payer:            payer.Identity(),
		Seed:             gw.Seed,
		GatewayReference: reference,
		TargetNetworkID:  uint64(gw.TargetNetworkID),
		Owner:            owner,
	}

	_, err = s.program.Initialize(context.Background(), args, gateway.Sign(payer, args, s.program.ProgramID()))
	if errors.Is(err, gateway.ErrConfigExists) {
		s.logger.Info("gateway already initialized", "seed", gw.Seed)

		return nil
	}

	return err
}

func (s *Server) setupRelayer(client relayer.GatewayClient) error {
	if client == nil {
		client = relayer.NewLoggingClient(s.logger)
	}

	backoff, err := config.ParseDuration(s.config.Relayer.Backoff)
	if err != nil {
		return err
	}

	store, err := relayer.NewStore(filepath.Join(s.config.DataDir, relayerDir, "relayer.db"))
	if err != nil {
		return err
	}

	s.relayerStore = store
	s.relayer = relayer.NewRelayer(s.ledger, client, store, &relayer.Config{
		MaxAttempts: uint64(s.config.Relayer.MaxAttempts),
		Backoff:     backoff,
		BatchSize:   int(s.config.Relayer.BatchSize),
	}, s.logger)

	s.relayer.Start()

	return nil
}

// Program returns the gateway program
func (s *Server) Program() *gateway.Program {
	return s.program
}

// Ledger returns the ledger the program operates on
func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// RelayerStore returns the relayer progress store, nil when the relayer is disabled
func (s *Server) RelayerStore() *relayer.Store {
	return s.relayerStore
}

// PrometheusAddr returns the address the metrics are served on, empty when disabled
func (s *Server) PrometheusAddr() string {
	if s.prometheusAddr == nil {
		return ""
	}

	return s.prometheusAddr.String()
}

// Close stops the relayer and releases every resource of the server
func (s *Server) Close() error {
	var errs error

	if s.relayer != nil {
		s.relayer.Close()
	}

	if s.relayerStore != nil {
		if err := s.relayerStore.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close relayer store: %w", err))
		}
	}

	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close ledger: %w", err))
		}
	}

	if err := s.closePrometheusServer(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to close prometheus server: %w", err))
	}

	s.logger.Info("server closed")

	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs
}

// newLogger builds the root logger, writing to the log file when one is configured
func newLogger(cfg *config.Config) (hclog.Logger, *os.File, error) {
	opts := &hclog.LoggerOptions{
		Name:       "custody",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.JSONLogFormat,
	}

	if cfg.LogFilePath == "" {
		return hclog.New(opts), nil, nil
	}

	logFile, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create log file, %w", err)
	}

	opts.Output = logFile

	return hclog.New(opts), logFile, nil
}
