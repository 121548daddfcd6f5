package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/reports"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// OpenPool connects to PG_DSN with the configured pool size, tagging
// sessions with the service name.
func OpenPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	return db.Open(ctx, db.PoolConfig{
		DSN:             cfg.PGDSN,
		MaxConns:        cfg.PGMaxConns,
		ApplicationName: serviceName,
	})
}

// NewLedgerService wires the voucher workflow onto PostgreSQL with audit
// recording, linked-record sync, the status outbox and workflow metrics.
func NewLedgerService(pool *pgxpool.Pool, cfg *Config, metrics *observability.Metrics, logger *slog.Logger) *ledger.Service {
	channel := integration.DefaultChannel
	if cfg != nil && cfg.StatusChannel != "" {
		channel = cfg.StatusChannel
	}
	serviceCfg := ledger.ServiceConfig{
		Epsilon: cfg.LedgerEpsilon(),
		Sync:    integration.NewHooks(channel, logger),
		Logger:  logger,
	}
	if metrics != nil {
		serviceCfg.Observer = metrics
	}
	return ledger.NewService(ledger.NewRepository(pool), audit.NewRecorder(), serviceCfg)
}

// NewOutboxRelay wires delivery of committed status notifications to Redis.
func NewOutboxRelay(pool *pgxpool.Pool, publisher integration.Publisher, cfg *Config, logger *slog.Logger) *integration.Relay {
	var relayCfg integration.RelayConfig
	if cfg != nil {
		relayCfg.BatchSize = cfg.OutboxBatchSize
		relayCfg.PollInterval = cfg.OutboxPollInterval
	}
	return integration.NewRelay(integration.NewOutboxStore(pool), publisher, relayCfg, logger)
}

// NewStatements wires the statement service onto PostgreSQL.
func NewStatements(pool *pgxpool.Pool, logger *slog.Logger) *reports.Service {
	return reports.NewService(reports.NewRepository(pool), logger)
}

// NewIntegrityJob wires the ledger integrity scan.
func NewIntegrityJob(pool *pgxpool.Pool, cfg *Config, metrics *observability.Metrics, logger *slog.Logger) *jobs.IntegrityJob {
	return jobs.NewIntegrityJob(jobs.NewIntegrityStore(pool), NewStatements(pool, logger), cfg.LedgerEpsilon(), logger, metrics.Jobs())
}
