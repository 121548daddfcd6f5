package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-ledger/internal/audit/http"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	reportshttp "github.com/odyssey-erp/odyssey-ledger/internal/reports/http"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

const usage = `usage: odyssey <command> [flags]

commands:
  serve          run the ops server (/healthz, /metrics, statements, audit history)
  migrate        apply pending schema migrations
  trial-balance  print the trial balance of a company
  integrity      run or enqueue the ledger integrity scan
  jobs           inspect the job queue (stats, scheduled, trigger ledger:integrity)
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if command == "help" || command == "-h" || command == "--help" {
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "migrate":
		return migrate(ctx, cfg, logger, stdout)
	case "trial-balance":
		return trialBalance(ctx, cfg, logger, args, stdout, stderr)
	case "integrity":
		return integrity(ctx, cfg, logger, args, stdout, stderr)
	case "jobs":
		return jobsCommand(ctx, cfg, args, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	checks := map[string]app.HealthCheck{"postgres": pool.Ping}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	checks["redis"] = cache.Probe(redisClient)
	if err := checks["redis"](ctx); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		Checks:         checks,
		ReportsHandler: reportshttp.NewHandler(logger, app.NewStatements(pool, logger)),
		AuditHandler:   audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:     jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.OpsAddr,
		Handler:      router,
		ReadTimeout:  cfg.OpsReadTimeout,
		WriteTimeout: cfg.OpsWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting ops server", slog.String("addr", cfg.OpsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("ops server", slog.Any("error", err))
		return 1
	}
	return 0
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger, stdout io.Writer) int {
	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, logger)
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		return 1
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(stdout, "schema is up to date")
		return 0
	}
	for _, version := range applied {
		_, _ = fmt.Fprintf(stdout, "applied %s\n", version)
	}
	return 0
}

func trialBalance(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trial-balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.TrialBalanceOptions{Stdout: stdout, Stderr: stderr}
	fs.Int64Var(&opts.CompanyID, "company", 0, "company id")
	fs.StringVar(&opts.From, "from", "", "period start (YYYY-MM-DD)")
	fs.StringVar(&opts.To, "to", "", "period end (YYYY-MM-DD)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	return cli.NewLedgerOpsCLI(app.NewStatements(pool, logger), nil, nil).TrialBalanceCommand(ctx, opts)
}

func integrity(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("integrity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.IntegrityOptions{Stdout: stdout, Stderr: stderr}
	fs.Int64Var(&opts.CompanyID, "company", 0, "company id (0 scans every company)")
	fs.BoolVar(&opts.Enqueue, "enqueue", false, "hand the scan to the worker instead of running it here")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.Enqueue {
		queue := cli.NewAsynqQueue(cfg.RedisAddr)
		defer func() { _ = queue.Close() }()
		return cli.NewLedgerOpsCLI(nil, nil, queue).IntegrityCommand(ctx, opts)
	}
	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()
	job := app.NewIntegrityJob(pool, cfg, nil, logger)
	return cli.NewLedgerOpsCLI(nil, job, nil).IntegrityCommand(ctx, opts)
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "jobs: expected stats, scheduled or trigger <task>")
		return 2
	}
	opts := cli.JobsOptions{Action: args[0], Stdout: stdout, Stderr: stderr}
	rest := args[1:]
	if opts.Action == "trigger" && len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		opts.Task, rest = rest[0], rest[1:]
	}
	fs := flag.NewFlagSet("jobs "+opts.Action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Int64Var(&opts.CompanyID, "company", 0, "company id for trigger (0 scans every company)")
	fs.IntVar(&opts.Limit, "limit", 20, "number of scheduled tasks to list")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	queue := cli.NewAsynqQueue(cfg.RedisAddr)
	defer func() { _ = queue.Close() }()
	return cli.JobsCommand(ctx, queue, opts)
}
