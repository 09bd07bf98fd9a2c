package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/api/dto"
	"github.com/spec-kit/helpdesk-triage/internal/config"
	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/persistence"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
	"github.com/spec-kit/helpdesk-triage/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "retriage <ticket-id>...",
		Short: "Run ticket triage again",
		Long: `Run the triage pipeline for one or more tickets under fresh trace ids.

By default each run executes in this process against Postgres and its result
is printed as one JSON object per line. With --enqueue the tickets are pushed
onto the Redis triage stream for the API workers instead.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			if enqueue {
				return enqueueTickets(cmd, cfg, logger, args)
			}
			return runTickets(cmd, cfg, logger, args)
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "push tickets onto the triage stream instead of running them here")
	return cmd
}

func enqueueTickets(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, ticketIDs []string) error {
	ctx := cmd.Context()
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if !redis.Enabled() {
		return errors.New("--enqueue requires a reachable redis (REDIS_ADDR)")
	}

	producer := worker.NewStreamProducer(redis.Client, cfg.Triage.Stream, logger)
	for _, id := range ticketIDs {
		if err := producer.Enqueue(ctx, id); err != nil {
			return fmt.Errorf("enqueueing %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s on %s\n", id, cfg.Triage.Stream)
	}
	return nil
}

func runTickets(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, ticketIDs []string) error {
	ctx := cmd.Context()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connecting postgres: %w", err)
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to run triage locally")
	}

	repos := repository.NewPostgresRepositories(pg.Pool, domain.TriageSettings{
		AutoCloseEnabled:    cfg.Triage.DefaultAutoCloseEnabled,
		ConfidenceThreshold: cfg.Triage.DefaultConfidenceThreshold,
		SLAHours:            cfg.Triage.DefaultSLAHours,
	})
	orchestrator := triage.NewPipeline(repos, triage.PipelineConfig{
		Logger:       logger,
		Tracer:       observability.NewTracer(),
		StageTimeout: cfg.Triage.StageTimeout(),
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, id := range ticketIDs {
		res := orchestrator.Run(ctx, id)
		if !res.Success {
			failed++
		}
		if err := enc.Encode(dto.NewTriageResponse(res)); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(ticketIDs))
	}
	return nil
}
