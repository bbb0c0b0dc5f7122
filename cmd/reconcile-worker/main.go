// The reconcile worker consumes budget reconciliation requests that the API
// publishes when budgets could not be updated after a transaction was saved.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketledger/backend/internal/budget"
	"github.com/pocketledger/backend/internal/config"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/queue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	output := io.Writer(os.Stdout)
	if cfg.HumanLogs() {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	log.Logger = log.Output(output).With().Timestamp().Str("component", "reconcile-worker").Logger()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Msg(err.Error())
	}

	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL must be set for the reconcile worker")
	}

	if err := models.Connect(cfg.DBPath); err != nil {
		log.Fatal().Msg(err.Error())
	}
	defer models.Close()

	client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	defer client.Close()

	engine := ledger.New(models.DB,
		ledger.WithStrategy(cfg.Strategy()),
		ledger.WithReconciler(budget.NewReconciler(models.DB, cfg.WorkerConcurrency)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = client.Consume(ctx, cfg.WorkerConcurrency, func(ctx context.Context, msg queue.ReconcileMessage) error {
		return engine.ReconcileBudgetsForCategory(ctx, msg.UserID, msg.CategoryID)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consuming reconciliation requests failed")
		return
	}

	log.Info().Msg("shut down")
}
