// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/budget"
	"github.com/pocketledger/backend/internal/config"
	"github.com/pocketledger/backend/internal/ledger"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/store"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v      *viper.Viper
	logger *log.Logger
	engine *ledger.Engine
	users  store.Users
}

// Run executes ledgerctl with args and closes the database afterwards.
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	defer models.Close()
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cfg := config.Load()

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Repair and inspect the ledger database",
		Long: `ledgerctl works directly on the ledger database.

It recalculates budget spending from the transactions, refreshes the
account and category names stored on transactions and creates users.

Example:
  ledgerctl create-user --name Alex --email alex@example.com
  ledgerctl reconcile --user 4e743e94-6a4b-44d6-aba5-d77c87103ff7
  ledgerctl denormalize --user 4e743e94-6a4b-44d6-aba5-d77c87103ff7`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("db-path", cfg.DBPath, "path of the SQLite database")
	flags.Int("concurrency", cfg.WorkerConcurrency, "number of categories reconciled at the same time")
	flags.Bool("debug", false, "enable debug logging")

	for key, env := range map[string]string{
		"db-path":     "DB_PATH",
		"concurrency": "WORKER_CONCURRENCY",
		"debug":       "LEDGERCTL_DEBUG",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
		_ = a.v.BindEnv(key, env)
	}

	root.AddCommand(a.reconcileCmd(), a.denormalizeCmd(), a.createUserCmd())
	return root
}

// setup configures logging and opens the database.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level, zerologLevel := log.InfoLevel, zerolog.WarnLevel
	if a.v.GetBool("debug") {
		level, zerologLevel = log.DebugLevel, zerolog.DebugLevel
	}

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		Prefix:          "ledgerctl",
		Level:           level,
	})

	// The ledger packages log through zerolog
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(zerologLevel).With().Timestamp().Logger()

	path := a.v.GetString("db-path")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	a.logger.Debug("opening database", "path", path)
	if err := models.Connect(path); err != nil {
		a.logger.Error("could not open database", "path", path, "err", err)
		return err
	}

	a.users = store.NewUsers(models.DB)
	a.engine = ledger.New(models.DB,
		ledger.WithReconciler(budget.NewReconciler(models.DB, a.v.GetInt("concurrency"))),
	)
	return nil
}

// user parses the ID and verifies that the user exists.
func (a *app) user(ctx context.Context, id string) (uuid.UUID, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID %q: %w", id, err)
	}

	if _, err := a.users.Get(ctx, userID); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}
