package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier is told about categories whose budgets need another reconciliation.
type Notifier interface {
	RequestReconciliation(ctx context.Context, userID, categoryID uuid.UUID) error
}

// logNotifier only logs. The reconciliation has to be triggered manually.
type logNotifier struct{}

func (logNotifier) RequestReconciliation(_ context.Context, userID, categoryID uuid.UUID) error {
	log.Warn().
		Str("userId", userID.String()).
		Str("categoryId", categoryID.String()).
		Msg("budgets need reconciliation, no retry queue is configured")
	return nil
}
