package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Ledger writes by operation and result.",
	}, []string{"operation", "result"})

	reconciliationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reconciliation_failures_total",
		Help: "Budget reconciliations that failed after a committed ledger write.",
	})
)

func init() {
	prometheus.MustRegister(transactionsTotal, reconciliationFailuresTotal)
}

func observe(operation string, err error) {
	result := "success"
	switch {
	case errors.Is(err, ErrConsistencyFailure):
		result = "inconsistent"
	case err != nil:
		result = "error"
	}
	transactionsTotal.WithLabelValues(operation, result).Inc()
}
