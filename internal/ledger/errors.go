package ledger

import (
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("the amount exceeds the balance of the account")
	ErrConflict          = errors.New("the transaction was changed in the meantime, reload it and try again")

	// ErrConsistencyFailure is returned together with a committed transaction
	// when the budgets could not be reconciled afterwards. The transaction
	// stands, the budgets catch up through a later reconciliation.
	ErrConsistencyFailure = errors.New("the transaction was saved, but budgets could not be updated")
)
