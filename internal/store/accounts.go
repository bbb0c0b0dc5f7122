package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Accounts reads and writes accounts.
//
// Account balances and stats are owned by the ledger. The only direct
// balance write is an explicit override through Update.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) Accounts {
	return Accounts{db: db}
}

type AccountCreate struct {
	Name     string             `json:"name" example:"Checking"`
	Type     models.AccountType `json:"accountType" example:"CHECKING"`
	Balance  decimal.Decimal    `json:"balance" example:"100"`
	Currency string             `json:"currency" example:"USD"`
}

type AccountUpdate struct {
	Name     *string             `json:"name" example:"Checking"`
	Type     *models.AccountType `json:"accountType" example:"SAVINGS"`
	Balance  *decimal.Decimal    `json:"balance" example:"100"`
	Currency *string             `json:"currency" example:"EUR"`
}

type AccountFilter struct {
	Type            models.AccountType
	IncludeInactive bool
}

// Get returns the active account of the user with the given ID.
func (s Accounts) Get(ctx context.Context, userID, id uuid.UUID) (models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return models.Account{}, err
	}

	accounts := []models.Account{account}
	if err := s.withMonthStats(ctx, accounts); err != nil {
		return models.Account{}, err
	}
	return accounts[0], nil
}

// List returns the accounts of a user, ordered by name.
func (s Accounts) List(ctx context.Context, userID uuid.UUID, filter AccountFilter) ([]models.Account, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.IncludeInactive {
		query = query.Unscoped()
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var accounts []models.Account
	if err := query.Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}

	return accounts, s.withMonthStats(ctx, accounts)
}

// Create creates an account with its opening balance.
func (s Accounts) Create(ctx context.Context, userID uuid.UUID, in AccountCreate) (models.Account, error) {
	account := models.Account{
		UserID:   userID,
		Name:     in.Name,
		Type:     in.Type,
		Balance:  in.Balance,
		Currency: in.Currency,
		IsActive: true,
	}

	err := s.db.WithContext(ctx).Create(&account).Error
	account.Stats.MonthlyTransactionCount = map[string]int64{}
	return account, err
}

// Update merges the non-nil fields of in into the account.
func (s Accounts) Update(ctx context.Context, userID, id uuid.UUID, in AccountUpdate) (models.Account, error) {
	account, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Account{}, err
	}

	if in.Name != nil {
		account.Name = *in.Name
	}
	if in.Type != nil {
		account.Type = *in.Type
	}
	if in.Currency != nil {
		account.Currency = *in.Currency
	}
	if in.Balance != nil && !in.Balance.Equal(account.Balance) {
		log.Warn().
			Str("userId", userID.String()).
			Str("accountId", id.String()).
			Str("from", account.Balance.String()).
			Str("to", in.Balance.String()).
			Msg("account balance overridden")
		account.Balance = *in.Balance
	}

	// Only the editable columns are written, the stats belong to the ledger
	err = s.db.WithContext(ctx).Model(&account).Select("name", "type", "currency", "balance").Updates(&account).Error
	return account, err
}

// withMonthStats fills the monthly transaction counts of the accounts.
func (s Accounts) withMonthStats(ctx context.Context, accounts []models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}

	var stats []models.AccountMonthStat
	err := s.db.WithContext(ctx).Where("account_id IN ? AND transaction_count <> 0", ids).Order("month ASC").Find(&stats).Error
	if err != nil {
		return err
	}

	byAccount := make(map[uuid.UUID]map[string]int64, len(accounts))
	for _, stat := range stats {
		if byAccount[stat.AccountID] == nil {
			byAccount[stat.AccountID] = make(map[string]int64)
		}
		byAccount[stat.AccountID][stat.Month] = stat.TransactionCount
	}

	for i := range accounts {
		counts := byAccount[accounts[i].ID]
		if counts == nil {
			counts = map[string]int64{}
		}
		accounts[i].Stats.MonthlyTransactionCount = counts
	}

	return nil
}
