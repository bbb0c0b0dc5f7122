package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Batch collects writes that are committed together in one database
// transaction. Either all writes of a batch are applied or none is.
type Batch struct {
	writes []write
}

type write struct {
	desc  string
	apply func(tx *gorm.DB) error
}

// Len returns the number of writes in the batch.
func (b *Batch) Len() int {
	return len(b.writes)
}

// Do adds an arbitrary write. If fn returns an error, the batch is rolled back.
func (b *Batch) Do(desc string, fn func(tx *gorm.DB) error) {
	b.writes = append(b.writes, write{desc: desc, apply: fn})
}

// Create adds the creation of value.
func (b *Batch) Create(value any) {
	b.Do(fmt.Sprintf("create %T", value), func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(value).Error
	})
}

// Save adds a full update of value, running its hooks.
func (b *Batch) Save(value any) {
	b.Do(fmt.Sprintf("save %T", value), func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(value).Error
	})
}

// UpdateFields writes the named fields of value, a model with its ID set,
// running its hooks. Only active rows are written, the batch fails with a
// not found error if the row has been deleted.
func (b *Batch) UpdateFields(value any, fields ...string) {
	b.Do(fmt.Sprintf("update %T", value), func(tx *gorm.DB) error {
		res := tx.Select(fields).Updates(value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return notFound(value)
		}
		return nil
	})
}

// Update sets columns on the row of model with the given ID. Soft-deleted
// rows are updated too, bookkeeping on them must stay possible.
func (b *Batch) Update(model any, id uuid.UUID, values map[string]any) {
	b.Do(fmt.Sprintf("update %T %s", model, id), func(tx *gorm.DB) error {
		return updateRow(tx, model, id, values)
	})
}

// Delete soft-deletes the row of model with the given ID.
func (b *Batch) Delete(model any, id uuid.UUID) {
	b.Do(fmt.Sprintf("delete %T %s", model, id), func(tx *gorm.DB) error {
		res := tx.Delete(model, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(model)
		}
		return nil
	})
}

// Increment adds delta to an integer column.
func (b *Batch) Increment(model any, id uuid.UUID, column string, delta int64) {
	b.Do(fmt.Sprintf("increment %T.%s", model, column), func(tx *gorm.DB) error {
		return updateRow(tx, model, id, map[string]any{column: gorm.Expr(column+" + ?", delta)})
	})
}

// IncrementDecimal adds delta to a decimal column.
//
// The value is read and written inside the batch's transaction so that
// the arithmetic is done exactly in Go instead of in floating point by SQLite.
func (b *Batch) IncrementDecimal(model any, id uuid.UUID, column string, delta decimal.Decimal) {
	b.Do(fmt.Sprintf("increment %T.%s", model, column), func(tx *gorm.DB) error {
		current, err := ReadDecimal(tx, model, id, column)
		if err != nil {
			return err
		}
		return updateRow(tx, model, id, map[string]any{column: current.Add(delta)})
	})
}

// IncrementAccountMonth adds delta to the transaction count of an account in a month.
func (b *Batch) IncrementAccountMonth(accountID uuid.UUID, month string, delta int64) {
	b.Do("increment account month", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]any{"transaction_count": gorm.Expr("account_month_stats.transaction_count + ?", delta)}),
		}).Create(&models.AccountMonthStat{AccountID: accountID, Month: month, TransactionCount: delta}).Error
	})
}

// IncrementCategoryMonth adds delta to the spending of a category in a month.
func (b *Batch) IncrementCategoryMonth(categoryID uuid.UUID, month string, delta decimal.Decimal) {
	b.Do("increment category month", func(tx *gorm.DB) error {
		var spending models.CategoryMonthSpending
		err := tx.Where(models.CategoryMonthSpending{CategoryID: categoryID, Month: month}).
			FirstOrCreate(&spending).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.CategoryMonthSpending{}).
			Where("category_id = ? AND month = ?", categoryID, month).
			Update("amount", spending.Amount.Add(delta)).Error
	})
}

// Touch sets a timestamp column to now.
func (b *Batch) Touch(model any, id uuid.UUID, column string, now time.Time) {
	b.Update(model, id, map[string]any{column: now.In(time.UTC)})
}

// Commit applies all writes in a single database transaction.
func (b *Batch) Commit(ctx context.Context, db *gorm.DB) error {
	if len(b.writes) == 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range b.writes {
			if err := w.apply(tx); err != nil {
				return fmt.Errorf("%s: %w", w.desc, err)
			}
		}
		return nil
	})
}

func updateRow(tx *gorm.DB, model any, id uuid.UUID, values map[string]any) error {
	res := tx.Session(&gorm.Session{SkipHooks: true}).Unscoped().Model(model).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(model)
	}
	return nil
}

// ReadDecimal reads a decimal column of the row of model with the given ID.
func ReadDecimal(tx *gorm.DB, model any, id uuid.UUID, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	err := tx.Session(&gorm.Session{SkipHooks: true}).Unscoped().Model(model).Where("id = ?", id).Pluck(column, &values).Error
	if err != nil {
		return decimal.Zero, err
	}
	if len(values) == 0 {
		return decimal.Zero, notFound(model)
	}
	return values[0], nil
}

func notFound(model any) error {
	name := strings.ToLower(reflect.Indirect(reflect.ValueOf(model)).Type().Name())
	return fmt.Errorf("%w %s matching your query", models.ErrResourceNotFound, name)
}
