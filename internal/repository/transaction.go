package repository

import (
	"context"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	"github.com/nimbuswolf/finance-api/internal/model"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertOutcome tells the sync loop what an upsert did.
type UpsertOutcome int

const (
	OutcomeCreated UpsertOutcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert keys on PlaidTransactionID. An existing row is rewritten only when a
// provider-mutable field differs; its id, owner and created_at are kept.
func (r *TransactionRepository) Upsert(ctx context.Context, txn *model.Transaction) (UpsertOutcome, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "Upsert")

	outcome := OutcomeUnchanged
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// insert first so two overlapping syncs cannot both take the create path
		inserted := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plaid_transaction_id"}},
			DoNothing: true,
		}).Create(txn)
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected > 0 {
			outcome = OutcomeCreated
			return nil
		}

		var existing model.Transaction
		err := tx.Where("plaid_transaction_id = ?", txn.PlaidTransactionID).First(&existing).Error
		if err != nil {
			return err
		}

		if existing.SameContent(txn) {
			outcome = OutcomeUnchanged
			*txn = existing
			return nil
		}

		outcome = OutcomeUpdated
		err = tx.Model(&existing).Select(
			"amount", "iso_currency_code", "date", "name", "merchant_name",
			"category_primary", "category_detailed", "categories", "is_pending", "is_removed",
		).Updates(&model.Transaction{
			Amount:           txn.Amount,
			IsoCurrencyCode:  txn.IsoCurrencyCode,
			Date:             txn.Date,
			Name:             txn.Name,
			MerchantName:     txn.MerchantName,
			CategoryPrimary:  txn.CategoryPrimary,
			CategoryDetailed: txn.CategoryDetailed,
			Categories:       txn.Categories,
			IsPending:        txn.IsPending,
			IsRemoved:        txn.IsRemoved,
		}).Error
		if err != nil {
			return err
		}
		txn.ID = existing.ID
		txn.CreatedAt = existing.CreatedAt
		return nil
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to upsert transaction").
			String("plaid_transaction_id", txn.PlaidTransactionID).
			Err(err).
			Log()
		return outcome, err
	}

	return outcome, nil
}

// MarkRemoved flags the given provider transactions of userID as removed and
// returns how many rows changed.
func (r *TransactionRepository) MarkRemoved(ctx context.Context, userID string, plaidTransactionIDs []string) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "MarkRemoved")

	if len(plaidTransactionIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("user_id = ? AND plaid_transaction_id IN ? AND is_removed = ?", userID, plaidTransactionIDs, false).
		Update("is_removed", true)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark transactions removed").
			Int("count", len(plaidTransactionIDs)).
			Err(result.Error).
			Log()
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List returns one page of the user's transactions, date descending, and the total match count.
func (r *TransactionRepository) List(ctx context.Context, filter dto.TransactionFilter) ([]model.Transaction, int64, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "List")

	start := time.Now()
	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", filter.UserID)

	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}
	if filter.Pending != nil {
		query = query.Where("is_pending = ?", *filter.Pending)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count transactions").
			Err(err).
			Log()
		return nil, 0, err
	}

	var txns []model.Transaction
	err := query.
		Order("date DESC").
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&txns).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to fetch transactions").
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, 0, err
	}

	logger.DebugWithContext(ctx, "Transactions listed").
		Int("count", len(txns)).
		Int64("total", total).
		Duration(time.Since(start)).
		Log()
	return txns, total, nil
}
