package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/model"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// SaveLinked inserts account, or when the user already linked the same provider
// account, refreshes that row and reactivates it. account.ID is set to the stored row's id.
func (r *AccountRepository) SaveLinked(ctx context.Context, account *model.ConnectedAccount) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "SaveLinked")

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ConnectedAccount
		err := tx.Where("user_id = ? AND plaid_account_id = ?", account.UserID, account.PlaidAccountID).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			account.IsActive = true
			return tx.Create(account).Error
		}
		if err != nil {
			return err
		}

		existing.PlaidItemID = account.PlaidItemID
		existing.PlaidAccessToken = account.PlaidAccessToken
		existing.InstitutionID = account.InstitutionID
		existing.InstitutionName = account.InstitutionName
		existing.AccountType = account.AccountType
		existing.AccountSubtype = account.AccountSubtype
		existing.AccountName = account.AccountName
		existing.Mask = account.Mask
		existing.IsActive = true
		// a new item starts a new cursor history
		existing.SyncCursor = ""
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}

		*account = existing
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to save linked account").
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Linked account saved").
		String("account_id", account.ID).
		Duration(duration).
		Log()
	return nil
}

// ListActiveByUser returns the user's active accounts, newest first.
func (r *AccountRepository) ListActiveByUser(ctx context.Context, userID string) ([]model.ConnectedAccount, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "ListActiveByUser")

	start := time.Now()
	var accounts []model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&accounts).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list accounts").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, err
	}

	logger.DebugWithContext(ctx, "Accounts listed").
		Int("count", len(accounts)).
		Duration(time.Since(start)).
		Log()
	return accounts, nil
}

// GetOwned loads an account only if it belongs to userID, active or not.
func (r *AccountRepository) GetOwned(ctx context.Context, userID, accountID string) (*model.ConnectedAccount, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "GetOwned")

	var account model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		First(&account).Error
	if err != nil {
		logger.DebugWithContext(ctx, "Owned account lookup failed").
			String("account_id", accountID).
			Err(err).
			Log()
		return nil, err
	}
	return &account, nil
}

// Deactivate soft-deletes an owned account. Returns gorm.ErrRecordNotFound when
// nothing owned by userID matched.
func (r *AccountRepository) Deactivate(ctx context.Context, userID, accountID string) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "Deactivate")

	result := r.db.WithContext(ctx).
		Model(&model.ConnectedAccount{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		Update("is_active", false)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to deactivate account").
			String("account_id", accountID).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Account deactivated").
		String("account_id", accountID).
		Log()
	return nil
}

// MarkSynced stamps last_sync_at and, when cursor is non-nil, stores the new sync cursor.
func (r *AccountRepository) MarkSynced(ctx context.Context, accountID string, at time.Time, cursor *string) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "MarkSynced")

	updates := map[string]any{"last_sync_at": at}
	if cursor != nil {
		updates["sync_cursor"] = *cursor
	}

	if err := r.db.WithContext(ctx).Model(&model.ConnectedAccount{}).Where("id = ?", accountID).Updates(updates).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to mark account synced").
			String("account_id", accountID).
			Err(err).
			Log()
		return err
	}
	return nil
}

// ListUnresolvedInstitutions returns active accounts still carrying the placeholder institution name.
func (r *AccountRepository) ListUnresolvedInstitutions(ctx context.Context) ([]model.ConnectedAccount, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "ListUnresolvedInstitutions")

	var accounts []model.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("institution_name = ? AND is_active = ?", constants.InstitutionPlaceholder, true).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list unresolved institutions").
			Err(err).
			Log()
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateInstitution(ctx context.Context, accountID, institutionID, institutionName string) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "UpdateInstitution")

	err := r.db.WithContext(ctx).Model(&model.ConnectedAccount{}).Where("id = ?", accountID).
		Updates(map[string]any{
			"institution_id":   institutionID,
			"institution_name": institutionName,
		}).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update institution").
			String("account_id", accountID).
			Err(err).
			Log()
	}
	return err
}
