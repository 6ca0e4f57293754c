package model

import (
	"time"
)

// ConnectedAccount mirrors one provider account linked by a user.
// PlaidAccessToken is the item credential and never leaves the service layer.
type ConnectedAccount struct {
	Base
	UserID           string     `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_accounts_user_provider,priority:1"`
	PlaidItemID      string     `gorm:"column:plaid_item_id;not null"`
	PlaidAccessToken string     `gorm:"column:plaid_access_token;not null"`
	PlaidAccountID   string     `gorm:"column:plaid_account_id;not null;uniqueIndex:idx_accounts_user_provider,priority:2"`
	InstitutionID    string     `gorm:"column:institution_id"`
	InstitutionName  string     `gorm:"column:institution_name;not null"`
	AccountType      string     `gorm:"column:account_type;not null"`
	AccountSubtype   string     `gorm:"column:account_subtype"`
	AccountName      string     `gorm:"column:account_name;not null"`
	Mask             string     `gorm:"column:mask"`
	IsActive         bool       `gorm:"column:is_active;default:true;not null;index"`
	LastSyncAt       *time.Time `gorm:"column:last_sync_at"`
	SyncCursor       string     `gorm:"column:sync_cursor"`
}
