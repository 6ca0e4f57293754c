package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction is keyed for idempotency by PlaidTransactionID. Rows are never deleted;
// a removal reported by the provider sets IsRemoved.
type Transaction struct {
	Base
	UserID             string                      `gorm:"column:user_id;type:varchar(36);not null;index:idx_transactions_user_date,priority:1"`
	AccountID          string                      `gorm:"column:account_id;type:varchar(36);not null;index"`
	Account            *ConnectedAccount           `gorm:"foreignKey:AccountID"`
	PlaidTransactionID string                      `gorm:"column:plaid_transaction_id;not null;uniqueIndex"`
	Amount             decimal.Decimal             `gorm:"column:amount;type:numeric(14,2);not null"`
	IsoCurrencyCode    string                      `gorm:"column:iso_currency_code"`
	Date               time.Time                   `gorm:"column:date;type:date;not null;index:idx_transactions_user_date,priority:2"`
	Name               string                      `gorm:"column:name"`
	MerchantName       string                      `gorm:"column:merchant_name"`
	CategoryPrimary    string                      `gorm:"column:category_primary"`
	CategoryDetailed   string                      `gorm:"column:category_detailed"`
	Categories         datatypes.JSONSlice[string] `gorm:"column:categories"`
	IsPending          bool                        `gorm:"column:is_pending;default:false;not null"`
	IsRemoved          bool                        `gorm:"column:is_removed;default:false;not null"`
}

// SameContent reports whether every provider-mutable field of t equals other's.
func (t *Transaction) SameContent(other *Transaction) bool {
	if !t.Amount.Equal(other.Amount) ||
		t.IsoCurrencyCode != other.IsoCurrencyCode ||
		!sameDay(t.Date, other.Date) ||
		t.Name != other.Name ||
		t.MerchantName != other.MerchantName ||
		t.CategoryPrimary != other.CategoryPrimary ||
		t.CategoryDetailed != other.CategoryDetailed ||
		t.IsPending != other.IsPending ||
		t.IsRemoved != other.IsRemoved ||
		len(t.Categories) != len(other.Categories) {
		return false
	}
	for i := range t.Categories {
		if t.Categories[i] != other.Categories[i] {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
