package database

import (
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateIndexes adds the partial indexes gorm tags cannot express. Both postgres
// and sqlite accept this syntax. A failed index is logged and skipped.
func CreateIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_accounts_active_user ON connected_accounts(user_id, created_at DESC) WHERE is_active = true",
		"CREATE INDEX IF NOT EXISTS idx_accounts_unknown_institution ON connected_accounts(id) WHERE institution_name = 'Unknown' AND is_active = true",
		"CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.GetLogger().Warn("Failed to create index",
				zap.String("sql", indexSQL),
				zap.Error(err),
			)
		}
	}
	return nil
}
