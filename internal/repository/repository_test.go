package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Email: "a@example.com", PasswordHash: "x"}))
	err := repo.Create(ctx, &model.User{Email: "a@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	exists, err := repo.ExistsByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_UpdateLastLoginMissingUser(t *testing.T) {
	repo := NewUserRepository(testutil.NewTestDB(t))
	err := repo.UpdateLastLogin(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepository_ListActiveNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"acc-a", "acc-b", "acc-c"} {
		account := &model.ConnectedAccount{
			Base:             model.Base{CreatedAt: base.Add(time.Duration(i) * time.Hour)},
			UserID:           "user-1",
			PlaidItemID:      "item",
			PlaidAccessToken: "access",
			PlaidAccountID:   id,
			InstitutionName:  "Bank",
			AccountType:      "depository",
			AccountName:      id,
		}
		require.NoError(t, repo.SaveLinked(ctx, account))
		if id == "acc-b" {
			require.NoError(t, repo.Deactivate(ctx, "user-1", account.ID))
		}
	}

	accounts, err := repo.ListActiveByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-c", accounts[0].PlaidAccountID)
	assert.Equal(t, "acc-a", accounts[1].PlaidAccountID)
}

func TestAccountRepository_SaveLinkedResetsCursor(t *testing.T) {
	repo := NewAccountRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	account := &model.ConnectedAccount{
		UserID: "user-1", PlaidItemID: "item-1", PlaidAccessToken: "access-1",
		PlaidAccountID: "acc-1", InstitutionName: "Bank", AccountType: "depository", AccountName: "Checking",
	}
	require.NoError(t, repo.SaveLinked(ctx, account))
	cursor := "c9"
	require.NoError(t, repo.MarkSynced(ctx, account.ID, time.Now().UTC(), &cursor))

	relinked := &model.ConnectedAccount{
		UserID: "user-1", PlaidItemID: "item-2", PlaidAccessToken: "access-2",
		PlaidAccountID: "acc-1", InstitutionName: "Bank", AccountType: "depository", AccountName: "Checking",
	}
	require.NoError(t, repo.SaveLinked(ctx, relinked))
	assert.Equal(t, account.ID, relinked.ID)

	stored, err := repo.GetOwned(ctx, "user-1", account.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SyncCursor)
	assert.Equal(t, "item-2", stored.PlaidItemID)
	assert.NotNil(t, stored.LastSyncAt)
}

func TestTransactionRepository_UpsertOutcomes(t *testing.T) {
	repo := NewTransactionRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	newTxn := func(amount string) *model.Transaction {
		return &model.Transaction{
			UserID:             "user-1",
			AccountID:          "acc-1",
			PlaidTransactionID: "t1",
			Amount:             decimal.RequireFromString(amount),
			Date:               time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			Name:               "Coffee",
		}
	}

	first := newTxn("4.50")
	outcome, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	outcome, err = repo.Upsert(ctx, newTxn("4.50"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	changed := newTxn("5.00")
	outcome, err = repo.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, first.ID, changed.ID)

	n, err := repo.MarkRemoved(ctx, "user-2", []string{"t1"})
	require.NoError(t, err)
	assert.Zero(t, n, "other users' rows are untouched")

	n, err = repo.MarkRemoved(ctx, "user-1", []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRepository_UpsertAfterConcurrentInsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	// Another sync stores the same provider transaction just before our insert.
	var competitor *model.Transaction
	injected := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:competing_insert", func(tx *gorm.DB) {
		if injected {
			return
		}
		if _, ok := tx.Statement.Dest.(*model.Transaction); !ok {
			return
		}
		injected = true
		competitor = &model.Transaction{
			UserID:             "user-1",
			AccountID:          "acc-1",
			PlaidTransactionID: "t-race",
			Amount:             decimal.RequireFromString("4.50"),
			Date:               time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			Name:               "Coffee",
		}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(competitor).Error)
	}))

	ours := &model.Transaction{
		UserID:             "user-1",
		AccountID:          "acc-1",
		PlaidTransactionID: "t-race",
		Amount:             decimal.RequireFromString("4.75"),
		Date:               time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Name:               "Coffee",
	}
	outcome, err := repo.Upsert(ctx, ours)

	require.NoError(t, err)
	require.True(t, injected)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, competitor.ID, ours.ID)

	var rows []model.Transaction
	require.NoError(t, db.Where("plaid_transaction_id = ?", "t-race").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "4.75", rows[0].Amount.StringFixed(2))
}
