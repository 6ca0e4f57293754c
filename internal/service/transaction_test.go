package service

import (
	"context"
	"testing"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/internal/repository"
	"github.com/nimbuswolf/finance-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_ListTransactions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewTransactionRepository(db)
	svc := NewTransactionService(repo)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }
	seed := []model.Transaction{
		{UserID: "user-1", AccountID: "a1", PlaidTransactionID: "t1", Amount: decimal.NewFromInt(1), Date: day(1)},
		{UserID: "user-1", AccountID: "a1", PlaidTransactionID: "t2", Amount: decimal.NewFromInt(2), Date: day(3), IsPending: true},
		{UserID: "user-1", AccountID: "a2", PlaidTransactionID: "t3", Amount: decimal.NewFromInt(3), Date: day(2)},
		{UserID: "user-2", AccountID: "a9", PlaidTransactionID: "t4", Amount: decimal.NewFromInt(4), Date: day(2)},
	}
	for i := range seed {
		_, err := repo.Upsert(ctx, &seed[i])
		require.NoError(t, err)
	}

	page := constants.PaginationParams{Page: 1, Limit: 2, Offset: 0}
	resp, err := svc.ListTransactions(ctx, dto.TransactionFilter{UserID: "user-1"}, page)
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "t2", resp.Transactions[0].PlaidTransactionID)
	assert.Equal(t, "t3", resp.Transactions[1].PlaidTransactionID)
	assert.Equal(t, constants.Pagination{Total: 3, Page: 1, Limit: 2, PageTotal: 2}, resp.Pagination)

	pending := false
	start := day(2)
	resp, err = svc.ListTransactions(ctx, dto.TransactionFilter{UserID: "user-1", AccountID: "a1", Pending: &pending}, page)
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "t1", resp.Transactions[0].PlaidTransactionID)

	resp, err = svc.ListTransactions(ctx, dto.TransactionFilter{UserID: "user-1", StartDate: &start}, page)
	require.NoError(t, err)
	assert.Len(t, resp.Transactions, 2)

	end := day(1)
	_, err = svc.ListTransactions(ctx, dto.TransactionFilter{UserID: "user-1", StartDate: &start, EndDate: &end}, page)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
