package service

import (
	"context"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/repository"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
)

type TransactionService struct {
	transactions *repository.TransactionRepository
}

func NewTransactionService(transactions *repository.TransactionRepository) *TransactionService {
	return &TransactionService{transactions: transactions}
}

// ListTransactions returns one page of the caller's stored transactions.
func (s *TransactionService) ListTransactions(ctx context.Context, filter dto.TransactionFilter, page constants.PaginationParams) (*dto.TransactionsResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "ListTransactions")
	start := time.Now()

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "startDate must not be after endDate")
	}

	filter.Limit = page.Limit
	filter.Offset = page.Offset

	txns, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	out := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, dto.NewTransactionResponse(&txns[i]))
	}

	logger.DebugWithContext(ctx, "Transactions retrieved").
		Int("count", len(out)).
		Int64("total", total).
		Duration(time.Since(start)).
		Log()

	return &dto.TransactionsResponse{
		Transactions: out,
		Pagination:   constants.BuildPagination(total, page),
	}, nil
}
