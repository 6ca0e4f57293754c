package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/internal/repository"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultPageSize = 500

// SyncObserver receives per-outcome counts after each sync.
type SyncObserver func(outcome string, n int)

type SyncService struct {
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	provider     plaid.Provider
	cfg          config.PlaidConfig
	observer     SyncObserver
	now          func() time.Time
}

func NewSyncService(accounts *repository.AccountRepository, transactions *repository.TransactionRepository, provider plaid.Provider, cfg config.PlaidConfig, observer SyncObserver) *SyncService {
	if cfg.SyncPolicy == "" {
		cfg.SyncPolicy = config.SyncPolicyFullWindow
	}
	if cfg.SyncWindowDays <= 0 {
		cfg.SyncWindowDays = 30
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if observer == nil {
		observer = func(string, int) {}
	}
	return &SyncService{
		accounts:     accounts,
		transactions: transactions,
		provider:     provider,
		cfg:          cfg,
		observer:     observer,
		now:          time.Now,
	}
}

// syncRun accumulates the outcome of one sync.
type syncRun struct {
	account   *model.ConnectedAccount
	processed int
	created   int
	updated   int
	unchanged int
	removed   int
	errs      []string
}

func (r *syncRun) fail(providerID string, err error) {
	r.errs = append(r.errs, fmt.Sprintf("transaction %s: %v", providerID, err))
}

// SyncTransactions mirrors the provider's transactions for one owned, active
// account. A provider failure aborts the run and leaves last_sync_at untouched;
// a failure saving one transaction is recorded and the loop moves on.
func (s *SyncService) SyncTransactions(ctx context.Context, userID, accountID string) (*dto.SyncResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "SyncTransactions")
	start := time.Now()

	account, err := s.accounts.GetOwned(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !account.IsActive {
		return nil, apperrors.ErrAccountNotFound
	}
	if account.PlaidAccessToken == "" {
		return nil, apperrors.ErrPreconditionFailed
	}

	run := &syncRun{account: account}
	var cursor *string

	switch s.cfg.SyncPolicy {
	case config.SyncPolicyCursor:
		next, err := s.syncCursor(ctx, run)
		if err != nil {
			return nil, err
		}
		cursor = &next
	default:
		if err := s.syncWindow(ctx, run); err != nil {
			return nil, err
		}
	}

	syncedAt := s.now().UTC()
	if err := s.accounts.MarkSynced(ctx, account.ID, syncedAt, cursor); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	account.LastSyncAt = &syncedAt
	if cursor != nil {
		account.SyncCursor = *cursor
	}

	s.observer(repository.OutcomeCreated.String(), run.created)
	s.observer(repository.OutcomeUpdated.String(), run.updated)
	s.observer(repository.OutcomeUnchanged.String(), run.unchanged)
	s.observer("removed", run.removed)
	s.observer("failed", len(run.errs))

	logger.InfoWithContext(ctx, "Transactions synced").
		String("account_id", account.ID).
		String("policy", s.cfg.SyncPolicy).
		Int("processed", run.processed).
		Int("created", run.created).
		Int("updated", run.updated).
		Int("unchanged", run.unchanged).
		Int("removed", run.removed).
		Int("failed", len(run.errs)).
		Duration(time.Since(start)).
		Log()

	errs := run.errs
	if errs == nil {
		errs = []string{}
	}
	return &dto.SyncResponse{
		TransactionsSynced: run.processed,
		Created:            run.created,
		Updated:            run.updated,
		Unchanged:          run.unchanged,
		Removed:            run.removed,
		Failed:             len(run.errs),
		Errors:             errs,
		Account:            dto.NewAccountResponse(account),
	}, nil
}

// syncWindow re-reads the trailing window page by page.
func (s *SyncService) syncWindow(ctx context.Context, run *syncRun) error {
	end := s.now().UTC()
	startDate := end.AddDate(0, 0, -s.cfg.SyncWindowDays)

	offset := 0
	for {
		page, err := s.provider.GetTransactions(ctx, plaid.TransactionsGetRequest{
			AccessToken: run.account.PlaidAccessToken,
			StartDate:   startDate.Format(constants.ProviderDateLayout),
			EndDate:     end.Format(constants.ProviderDateLayout),
			Options: plaid.TransactionsGetOptions{
				AccountIDs: []string{run.account.PlaidAccountID},
				Count:      s.cfg.PageSize,
				Offset:     offset,
			},
		})
		if err != nil {
			logger.ErrorWithContext(ctx, "Provider transaction fetch failed").
				Int("offset", offset).
				Err(err).
				Log()
			return upstreamError(err)
		}

		for _, pt := range page.Transactions {
			s.apply(ctx, run, pt)
		}

		offset += len(page.Transactions)
		if len(page.Transactions) == 0 || offset >= page.TotalTransactions {
			return nil
		}
	}
}

// syncCursor drains /transactions/sync from the stored cursor and returns the next one.
func (s *SyncService) syncCursor(ctx context.Context, run *syncRun) (string, error) {
	cursor := run.account.SyncCursor

	for {
		page, err := s.provider.SyncTransactions(ctx, plaid.TransactionsSyncRequest{
			AccessToken: run.account.PlaidAccessToken,
			Cursor:      cursor,
			Count:       s.cfg.PageSize,
		})
		if err != nil {
			logger.ErrorWithContext(ctx, "Provider transaction sync failed").
				Err(err).
				Log()
			return "", upstreamError(err)
		}

		for _, pt := range page.Added {
			s.apply(ctx, run, pt)
		}
		for _, pt := range page.Modified {
			s.apply(ctx, run, pt)
		}

		var removed []string
		for _, rt := range page.Removed {
			if s.belongs(run.account, rt.AccountID) {
				removed = append(removed, rt.TransactionID)
			}
		}
		if len(removed) > 0 {
			run.processed += len(removed)
			n, err := s.transactions.MarkRemoved(ctx, run.account.UserID, removed)
			if err != nil {
				for _, id := range removed {
					run.fail(id, err)
				}
			} else {
				run.removed += int(n)
			}
		}

		cursor = page.NextCursor
		if !page.HasMore {
			return cursor, nil
		}
	}
}

func (s *SyncService) belongs(account *model.ConnectedAccount, providerAccountID string) bool {
	return account.PlaidAccountID == "" || providerAccountID == account.PlaidAccountID
}

func (s *SyncService) apply(ctx context.Context, run *syncRun, pt plaid.Transaction) {
	if !s.belongs(run.account, pt.AccountID) {
		return
	}
	run.processed++

	txn, err := toTransaction(run.account, pt)
	if err != nil {
		run.fail(pt.TransactionID, err)
		return
	}

	outcome, err := s.transactions.Upsert(ctx, txn)
	if err != nil {
		run.fail(pt.TransactionID, errors.New("failed to save"))
		return
	}

	switch outcome {
	case repository.OutcomeCreated:
		run.created++
	case repository.OutcomeUpdated:
		run.updated++
	default:
		run.unchanged++
	}
}

// toTransaction maps a provider transaction onto the stored shape. The legacy
// category list wins; the personal finance category fills in when it is empty.
func toTransaction(account *model.ConnectedAccount, pt plaid.Transaction) (*model.Transaction, error) {
	if pt.TransactionID == "" {
		return nil, errors.New("missing transaction id")
	}
	date, err := time.Parse(constants.ProviderDateLayout, pt.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", pt.Date)
	}

	categories := pt.Category
	if len(categories) == 0 && pt.PersonalFinanceCategory != nil {
		for _, c := range []string{pt.PersonalFinanceCategory.Primary, pt.PersonalFinanceCategory.Detailed} {
			if c != "" {
				categories = append(categories, c)
			}
		}
	}

	var primary, detailed string
	if len(categories) > 0 {
		primary = categories[0]
		detailed = strings.Join(categories, ", ")
	}

	currency := pt.IsoCurrencyCode
	if currency == "" {
		currency = pt.UnofficialCurrencyCode
	}

	return &model.Transaction{
		UserID:             account.UserID,
		AccountID:          account.ID,
		PlaidTransactionID: pt.TransactionID,
		Amount:             pt.Amount.Round(2),
		IsoCurrencyCode:    currency,
		Date:               date,
		Name:               pt.Name,
		MerchantName:       pt.MerchantName,
		CategoryPrimary:    primary,
		CategoryDetailed:   detailed,
		Categories:         datatypes.NewJSONSlice(append([]string{}, categories...)),
		IsPending:          pt.Pending,
	}, nil
}
