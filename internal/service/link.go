package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	apperrors "github.com/nimbuswolf/finance-api/internal/errors"
	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/internal/repository"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"gorm.io/gorm"
)

type LinkService struct {
	accounts     *repository.AccountRepository
	provider     plaid.Provider
	institutions *InstitutionService
	appName      string
	cfg          config.PlaidConfig
}

// NewLinkService wires the link flow. institutions may be nil, in which case
// names are left as the placeholder for the backfill job.
func NewLinkService(accounts *repository.AccountRepository, provider plaid.Provider, institutions *InstitutionService, appName string, cfg config.PlaidConfig) *LinkService {
	if cfg.LinkPolicy == "" {
		cfg.LinkPolicy = config.LinkPolicyKeepFirst
	}
	return &LinkService{
		accounts:     accounts,
		provider:     provider,
		institutions: institutions,
		appName:      appName,
		cfg:          cfg,
	}
}

func (s *LinkService) CreateLinkSession(ctx context.Context, userID string) (*dto.LinkTokenResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "CreateLinkSession")

	resp, err := s.provider.CreateLinkToken(ctx, plaid.LinkTokenRequest{
		ClientName:   s.appName,
		Language:     "en",
		CountryCodes: s.cfg.CountryCodes,
		Products:     s.cfg.Products,
		User:         plaid.LinkUser{ClientUserID: userID},
		RedirectURI:  s.cfg.RedirectURI,
		Webhook:      s.cfg.WebhookURL,
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create link token").
			Err(err).
			Log()
		return nil, upstreamError(err)
	}

	logger.InfoWithContext(ctx, "Link token created").Log()
	return &dto.LinkTokenResponse{LinkToken: resp.LinkToken, Expiration: resp.Expiration}, nil
}

// ExchangePublicToken finalizes a link: it trades the public token for an item
// credential and persists accounts according to the link policy.
func (s *LinkService) ExchangePublicToken(ctx context.Context, userID, publicToken string) (*dto.ExchangeResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "ExchangePublicToken")

	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Public token is required")
	}

	exchange, err := s.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		logger.ErrorWithContext(ctx, "Public token exchange failed").
			Err(err).
			Log()
		return nil, upstreamError(err)
	}

	accountsResp, err := s.provider.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to fetch accounts for item").
			String("item_id", exchange.ItemID).
			Err(err).
			Log()
		return nil, upstreamError(err)
	}
	if len(accountsResp.Accounts) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrUpstream, "No accounts returned by provider")
	}

	selected := accountsResp.Accounts
	if s.cfg.LinkPolicy == config.LinkPolicyKeepFirst {
		selected = selected[:1]
	}

	institutionID := accountsResp.Item.InstitutionID
	if institutionID == "" {
		institutionID = selected[0].InstitutionID
	}
	institutionName := s.resolveInstitution(ctx, institutionID)

	itemID := exchange.ItemID
	if itemID == "" {
		itemID = accountsResp.Item.ItemID
	}

	saved := make([]dto.AccountResponse, 0, len(selected))
	for _, pa := range selected {
		account := &model.ConnectedAccount{
			UserID:           userID,
			PlaidItemID:      itemID,
			PlaidAccessToken: exchange.AccessToken,
			PlaidAccountID:   pa.AccountID,
			InstitutionID:    institutionID,
			InstitutionName:  institutionName,
			AccountType:      orDefault(pa.Type, constants.DefaultAccountType),
			AccountSubtype:   pa.Subtype,
			AccountName:      orDefault(pa.Name, constants.DefaultAccountName),
			Mask:             pa.Mask,
		}
		if err := s.accounts.SaveLinked(ctx, account); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		saved = append(saved, dto.NewAccountResponse(account))
	}

	logger.InfoWithContext(ctx, "Accounts linked").
		String("item_id", itemID).
		String("policy", s.cfg.LinkPolicy).
		Int("provider_accounts", len(accountsResp.Accounts)).
		Int("saved_accounts", len(saved)).
		Log()

	return &dto.ExchangeResponse{
		Account:       saved[0],
		Accounts:      saved,
		PlaidAccounts: accountsResp.Accounts,
	}, nil
}

func (s *LinkService) resolveInstitution(ctx context.Context, institutionID string) string {
	if s.institutions == nil || !s.cfg.ResolveInstitution || institutionID == "" {
		return constants.InstitutionPlaceholder
	}

	name, err := s.institutions.Resolve(ctx, institutionID)
	if err != nil {
		logger.WarnWithContext(ctx, "Institution name unresolved, leaving placeholder").
			String("institution_id", institutionID).
			Err(err).
			Log()
		return constants.InstitutionPlaceholder
	}
	return name
}

func (s *LinkService) ListAccounts(ctx context.Context, userID string) ([]dto.AccountResponse, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "ListAccounts")

	accounts, err := s.accounts.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return dto.NewAccountResponses(accounts), nil
}

// DeleteAccount deactivates an account the caller owns. Someone else's account
// is reported exactly like a missing one.
func (s *LinkService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "DeleteAccount")

	if err := s.accounts.Deactivate(ctx, userID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Delete rejected: account not found for caller").
				String("account_id", accountID).
				Log()
			return apperrors.ErrAccountNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
