package service

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/repository"
	"github.com/nimbuswolf/finance-api/pkg/cache"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
)

var errNoInstitutionID = errors.New("provider returned no institution id")

// InstitutionService resolves institution display names and backfills accounts
// linked while the name was unavailable.
type InstitutionService struct {
	accounts     *repository.AccountRepository
	provider     plaid.Provider
	countryCodes []string
	names        *cache.Cache[string]
	ttl          time.Duration
}

func NewInstitutionService(accounts *repository.AccountRepository, provider plaid.Provider, countryCodes []string, names *cache.Cache[string], ttl time.Duration) *InstitutionService {
	return &InstitutionService{
		accounts:     accounts,
		provider:     provider,
		countryCodes: countryCodes,
		names:        names,
		ttl:          ttl,
	}
}

// Resolve returns the institution's name, served from cache when possible.
func (s *InstitutionService) Resolve(ctx context.Context, institutionID string) (string, error) {
	if institutionID == "" {
		return "", errNoInstitutionID
	}
	key := constants.CacheKeyInstitution + institutionID
	if s.names != nil {
		if name, ok := s.names.Get(key); ok {
			return name, nil
		}
	}

	inst, err := s.provider.GetInstitution(ctx, institutionID, s.countryCodes)
	if err != nil {
		return "", err
	}
	if inst.Name == "" {
		return "", errors.New("provider returned an empty institution name")
	}

	if s.names != nil {
		s.names.Set(key, inst.Name, s.ttl)
	}
	return inst.Name, nil
}

type BackfillResolution struct {
	AccountID       string
	InstitutionID   string
	InstitutionName string
}

type BackfillFailure struct {
	AccountID string
	Reason    string
}

// BackfillReport summarizes one run. In a dry run Resolved lists what would have been written.
type BackfillReport struct {
	DryRun   bool
	Scanned  int
	Updated  int
	Resolved []BackfillResolution
	Failures []BackfillFailure
}

// Backfill looks up names for active accounts still holding the placeholder.
// A failing account is recorded and the run continues.
func (s *InstitutionService) Backfill(ctx context.Context, dryRun bool) (*BackfillReport, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleService, "Backfill")

	pending, err := s.accounts.ListUnresolvedInstitutions(ctx)
	if err != nil {
		return nil, err
	}

	report := &BackfillReport{DryRun: dryRun, Scanned: len(pending)}
	logger.InfoWithContext(ctx, "Institution backfill started").
		Int("accounts", len(pending)).
		Bool("dry_run", dryRun).
		Log()

	for _, account := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		fail := func(reason string) {
			report.Failures = append(report.Failures, BackfillFailure{AccountID: account.ID, Reason: reason})
			logger.WarnWithContext(ctx, "Institution backfill failed for account").
				String("account_id", account.ID).
				String("reason", reason).
				Log()
		}

		if account.PlaidAccessToken == "" {
			fail("no provider access token")
			continue
		}

		institutionID := account.InstitutionID
		if institutionID == "" {
			item, err := s.provider.GetItem(ctx, account.PlaidAccessToken)
			if err != nil {
				fail(err.Error())
				continue
			}
			institutionID = item.Item.InstitutionID
			if institutionID == "" {
				fail(errNoInstitutionID.Error())
				continue
			}
		}

		name, err := s.Resolve(ctx, institutionID)
		if err != nil {
			fail(err.Error())
			continue
		}

		resolution := BackfillResolution{
			AccountID:       account.ID,
			InstitutionID:   institutionID,
			InstitutionName: name,
		}
		if dryRun {
			report.Resolved = append(report.Resolved, resolution)
			continue
		}

		if err := s.accounts.UpdateInstitution(ctx, account.ID, institutionID, name); err != nil {
			fail(err.Error())
			continue
		}
		report.Resolved = append(report.Resolved, resolution)
		report.Updated++
	}

	logger.InfoWithContext(ctx, "Institution backfill finished").
		Int("updated", report.Updated).
		Int("failed", len(report.Failures)).
		Log()
	return report, nil
}
