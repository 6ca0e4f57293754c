package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nimbuswolf/finance-api/pkg/logger"
	plaidapi "github.com/plaid/plaid-go/v29/plaid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opLinkTokenCreate     = "link_token_create"
	opPublicTokenExchange = "item_public_token_exchange"
	opAccountsGet         = "accounts_get"
	opTransactionsGet     = "transactions_get"
	opTransactionsSync    = "transactions_sync"
	opItemGet             = "item_get"
	opInstitutionsGet     = "institutions_get_by_id"

	defaultTimeout = 30 * time.Second
)

// Provider is the subset of the aggregation API the service layer depends on.
type Provider interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error)
	GetTransactions(ctx context.Context, req TransactionsGetRequest) (*TransactionsGetResponse, error)
	SyncTransactions(ctx context.Context, req TransactionsSyncRequest) (*TransactionsSyncResponse, error)
	GetItem(ctx context.Context, accessToken string) (*ItemResponse, error)
	GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*Institution, error)
}

type Config struct {
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration
}

// Client adapts the Plaid SDK to Provider. It does not retry.
type Client struct {
	api *plaidapi.PlaidApiService
}

var _ Provider = (*Client)(nil)

type Option func(*plaidapi.Configuration)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *plaidapi.Configuration) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conf := plaidapi.NewConfiguration()
	conf.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	conf.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	conf.Servers = plaidapi.ServerConfigurations{{URL: strings.TrimRight(cfg.BaseURL, "/")}}
	conf.HTTPClient = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(conf)
	}

	return &Client{api: plaidapi.NewAPIClient(conf).PlaidApi}
}

// done logs the call and turns an SDK failure into *Error when the provider answered.
func done(op string, start time.Time, resp *http.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err == nil {
		logger.GetLogger().Debug("Provider request completed",
			zap.String("operation", op),
			zap.Int("status_code", status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	logger.GetLogger().Warn("Provider request failed",
		zap.String("operation", op),
		zap.Int("status_code", status),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if status == 0 {
		return err
	}
	return toError(status, err)
}

func toError(status int, err error) *Error {
	var body []byte
	var apiErr plaidapi.GenericOpenAPIError
	var apiErrPtr *plaidapi.GenericOpenAPIError
	switch {
	case errors.As(err, &apiErr):
		body = apiErr.Body()
	case errors.As(err, &apiErrPtr):
		body = apiErrPtr.Body()
	}

	perr := &Error{HTTPStatus: status}
	if jsonErr := json.Unmarshal(body, perr); jsonErr != nil || perr.ErrorCode == "" {
		perr.ErrorType = "API_ERROR"
		perr.ErrorCode = http.StatusText(status)
		perr.ErrorMessage = truncate(strings.TrimSpace(string(body)), 256)
		if perr.ErrorMessage == "" {
			perr.ErrorMessage = err.Error()
		}
	}
	return perr
}

func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error) {
	countries := make([]plaidapi.CountryCode, 0, len(req.CountryCodes))
	for _, cc := range req.CountryCodes {
		countries = append(countries, plaidapi.CountryCode(cc))
	}
	products := make([]plaidapi.Products, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, plaidapi.Products(p))
	}

	body := plaidapi.NewLinkTokenCreateRequest(
		req.ClientName,
		req.Language,
		countries,
		*plaidapi.NewLinkTokenCreateRequestUser(req.User.ClientUserID),
	)
	body.SetProducts(products)
	if req.RedirectURI != "" {
		body.SetRedirectUri(req.RedirectURI)
	}
	if req.Webhook != "" {
		body.SetWebhook(req.Webhook)
	}

	start := time.Now()
	out, resp, err := c.api.LinkTokenCreate(ctx).LinkTokenCreateRequest(*body).Execute()
	if err := done(opLinkTokenCreate, start, resp, err); err != nil {
		return nil, err
	}
	return &LinkTokenResponse{
		LinkToken:  out.GetLinkToken(),
		Expiration: out.GetExpiration().UTC().Format(time.RFC3339),
		RequestID:  out.GetRequestId(),
	}, nil
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	start := time.Now()
	out, resp, err := c.api.ItemPublicTokenExchange(ctx).
		ItemPublicTokenExchangeRequest(*plaidapi.NewItemPublicTokenExchangeRequest(publicToken)).
		Execute()
	if err := done(opPublicTokenExchange, start, resp, err); err != nil {
		return nil, err
	}
	return &ExchangeResponse{
		AccessToken: out.GetAccessToken(),
		ItemID:      out.GetItemId(),
		RequestID:   out.GetRequestId(),
	}, nil
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	start := time.Now()
	out, resp, err := c.api.AccountsGet(ctx).
		AccountsGetRequest(*plaidapi.NewAccountsGetRequest(accessToken)).
		Execute()
	if err := done(opAccountsGet, start, resp, err); err != nil {
		return nil, err
	}

	item := out.GetItem()
	return &AccountsResponse{
		Accounts:  toAccounts(out.GetAccounts()),
		Item:      Item{ItemID: item.GetItemId(), InstitutionID: item.GetInstitutionId()},
		RequestID: out.GetRequestId(),
	}, nil
}

func (c *Client) GetTransactions(ctx context.Context, req TransactionsGetRequest) (*TransactionsGetResponse, error) {
	options := plaidapi.NewTransactionsGetRequestOptions()
	if len(req.Options.AccountIDs) > 0 {
		options.SetAccountIds(req.Options.AccountIDs)
	}
	if req.Options.Count > 0 {
		options.SetCount(int32(req.Options.Count))
	}
	options.SetOffset(int32(req.Options.Offset))

	body := plaidapi.NewTransactionsGetRequest(req.AccessToken, req.StartDate, req.EndDate)
	body.SetOptions(*options)

	start := time.Now()
	out, resp, err := c.api.TransactionsGet(ctx).TransactionsGetRequest(*body).Execute()
	if err := done(opTransactionsGet, start, resp, err); err != nil {
		return nil, err
	}

	item := out.GetItem()
	return &TransactionsGetResponse{
		Accounts:          toAccounts(out.GetAccounts()),
		Transactions:      toTransactions(out.GetTransactions()),
		TotalTransactions: int(out.GetTotalTransactions()),
		Item:              Item{ItemID: item.GetItemId(), InstitutionID: item.GetInstitutionId()},
		RequestID:         out.GetRequestId(),
	}, nil
}

func (c *Client) SyncTransactions(ctx context.Context, req TransactionsSyncRequest) (*TransactionsSyncResponse, error) {
	body := plaidapi.NewTransactionsSyncRequest(req.AccessToken)
	if req.Cursor != "" {
		body.SetCursor(req.Cursor)
	}
	if req.Count > 0 {
		body.SetCount(int32(req.Count))
	}

	start := time.Now()
	out, resp, err := c.api.TransactionsSync(ctx).TransactionsSyncRequest(*body).Execute()
	if err := done(opTransactionsSync, start, resp, err); err != nil {
		return nil, err
	}

	removed := make([]RemovedTransaction, 0, len(out.GetRemoved()))
	for _, r := range out.GetRemoved() {
		removed = append(removed, RemovedTransaction{TransactionID: r.GetTransactionId(), AccountID: r.GetAccountId()})
	}
	return &TransactionsSyncResponse{
		Added:      toTransactions(out.GetAdded()),
		Modified:   toTransactions(out.GetModified()),
		Removed:    removed,
		NextCursor: out.GetNextCursor(),
		HasMore:    out.GetHasMore(),
		RequestID:  out.GetRequestId(),
	}, nil
}

func (c *Client) GetItem(ctx context.Context, accessToken string) (*ItemResponse, error) {
	start := time.Now()
	out, resp, err := c.api.ItemGet(ctx).ItemGetRequest(*plaidapi.NewItemGetRequest(accessToken)).Execute()
	if err := done(opItemGet, start, resp, err); err != nil {
		return nil, err
	}

	item := out.GetItem()
	return &ItemResponse{
		Item:      Item{ItemID: item.GetItemId(), InstitutionID: item.GetInstitutionId()},
		RequestID: out.GetRequestId(),
	}, nil
}

func (c *Client) GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*Institution, error) {
	countries := make([]plaidapi.CountryCode, 0, len(countryCodes))
	for _, cc := range countryCodes {
		countries = append(countries, plaidapi.CountryCode(cc))
	}

	start := time.Now()
	out, resp, err := c.api.InstitutionsGetById(ctx).
		InstitutionsGetByIdRequest(*plaidapi.NewInstitutionsGetByIdRequest(institutionID, countries)).
		Execute()
	if err := done(opInstitutionsGet, start, resp, err); err != nil {
		return nil, err
	}

	inst := out.GetInstitution()
	return &Institution{InstitutionID: inst.GetInstitutionId(), Name: inst.GetName()}, nil
}

func toAccounts(in []plaidapi.AccountBase) []Account {
	out := make([]Account, 0, len(in))
	for _, a := range in {
		balances := a.GetBalances()
		acc := Account{
			AccountID:    a.GetAccountId(),
			Name:         a.GetName(),
			OfficialName: a.GetOfficialName(),
			Mask:         a.GetMask(),
			Type:         string(a.GetType()),
			Subtype:      string(a.GetSubtype()),
			Balances:     Balances{IsoCurrencyCode: balances.GetIsoCurrencyCode()},
		}
		if v, ok := balances.GetAvailableOk(); ok && v != nil {
			d := decimal.NewFromFloat(*v)
			acc.Balances.Available = &d
		}
		if v, ok := balances.GetCurrentOk(); ok && v != nil {
			d := decimal.NewFromFloat(*v)
			acc.Balances.Current = &d
		}
		out = append(out, acc)
	}
	return out
}

func toTransactions(in []plaidapi.Transaction) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, t := range in {
		txn := Transaction{
			TransactionID:          t.GetTransactionId(),
			AccountID:              t.GetAccountId(),
			Amount:                 decimal.NewFromFloat(t.GetAmount()),
			IsoCurrencyCode:        t.GetIsoCurrencyCode(),
			UnofficialCurrencyCode: t.GetUnofficialCurrencyCode(),
			Date:                   t.GetDate(),
			Name:                   t.GetName(),
			MerchantName:           t.GetMerchantName(),
			Category:               t.GetCategory(),
			Pending:                t.GetPending(),
		}
		if pfc, ok := t.GetPersonalFinanceCategoryOk(); ok && pfc != nil {
			txn.PersonalFinanceCategory = &PersonalFinanceCategory{
				Primary:  pfc.GetPrimary(),
				Detailed: pfc.GetDetailed(),
			}
		}
		out = append(out, txn)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
