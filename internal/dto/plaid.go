package dto

import (
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/model"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/shopspring/decimal"
)

type LinkTokenResponse struct {
	LinkToken  string `json:"linkToken"`
	Expiration string `json:"expiration"`
}

type ExchangePublicTokenRequest struct {
	PublicToken string `json:"publicToken" binding:"required"`
}

type AccountResponse struct {
	ID              string     `json:"id"`
	PlaidItemID     string     `json:"plaidItemId"`
	PlaidAccountID  string     `json:"plaidAccountId"`
	InstitutionID   string     `json:"institutionId,omitempty"`
	InstitutionName string     `json:"institutionName"`
	AccountType     string     `json:"accountType"`
	AccountSubtype  string     `json:"accountSubtype,omitempty"`
	AccountName     string     `json:"accountName"`
	Mask            string     `json:"mask,omitempty"`
	IsActive        bool       `json:"isActive"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type ExchangeResponse struct {
	Account       AccountResponse   `json:"account"`
	Accounts      []AccountResponse `json:"accounts"`
	PlaidAccounts []plaid.Account   `json:"plaidAccounts"`
}

type AccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SyncResponse struct {
	TransactionsSynced int             `json:"transactionsSynced"`
	Created            int             `json:"created"`
	Updated            int             `json:"updated"`
	Unchanged          int             `json:"unchanged"`
	Removed            int             `json:"removed"`
	Failed             int             `json:"failed"`
	Errors             []string        `json:"errors"`
	Account            AccountResponse `json:"account"`
}

// TransactionFilter is the parsed query of GET /plaid/transactions.
type TransactionFilter struct {
	UserID    string
	AccountID string
	StartDate *time.Time
	EndDate   *time.Time
	Pending   *bool
	Limit     int
	Offset    int
}

type TransactionResponse struct {
	ID                 string          `json:"id"`
	AccountID          string          `json:"accountId"`
	PlaidTransactionID string          `json:"plaidTransactionId"`
	Amount             decimal.Decimal `json:"amount"`
	IsoCurrencyCode    string          `json:"isoCurrencyCode,omitempty"`
	Date               string          `json:"date"`
	Name               string          `json:"name"`
	MerchantName       string          `json:"merchantName,omitempty"`
	CategoryPrimary    string          `json:"categoryPrimary,omitempty"`
	CategoryDetailed   string          `json:"categoryDetailed,omitempty"`
	Categories         []string        `json:"categories"`
	IsPending          bool            `json:"isPending"`
	IsRemoved          bool            `json:"isRemoved"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type TransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   constants.Pagination  `json:"pagination"`
}

func NewAccountResponse(a *model.ConnectedAccount) AccountResponse {
	return AccountResponse{
		ID:              a.ID,
		PlaidItemID:     a.PlaidItemID,
		PlaidAccountID:  a.PlaidAccountID,
		InstitutionID:   a.InstitutionID,
		InstitutionName: a.InstitutionName,
		AccountType:     a.AccountType,
		AccountSubtype:  a.AccountSubtype,
		AccountName:     a.AccountName,
		Mask:            a.Mask,
		IsActive:        a.IsActive,
		LastSyncAt:      a.LastSyncAt,
		CreatedAt:       a.CreatedAt,
	}
}

func NewAccountResponses(accounts []model.ConnectedAccount) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountResponse(&accounts[i]))
	}
	return out
}

func NewTransactionResponse(t *model.Transaction) TransactionResponse {
	categories := []string(t.Categories)
	if categories == nil {
		categories = []string{}
	}
	return TransactionResponse{
		ID:                 t.ID,
		AccountID:          t.AccountID,
		PlaidTransactionID: t.PlaidTransactionID,
		Amount:             t.Amount,
		IsoCurrencyCode:    t.IsoCurrencyCode,
		Date:               t.Date.Format("2006-01-02"),
		Name:               t.Name,
		MerchantName:       t.MerchantName,
		CategoryPrimary:    t.CategoryPrimary,
		CategoryDetailed:   t.CategoryDetailed,
		Categories:         categories,
		IsPending:          t.IsPending,
		IsRemoved:          t.IsRemoved,
		CreatedAt:          t.CreatedAt,
	}
}
