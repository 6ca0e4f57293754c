package plaid

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type LinkUser struct {
	ClientUserID string
}

type LinkTokenRequest struct {
	ClientName   string
	Language     string
	CountryCodes []string
	Products     []string
	User         LinkUser
	RedirectURI  string
	Webhook      string
}

type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type Balances struct {
	Available       *decimal.Decimal `json:"available"`
	Current         *decimal.Decimal `json:"current"`
	IsoCurrencyCode string           `json:"iso_currency_code,omitempty"`
}

type Account struct {
	AccountID     string   `json:"account_id"`
	Name          string   `json:"name"`
	OfficialName  string   `json:"official_name,omitempty"`
	Mask          string   `json:"mask,omitempty"`
	Type          string   `json:"type"`
	Subtype       string   `json:"subtype,omitempty"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Balances      Balances `json:"balances"`
}

type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

type ItemResponse struct {
	Item      Item   `json:"item"`
	RequestID string `json:"request_id"`
}

type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  decimal.Decimal          `json:"amount"`
	IsoCurrencyCode         string                   `json:"iso_currency_code"`
	UnofficialCurrencyCode  string                   `json:"unofficial_currency_code"`
	Date                    string                   `json:"date"`
	Name                    string                   `json:"name"`
	MerchantName            string                   `json:"merchant_name"`
	Category                []string                 `json:"category"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	Pending                 bool                     `json:"pending"`
}

type TransactionsGetOptions struct {
	AccountIDs []string
	Count      int
	Offset     int
}

// TransactionsGetRequest dates are YYYY-MM-DD.
type TransactionsGetRequest struct {
	AccessToken string
	StartDate   string
	EndDate     string
	Options     TransactionsGetOptions
}

type TransactionsGetResponse struct {
	Accounts          []Account     `json:"accounts"`
	Transactions      []Transaction `json:"transactions"`
	TotalTransactions int           `json:"total_transactions"`
	Item              Item          `json:"item"`
	RequestID         string        `json:"request_id"`
}

type TransactionsSyncRequest struct {
	AccessToken string
	Cursor      string
	Count       int
}

type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

type TransactionsSyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

// Error is the provider's error body decoded from a non-2xx SDK response.
// HTTPStatus is filled from the response.
type Error struct {
	HTTPStatus     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("plaid %s/%s (status %d): %s", e.ErrorType, e.ErrorCode, e.HTTPStatus, e.ErrorMessage)
}

// Temporary reports whether the failure is on the provider side rather than in the request.
func (e *Error) Temporary() bool {
	return e.HTTPStatus >= 500 || e.HTTPStatus == 429 || e.ErrorType == "API_ERROR" || e.ErrorType == "RATE_LIMIT_EXCEEDED"
}
