package apiclient

import (
	"encoding/json"
	"time"

	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/shopspring/decimal"
)

// envelope mirrors the server's response body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Code    string          `json:"code,omitempty"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	IsVerified bool       `json:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type AuthResult struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

type LinkToken struct {
	LinkToken  string `json:"linkToken"`
	Expiration string `json:"expiration"`
}

type Account struct {
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

type ExchangeResult struct {
	Account       Account         `json:"account"`
	Accounts      []Account       `json:"accounts"`
	PlaidAccounts []plaid.Account `json:"plaidAccounts"`
}

type SyncResult struct {
	TransactionsSynced int      `json:"transactionsSynced"`
	Created            int      `json:"created"`
	Updated            int      `json:"updated"`
	Unchanged          int      `json:"unchanged"`
	Removed            int      `json:"removed"`
	Failed             int      `json:"failed"`
	Errors             []string `json:"errors"`
	Account            Account  `json:"account"`
}

type Transaction struct {
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

type Pagination struct {
	Total     int64 `json:"total"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	PageTotal int   `json:"pageTotal"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// TransactionQuery filters GET /plaid/transactions. Zero values are omitted.
type TransactionQuery struct {
	AccountID string
	StartDate time.Time
	EndDate   time.Time
	Pending   *bool
	Page      int
	Limit     int
}

type Health struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
