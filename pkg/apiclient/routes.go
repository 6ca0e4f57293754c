package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const apiPrefix = "/api/v1"

// Register creates an account and starts a session with the returned token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/register", req, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	req := map[string]string{"email": email, "password": password}
	var res AuthResult
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/login", req, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

// Refresh renews the access token from the refresh cookie. It shares the
// in-flight refresh with requests that are recovering from an expired token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	v, err, _ := c.refreshes.Do(refreshKey, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Logout ends the session server-side and forgets the access token either way.
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	return c.call(ctx, http.MethodPost, apiPrefix+"/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var res struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, apiPrefix+"/auth/me", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) CreateLinkToken(ctx context.Context) (*LinkToken, error) {
	var res LinkToken
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/plaid/create-link-token", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	req := map[string]string{"publicToken": publicToken}
	var res ExchangeResult
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/plaid/exchange-public-token", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var res struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.call(ctx, http.MethodGet, apiPrefix+"/plaid/accounts", nil, &res); err != nil {
		return nil, err
	}
	return res.Accounts, nil
}

func (c *Client) SyncAccount(ctx context.Context, accountID string) (*SyncResult, error) {
	var res SyncResult
	path := fmt.Sprintf("%s/plaid/accounts/%s/sync", apiPrefix, url.PathEscape(accountID))
	if err := c.call(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	path := fmt.Sprintf("%s/plaid/accounts/%s", apiPrefix, url.PathEscape(accountID))
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) Transactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	var res TransactionPage
	path := apiPrefix + "/plaid/transactions"
	if qs := q.encode(); qs != "" {
		path += "?" + qs
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (q TransactionQuery) encode() string {
	v := url.Values{}
	if q.AccountID != "" {
		v.Set("accountId", q.AccountID)
	}
	if !q.StartDate.IsZero() {
		v.Set("startDate", q.StartDate.Format("2006-01-02"))
	}
	if !q.EndDate.IsZero() {
		v.Set("endDate", q.EndDate.Format("2006-01-02"))
	}
	if q.Pending != nil {
		v.Set("pending", strconv.FormatBool(*q.Pending))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v.Encode()
}

// Health reports the server's dependency checks. A 503 still returns the
// decoded body alongside the *APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.send(ctx, http.MethodGet, apiPrefix+"/health", nil, "")
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(resp.raw, &h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if resp.status != http.StatusOK {
		return &h, &APIError{Status: resp.status, Message: h.Message}
	}
	return &h, nil
}
