package service

import (
	"context"

	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/stretchr/testify/mock"
)

type mockProvider struct {
	mock.Mock
}

var _ plaid.Provider = (*mockProvider)(nil)

func (m *mockProvider) CreateLinkToken(ctx context.Context, req plaid.LinkTokenRequest) (*plaid.LinkTokenResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*plaid.LinkTokenResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error) {
	args := m.Called(ctx, publicToken)
	if resp, ok := args.Get(0).(*plaid.ExchangeResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error) {
	args := m.Called(ctx, accessToken)
	if resp, ok := args.Get(0).(*plaid.AccountsResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetTransactions(ctx context.Context, req plaid.TransactionsGetRequest) (*plaid.TransactionsGetResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*plaid.TransactionsGetResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) SyncTransactions(ctx context.Context, req plaid.TransactionsSyncRequest) (*plaid.TransactionsSyncResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*plaid.TransactionsSyncResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetItem(ctx context.Context, accessToken string) (*plaid.ItemResponse, error) {
	args := m.Called(ctx, accessToken)
	if resp, ok := args.Get(0).(*plaid.ItemResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) GetInstitution(ctx context.Context, institutionID string, countryCodes []string) (*plaid.Institution, error) {
	args := m.Called(ctx, institutionID, countryCodes)
	if resp, ok := args.Get(0).(*plaid.Institution); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}
