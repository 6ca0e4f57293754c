package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nimbuswolf/finance-api/pkg/circuit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, ClientID: "cid", Secret: "sec", Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_ExchangeSendsCredentials(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/public_token/exchange", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "cid", r.Header.Get("PLAID-CLIENT-ID"))
		assert.Equal(t, "sec", r.Header.Get("PLAID-SECRET"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, `{"access_token":"access-sandbox-1","item_id":"item-1","request_id":"r1"}`)
	})

	resp, err := client.ExchangePublicToken(context.Background(), "public-sandbox-1")

	require.NoError(t, err)
	assert.Equal(t, "access-sandbox-1", resp.AccessToken)
	assert.Equal(t, "item-1", resp.ItemID)
	assert.Equal(t, "public-sandbox-1", body["public_token"])
}

func TestClient_LinkTokenRequestShape(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/link/token/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, `{"link_token":"link-sandbox-1","expiration":"2030-01-01T04:00:00Z","request_id":"r"}`)
	})

	resp, err := client.CreateLinkToken(context.Background(), LinkTokenRequest{
		ClientName:   "NimbusWolf",
		Language:     "en",
		CountryCodes: []string{"US"},
		Products:     []string{"transactions"},
		User:         LinkUser{ClientUserID: "user-1"},
		Webhook:      "https://example.com/hook",
	})

	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-1", resp.LinkToken)
	assert.Equal(t, "2030-01-01T04:00:00Z", resp.Expiration)
	assert.Equal(t, "NimbusWolf", body["client_name"])
	assert.Equal(t, []any{"US"}, body["country_codes"])
	assert.Equal(t, []any{"transactions"}, body["products"])
	assert.Equal(t, map[string]any{"client_user_id": "user-1"}, body["user"])
	assert.Equal(t, "https://example.com/hook", body["webhook"])
	assert.NotContains(t, body, "redirect_uri")
}

func TestClient_TransactionsGetDecodesAmounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		opts := req["options"].(map[string]any)
		assert.Equal(t, []any{"acc-1"}, opts["account_ids"])
		assert.EqualValues(t, 100, opts["count"])
		assert.Equal(t, "2024-01-01", req["start_date"])

		writeJSON(w, http.StatusOK, `{
			"accounts":[],
			"transactions":[{"transaction_id":"tx-1","account_id":"acc-1","amount":12.5,
			"iso_currency_code":"USD","date":"2024-01-15","name":"Coffee","category":["Food and Drink","Coffee"],
			"personal_finance_category":{"primary":"FOOD_AND_DRINK","detailed":"FOOD_AND_DRINK_COFFEE"},
			"pending":false}],
			"total_transactions":1,"item":{"item_id":"item-1","institution_id":"ins_1"},"request_id":"r"}`)
	})

	resp, err := client.GetTransactions(context.Background(), TransactionsGetRequest{
		AccessToken: "tok",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-31",
		Options:     TransactionsGetOptions{AccountIDs: []string{"acc-1"}, Count: 100},
	})

	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	txn := resp.Transactions[0]
	assert.Equal(t, "12.5", txn.Amount.String())
	assert.Equal(t, []string{"Food and Drink", "Coffee"}, txn.Category)
	require.NotNil(t, txn.PersonalFinanceCategory)
	assert.Equal(t, "FOOD_AND_DRINK", txn.PersonalFinanceCategory.Primary)
	assert.Equal(t, 1, resp.TotalTransactions)
	assert.Equal(t, "ins_1", resp.Item.InstitutionID)
}

func TestClient_SyncMapsRemovals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cursor-1", req["cursor"])
		writeJSON(w, http.StatusOK, `{"added":[],"modified":[],
			"removed":[{"transaction_id":"tx-9","account_id":"acc-1"}],
			"next_cursor":"cursor-2","has_more":false,"request_id":"r"}`)
	})

	resp, err := client.SyncTransactions(context.Background(), TransactionsSyncRequest{AccessToken: "tok", Cursor: "cursor-1"})

	require.NoError(t, err)
	assert.Equal(t, []RemovedTransaction{{TransactionID: "tx-9", AccountID: "acc-1"}}, resp.Removed)
	assert.Equal(t, "cursor-2", resp.NextCursor)
	assert.False(t, resp.HasMore)
}

func TestClient_AccountsMapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"accounts":[{"account_id":"acc-1","name":"Checking","official_name":null,"mask":"0000",
			"type":"depository","subtype":"checking","balances":{"available":10.25,"current":null,"iso_currency_code":"USD"}}],
			"item":{"item_id":"item-1","institution_id":"ins_1"},"request_id":"r"}`)
	})

	resp, err := client.GetAccounts(context.Background(), "tok")

	require.NoError(t, err)
	require.Len(t, resp.Accounts, 1)
	acc := resp.Accounts[0]
	assert.Equal(t, "acc-1", acc.AccountID)
	assert.Equal(t, "0000", acc.Mask)
	assert.Equal(t, "depository", acc.Type)
	assert.Equal(t, "checking", acc.Subtype)
	require.NotNil(t, acc.Balances.Available)
	assert.Equal(t, "10.25", acc.Balances.Available.String())
	assert.Nil(t, acc.Balances.Current)
	assert.Equal(t, "item-1", resp.Item.ItemID)
}

func TestClient_ErrorBodyDecoded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error_type":"INVALID_INPUT","error_code":"INVALID_PUBLIC_TOKEN",
			"error_message":"provided public token is in an invalid format","display_message":null,"request_id":"r2"}`)
	})

	_, err := client.ExchangePublicToken(context.Background(), "bad")

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.HTTPStatus)
	assert.Equal(t, "INVALID_PUBLIC_TOKEN", perr.ErrorCode)
	assert.Equal(t, "r2", perr.RequestID)
	assert.False(t, perr.Temporary())
	assert.False(t, IsProviderFailure(err))
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.GetAccounts(context.Background(), "tok")

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadGateway, perr.HTTPStatus)
	assert.Equal(t, "API_ERROR", perr.ErrorType)
	assert.Equal(t, "upstream unavailable", perr.ErrorMessage)
	assert.True(t, IsProviderFailure(err))
}

func TestClient_TransportErrorIsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, ClientID: "cid", Secret: "sec", Timeout: time.Second})

	_, err := client.GetItem(context.Background(), "tok")

	require.Error(t, err)
	var perr *Error
	assert.False(t, errors.As(err, &perr))
	assert.True(t, IsProviderFailure(err))
}

func TestClient_InstitutionByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/institutions/get_by_id", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"institution":{"institution_id":"ins_3","name":"Chase","country_codes":["US"],"products":[]},"request_id":"r"}`)
	})

	inst, err := client.GetInstitution(context.Background(), "ins_3", []string{"US"})

	require.NoError(t, err)
	assert.Equal(t, "ins_3", inst.InstitutionID)
	assert.Equal(t, "Chase", inst.Name)
}

func TestGuarded_OpensOnServerErrorsOnly(t *testing.T) {
	status := http.StatusInternalServerError
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, status, `{"error_type":"API_ERROR","error_code":"INTERNAL_SERVER_ERROR","error_message":"boom"}`)
	})

	var outcomes []string
	breaker := circuit.NewBreaker("plaid", circuit.Config{Threshold: 2, Timeout: time.Minute, IsFailure: IsProviderFailure}, zap.NewNop())
	guarded := NewGuarded(client, breaker, func(op, outcome string) {
		outcomes = append(outcomes, op+":"+outcome)
	})
	ctx := context.Background()

	_, _ = guarded.GetItem(ctx, "tok")
	_, _ = guarded.GetItem(ctx, "tok")
	_, err := guarded.GetItem(ctx, "tok")

	assert.ErrorIs(t, err, circuit.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"item_get:failure", "item_get:failure", "item_get:circuit_open"}, outcomes)
}

func TestGuarded_ClientErrorsKeepCircuitClosed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"login required"}`)
	})
	breaker := circuit.NewBreaker("plaid", circuit.Config{Threshold: 1, Timeout: time.Minute, IsFailure: IsProviderFailure}, zap.NewNop())
	guarded := NewGuarded(client, breaker, nil)

	for i := 0; i < 3; i++ {
		_, err := guarded.GetAccounts(context.Background(), "tok")
		require.Error(t, err)
	}

	assert.Equal(t, circuit.StateClosed, breaker.State())
}
