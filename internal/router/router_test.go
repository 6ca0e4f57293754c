package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/config"
	"github.com/nimbuswolf/finance-api/internal/handler"
	"github.com/nimbuswolf/finance-api/internal/middleware"
	"github.com/nimbuswolf/finance-api/internal/repository"
	"github.com/nimbuswolf/finance-api/internal/service"
	"github.com/nimbuswolf/finance-api/internal/testutil"
	"github.com/nimbuswolf/finance-api/pkg/cache"
	"github.com/nimbuswolf/finance-api/pkg/health"
	"github.com/nimbuswolf/finance-api/pkg/metrics"
	"github.com/nimbuswolf/finance-api/pkg/plaid"
	"github.com/nimbuswolf/finance-api/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Sup3r$ecret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
	Code    string          `json:"code"`
}

// fakeProvider answers the provider routes the link and sync flows call.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/link/token/create", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"link_token":"link-sandbox-1","expiration":"2030-01-01T00:00:00Z","request_id":"r"}`)
	})
	mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"access_token":"access-sandbox-1","item_id":"item-1","request_id":"r"}`)
	})
	mux.HandleFunc("/accounts/get", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"accounts":[{"account_id":"acc-1","name":"Checking","mask":"0000","type":"depository","subtype":"checking","balances":{}}],
			"item":{"item_id":"item-1","institution_id":"ins_1"},"request_id":"r"}`)
	})
	mux.HandleFunc("/institutions/get_by_id", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"institution":{"institution_id":"ins_1","name":"First Platypus Bank"},"request_id":"r"}`)
	})
	mux.HandleFunc("/transactions/get", func(w http.ResponseWriter, r *http.Request) {
		write(w, `{"transactions":[
			{"transaction_id":"tx-1","account_id":"acc-1","amount":12.5,"iso_currency_code":"USD","date":"2024-01-15","name":"Coffee","category":["Food and Drink","Coffee"],"pending":false},
			{"transaction_id":"tx-2","account_id":"acc-1","amount":100,"iso_currency_code":"USD","date":"2024-01-10","name":"Payroll","category":["Transfer"],"pending":true}],
			"total_transactions":2,"item":{"item_id":"item-1","institution_id":"ins_1"},"request_id":"r"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	provider := plaid.NewClient(plaid.Config{BaseURL: fakeProvider(t).URL, ClientID: "cid", Secret: "sec", Timeout: 5 * time.Second})

	cfg := &config.Config{
		App: config.AppConfig{Name: "NimbusWolf", FrontendURL: "http://localhost:5173"},
		Plaid: config.PlaidConfig{
			CountryCodes:       []string{"US"},
			Products:           []string{"transactions"},
			LinkPolicy:         config.LinkPolicyKeepFirst,
			SyncPolicy:         config.SyncPolicyFullWindow,
			ResolveInstitution: true,
		},
	}

	tokens, err := service.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	names := cache.NewCache[string](time.Minute)
	t.Cleanup(names.Stop)

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	institutions := service.NewInstitutionService(accountRepo, provider, cfg.Plaid.CountryCodes, names, time.Hour)
	authHandler := handler.NewAuthHandler(
		service.NewAuthService(userRepo, tokens, service.NoopRevoker{}, bcrypt.MinCost),
		handler.CookieConfig{MaxAge: 7 * 24 * time.Hour},
		false,
	)
	plaidHandler := handler.NewPlaidHandler(
		service.NewLinkService(accountRepo, provider, institutions, cfg.App.Name, cfg.Plaid),
		service.NewSyncService(accountRepo, transactionRepo, provider, cfg.Plaid, nil),
		service.NewTransactionService(transactionRepo),
		false,
	)

	monitor := health.NewMonitor(0, nil)
	monitor.Register("database", &health.DatabaseChecker{DB: db}, true)
	monitor.Register("redis", &health.RedisChecker{Client: redis.NewFromUniversal(nil)}, false)

	return NewRouter(
		authHandler,
		plaidHandler,
		handler.NewHealthHandler(monitor, cfg.App.Name),
		middleware.NewValidationMiddleware(),
		middleware.NewAuthMiddleware(tokens),
		metrics.New(),
		cfg,
	).SetupRoutes()
}

type requestOpt func(*http.Request)

func bearer(token string) requestOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) requestOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any, opts ...requestOpt) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

func register(t *testing.T, engine *gin.Engine, email string) (string, *http.Cookie) {
	t.Helper()
	w, env := do(t, engine, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":     email,
		"password":  strongPassword,
		"firstName": "Ada",
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken, refreshCookie(t, w)
}

func TestAuthFlow(t *testing.T) {
	engine := newTestEngine(t)

	access, cookie := register(t, engine, "  Ada@Example.com ")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)

	w, env := do(t, engine, http.MethodGet, "/api/v1/auth/me", nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ada@example.com", me.User.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w, env = do(t, engine, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": strongPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", env.Message)

	w, env = do(t, engine, http.MethodPost, "/api/v1/auth/refresh-token", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "accessToken")

	w, env = do(t, engine, http.MethodPost, "/api/v1/auth/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logout successful", env.Message)
	assert.Less(t, refreshCookie(t, w).MaxAge, 0)
}

func TestRefresh_WithoutCookie(t *testing.T) {
	engine := newTestEngine(t)

	w, env := do(t, engine, http.MethodPost, "/api/v1/auth/refresh-token", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestLogout_WithoutCookieStillSucceeds(t *testing.T) {
	engine := newTestEngine(t)

	w, env := do(t, engine, http.MethodPost, "/api/v1/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestRegister_Rejections(t *testing.T) {
	engine := newTestEngine(t)
	register(t, engine, "taken@example.com")

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{
			name:    "missing credentials",
			body:    map[string]string{},
			status:  http.StatusBadRequest,
			message: "Email and password are required",
		},
		{
			name:    "bad email",
			body:    map[string]string{"email": "not-an-email", "password": strongPassword},
			status:  http.StatusBadRequest,
			message: "Invalid email format",
		},
		{
			name:   "weak password",
			body:   map[string]string{"email": "weak@example.com", "password": "short"},
			status: http.StatusBadRequest,
		},
		{
			name:    "duplicate email",
			body:    map[string]string{"email": "TAKEN@example.com", "password": strongPassword},
			status:  http.StatusConflict,
			message: "User with this email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, engine, http.MethodPost, "/api/v1/auth/register", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Message)
			}
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	engine := newTestEngine(t)
	register(t, engine, "ada@example.com")

	w, env := do(t, engine, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "Wr0ng$password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestAuthGate(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name    string
		header  string
		message string
		code    string
	}{
		{name: "missing", message: "No authorization header provided"},
		{name: "malformed", header: "Token abc", message: "Invalid authorization header format. Use: Bearer <token>"},
		{name: "invalid", header: "Bearer not-a-jwt", message: "Invalid token", code: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []requestOpt
			if tt.header != "" {
				opts = append(opts, func(r *http.Request) { r.Header.Set("Authorization", tt.header) })
			}

			w, env := do(t, engine, http.MethodGet, "/api/v1/plaid/accounts", nil, opts...)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestPlaidFlow(t *testing.T) {
	engine := newTestEngine(t)
	access, _ := register(t, engine, "ada@example.com")

	w, env := do(t, engine, http.MethodPost, "/api/v1/plaid/create-link-token", nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "link-sandbox-1")

	w, env = do(t, engine, http.MethodPost, "/api/v1/plaid/exchange-public-token", map[string]string{"publicToken": "public-sandbox-1"}, bearer(access))
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var exchanged struct {
		Account struct {
			ID              string `json:"id"`
			InstitutionName string `json:"institutionName"`
		} `json:"account"`
		Accounts []json.RawMessage `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exchanged))
	assert.Equal(t, "First Platypus Bank", exchanged.Account.InstitutionName)
	assert.Len(t, exchanged.Accounts, 1)
	assert.NotContains(t, w.Body.String(), "access-sandbox-1")
	accountID := exchanged.Account.ID

	w, env = do(t, engine, http.MethodPost, "/api/v1/plaid/accounts/"+accountID+"/sync", nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var synced struct {
		TransactionsSynced int `json:"transactionsSynced"`
		Created            int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &synced))
	assert.Equal(t, 2, synced.TransactionsSynced)
	assert.Equal(t, 2, synced.Created)

	w, env = do(t, engine, http.MethodGet, "/api/v1/plaid/transactions?pending=false&limit=5", nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var page struct {
		Transactions []struct {
			PlaidTransactionID string `json:"plaidTransactionId"`
			Amount             string `json:"amount"`
		} `json:"transactions"`
		Pagination struct {
			Total int `json:"total"`
			Limit int `json:"limit"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "tx-1", page.Transactions[0].PlaidTransactionID)
	assert.Equal(t, "12.5", page.Transactions[0].Amount)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.Limit)

	w, env = do(t, engine, http.MethodDelete, "/api/v1/plaid/accounts/"+accountID, nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Account disconnected successfully")

	w, env = do(t, engine, http.MethodGet, "/api/v1/plaid/accounts", nil, bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accounts":[]}`, string(env.Data))

	w, _ = do(t, engine, http.MethodPost, "/api/v1/plaid/accounts/"+accountID+"/sync", nil, bearer(access))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaid_OwnershipAndInput(t *testing.T) {
	engine := newTestEngine(t)
	owner, _ := register(t, engine, "owner@example.com")
	other, _ := register(t, engine, "other@example.com")

	w, env := do(t, engine, http.MethodPost, "/api/v1/plaid/exchange-public-token", map[string]string{}, bearer(owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Public token is required", env.Message)

	_, env = do(t, engine, http.MethodPost, "/api/v1/plaid/exchange-public-token", map[string]string{"publicToken": "public-sandbox-1"}, bearer(owner))
	var exchanged struct {
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exchanged))

	w, env = do(t, engine, http.MethodDelete, "/api/v1/plaid/accounts/"+exchanged.Account.ID, nil, bearer(other))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Account not found", env.Message)

	w, _ = do(t, engine, http.MethodGet, "/api/v1/plaid/accounts", nil, bearer(owner))
	assert.Contains(t, w.Body.String(), exchanged.Account.ID)

	w, _ = do(t, engine, http.MethodGet, "/api/v1/plaid/transactions?startDate=2024-13-40", nil, bearer(owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, engine, http.MethodGet, "/api/v1/plaid/transactions?pending=maybe&endDate=bad", nil, bearer(owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "endDate must be a date in YYYY-MM-DD format", env.Message)
	assert.Equal(t, []string{"endDate must be a date in YYYY-MM-DD format", "pending must be true or false"}, env.Errors)
}

func TestHealthAndFallbacks(t *testing.T) {
	engine := newTestEngine(t)

	w, env := do(t, engine, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "NimbusWolf API is running", env.Message)
	assert.Contains(t, w.Body.String(), `"database"`)

	w, env = do(t, engine, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found - /api/health", env.Message)

	w, env = do(t, engine, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found - /api/v1/nope", env.Message)

	w, _ = do(t, engine, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
