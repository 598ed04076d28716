package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/betflow/betflow-api/internal/api"
	"github.com/betflow/betflow-api/internal/api/middleware"
	"github.com/betflow/betflow-api/internal/config"
	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/repository/memory"
	"github.com/betflow/betflow-api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "betflow-test"
	testJWTAudience = "betflow-api-test"
)

func TestMain(m *testing.M) {
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
	os.Exit(m.Run())
}

type testAPI struct {
	handler http.Handler
	users   *service.UserService
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	publisher := gateway.NoopPublisher{}
	notify := service.NewNotificationService(gateway.NewLogNotifier())
	users := service.NewUserService(store, notify).WithHashCost(4)

	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		JWTTTL:             time.Hour,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
		CORSAllowedOrigins: []string{"*"},
	}
	services := api.Services{
		Users:      users,
		Identities: service.NewIdentityService(store),
		Platforms:  service.NewPlatformService(store),
		Accounts:   service.NewAccountService(store),
		Ledger:     service.NewLedgerService(store, publisher),
		Promotions: service.NewPromotionService(store, publisher),
		Statistics: service.NewStatisticsService(store),
		Currency:   service.NewCurrencyService(service.NewStaticExchangeRateService()),
	}
	router := api.NewRouter(cfg, zap.NewNop(), services, nil, nil, nil)
	return &testAPI{handler: router.Routes(), users: users}
}

// staffToken registers a user with the given role and logs in over HTTP.
func (a *testAPI) staffToken(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	_, err := a.users.Register(context.Background(), service.RegisterUserCommand{
		Username: username,
		Email:    username + "@betflow.test",
		Password: "correct-horse-battery",
		Role:     role,
	})
	require.NoError(t, err)

	w := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testAPI) do(t *testing.T, method, path, token string, payload any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decodeID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	require.NotEqual(t, uuid.Nil, out.ID)
	return out.ID.String()
}

func (a *testAPI) balance(t *testing.T, token, accountID string) string {
	t.Helper()
	w := a.do(t, http.MethodGet, "/v1/accounts/"+accountID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		CurrentBalance decimal.Decimal `json:"current_balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acc))
	return acc.CurrentBalance.StringFixed(2)
}

// seedAccount creates an identity, a platform and an account over HTTP.
func (a *testAPI) seedAccount(t *testing.T, token, balance string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/v1/identities", token, map[string]any{
		"first_name":           "Mario",
		"last_name":            "Rossi",
		"fiscal_code":          "rssmra80a01h501u",
		"document_expiry_date": "2027-01-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	identityID := decodeID(t, w)

	w = a.do(t, http.MethodPost, "/v1/platforms", token, map[string]any{
		"name": "Bet365",
		"type": "bookmaker",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	platformID := decodeID(t, w)

	w = a.do(t, http.MethodPost, "/v1/accounts", token, map[string]any{
		"identity_id":     identityID,
		"platform_id":     platformID,
		"username":        "mario.bet365",
		"initial_balance": balance,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeID(t, w)
}

func TestProblemDetailsOnMissingToken(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/identities", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/identities", body["instance"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, body["request_id"], w.Header().Get("X-Trace-ID"))
}

func TestLoginAndMe(t *testing.T) {
	a := setupAPI(t)
	token := a.staffToken(t, "giulia", domain.RoleManager)

	w := a.do(t, http.MethodGet, "/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "giulia", me["username"])
	assert.Equal(t, "MANAGER", me["role"])
	assert.NotContains(t, me, "password_hash")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := setupAPI(t)
	a.staffToken(t, "giulia", domain.RoleManager)

	w := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "giulia",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "giulia"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleGates(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	manager := a.staffToken(t, "manager", domain.RoleManager)

	platform := map[string]any{"name": "Sisal", "type": "BOOKMAKER"}
	w := a.do(t, http.MethodPost, "/v1/platforms", manager, platform)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodPost, "/v1/platforms", admin, platform)
	assert.Equal(t, http.StatusCreated, w.Code)

	newUser := map[string]any{"username": "luca", "email": "luca@betflow.test", "password": "long-enough-pass"}
	w = a.do(t, http.MethodPost, "/v1/users", manager, newUser)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, http.MethodPost, "/v1/users", admin, newUser)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/identities", manager, map[string]any{
		"first_name":  "Anna",
		"last_name":   "Bianchi",
		"fiscal_code": "BNCNNA90B41F205X",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestLedgerFlow(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	accountID := a.seedAccount(t, admin, "0")

	w := a.do(t, http.MethodPost, "/v1/operations/deposits", admin, map[string]any{
		"account_id":     accountID,
		"amount":         "50.00",
		"payment_method": "card",
		"operation_date": "2026-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "50.00", a.balance(t, admin, accountID))

	w = a.do(t, http.MethodPost, "/v1/operations/bets", admin, map[string]any{
		"account_id": accountID,
		"amount":     20,
		"event_name": "Inter - Milan",
		"odds":       "2.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	betID := decodeID(t, w)
	assert.Equal(t, "30.00", a.balance(t, admin, accountID))

	w = a.do(t, http.MethodGet, "/v1/operations?pending=true&account_id="+accountID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, betID, pending[0]["id"])

	w = a.do(t, http.MethodPost, "/v1/operations/bets/"+betID+"/settle", admin, map[string]any{"outcome": "win"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "80.00", a.balance(t, admin, accountID))

	w = a.do(t, http.MethodPost, "/v1/operations/withdrawals", admin, map[string]any{
		"account_id": accountID,
		"amount":     "30",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	withdrawalID := decodeID(t, w)
	assert.Equal(t, "50.00", a.balance(t, admin, accountID))

	w = a.do(t, http.MethodPatch, "/v1/operations/withdrawals/"+withdrawalID+"/status", admin, map[string]any{
		"status":       "COMPLETED",
		"arrival_date": "2026-03-05",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var withdrawal struct {
		Withdrawal struct {
			Status      string    `json:"status"`
			ArrivalDate time.Time `json:"arrival_date"`
		} `json:"withdrawal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &withdrawal))
	assert.Equal(t, "COMPLETED", withdrawal.Withdrawal.Status)
	assert.Equal(t, "2026-03-05", withdrawal.Withdrawal.ArrivalDate.Format(time.DateOnly))

	w = a.do(t, http.MethodGet, "/v1/statistics/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		TotalAccounts    int64           `json:"total_accounts"`
		OverallNetProfit decimal.Decimal `json:"overall_net_profit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, int64(1), dash.TotalAccounts)
	// balance 50 + withdrawals 30 - deposits 50
	assert.Equal(t, "30.00", dash.OverallNetProfit.StringFixed(2))
}

func TestOperationDeleteRequiresAdmin(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	manager := a.staffToken(t, "manager", domain.RoleManager)
	accountID := a.seedAccount(t, admin, "10")

	w := a.do(t, http.MethodPost, "/v1/operations/deposits", manager, map[string]any{
		"account_id": accountID,
		"amount":     "5",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opID := decodeID(t, w)

	w = a.do(t, http.MethodDelete, "/v1/operations/"+opID, manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodDelete, "/v1/operations/"+opID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "15.00", a.balance(t, admin, accountID))

	w = a.do(t, http.MethodGet, "/v1/operations/"+opID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	accountID := a.seedAccount(t, admin, "10")

	t.Run("unknown account is 404", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/v1/accounts/"+uuid.NewString(), admin, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/v1/accounts/not-a-uuid", admin, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate fiscal code is 409", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/v1/identities", admin, map[string]any{
			"first_name":  "Mario",
			"last_name":   "Rossi",
			"fiscal_code": "RSSMRA80A01H501U",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bet with odds below minimum is 400", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/v1/operations/bets", admin, map[string]any{
			"account_id": accountID,
			"amount":     "5",
			"event_name": "Roma - Lazio",
			"odds":       "1.00",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			InvalidParams []struct {
				Name string `json:"name"`
			} `json:"invalid_params"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.InvalidParams, 1)
		assert.Equal(t, "odds", body.InvalidParams[0].Name)
	})

	t.Run("unknown body field is 400", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/v1/operations/deposits", admin, map[string]any{
			"account_id": accountID,
			"amount":     "5",
			"currency":   "EUR",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown outcome is 400", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/v1/operations/bets/"+uuid.NewString()+"/settle", admin, map[string]any{"outcome": "DRAW"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad date filter is 400", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/v1/operations?from=yesterday", admin, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPromotionRolloverOverHTTP(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	accountID := a.seedAccount(t, admin, "0")

	w := a.do(t, http.MethodPost, "/v1/promotions", admin, map[string]any{
		"account_id":      accountID,
		"description":     "Welcome bonus 100%",
		"bonus_amount":    "50",
		"rollover_target": "100",
		"deadline_date":   "2099-12-31",
		"status":          "active",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	promoID := decodeID(t, w)

	type promotion struct {
		Status             string          `json:"status"`
		RolloverDone       decimal.Decimal `json:"rollover_done"`
		RolloverPercentage decimal.Decimal `json:"rollover_percentage"`
	}

	w = a.do(t, http.MethodPost, "/v1/promotions/"+promoID+"/rollover", admin, map[string]any{"amount": "60"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p promotion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "ACTIVE", p.Status)
	assert.Equal(t, "60.00", p.RolloverPercentage.StringFixed(2))

	w = a.do(t, http.MethodPost, "/v1/promotions/"+promoID+"/rollover", admin, map[string]any{"amount": "50"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "COMPLETED", p.Status)
	assert.Equal(t, "110.00", p.RolloverDone.StringFixed(2))

	w = a.do(t, http.MethodGet, "/v1/promotions?status=completed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []promotion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = a.do(t, http.MethodPost, "/v1/promotions/"+promoID+"/rollover", admin, map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotencyKeyWithoutStorePassesThrough(t *testing.T) {
	a := setupAPI(t)
	admin := a.staffToken(t, "admin", domain.RoleAdmin)
	accountID := a.seedAccount(t, admin, "0")

	deposit := map[string]any{"account_id": accountID, "amount": "10"}
	for i := 0; i < 2; i++ {
		w := a.do(t, http.MethodPost, "/v1/operations/deposits", admin, deposit, "Idempotency-Key", "dep-1")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Empty(t, w.Header().Get("X-Idempotent-Replay"))
	}
	assert.Equal(t, "20.00", a.balance(t, admin, accountID))
}

func TestCurrencyConvert(t *testing.T) {
	a := setupAPI(t)
	token := a.staffToken(t, "manager", domain.RoleManager)

	w := a.do(t, http.MethodGet, "/v1/currency/convert?amount=100&from=eur&to=usd", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		From            string          `json:"from"`
		To              string          `json:"to"`
		ConvertedAmount decimal.Decimal `json:"converted_amount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "EUR", out.From)
	assert.Equal(t, "USD", out.To)
	assert.Equal(t, "108.70", out.ConvertedAmount.StringFixed(2))

	w = a.do(t, http.MethodGet, "/v1/currency/convert?amount=abc&from=EUR&to=USD", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi:")
}
