package payple

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podoMarketAPI/internal/config"
)

func testConfig(baseURL string) config.Payple {
	return config.Payple{
		BaseURL:     baseURL,
		CstID:       "test_cst",
		CustKey:     "test_key",
		RefundKey:   "test_refund",
		Referer:     "https://podomarket.example",
		ServiceID:   "demo",
		ServiceKey:  "abcd1234567890",
		ServiceCode: "as12345678",
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/php/auth.php", r.URL.Path)
		assert.Equal(t, "https://podomarket.example", r.Header.Get("Referer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"result":       "success",
			"result_msg":   "ok",
			"cst_id":       "hashed_cst",
			"custKey":      "hashed_key",
			"AuthKey":      "auth123",
			"PCD_PAY_HOST": "https://pay.example",
			"PCD_PAY_URL":  "/charge",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	cred, err := client.Authenticate(context.Background(), WorkAuth)
	require.NoError(t, err)

	assert.Equal(t, "AUTH", gotBody["PCD_PAY_WORK"])
	assert.Equal(t, "test_cst", gotBody["cst_id"])
	assert.Equal(t, "hashed_cst", cred.CstID)
	assert.Equal(t, "auth123", cred.AuthKey)
	assert.Equal(t, "https://pay.example/charge", cred.PayReqURL)
}

func TestAuthenticateCancelFlag(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"result": "success", "AuthKey": "a"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.Authenticate(context.Background(), WorkCancel)
	require.NoError(t, err)
	assert.Equal(t, "PAYCANCEL", gotBody["PCD_PAY_WORK"])
	assert.Equal(t, "Y", gotBody["PCD_PAYCANCEL_FLAG"])
}

func TestAuthenticateRejectedSurfacesRawPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result":     "error",
			"result_msg": "unknown partner",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.Authenticate(context.Background(), WorkAuth)
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "unknown partner", authErr.Result.Message)
	assert.Equal(t, "error", authErr.Result.Raw["result"])
}

func TestChargeBillingKeySentinelIsCaseInsensitive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"PCD_PAY_RST":  "SUCCESS",
			"PCD_PAY_CODE": "0000",
			"PCD_PAY_MSG":  "approved",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	cred := &Credential{CstID: "c", CustKey: "k", AuthKey: "a", PayReqURL: server.URL + "/charge"}
	res, err := client.ChargeBillingKey(context.Background(), cred, ChargeParams{
		BillingKey: "bk1",
		OrderID:    "sub_u1_20240131",
		Goods:      "premium",
		Amount:     9900,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "0000", res.Code)
}

func TestChargeBillingKeyDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"PCD_PAY_RST":  "error",
			"PCD_PAY_CODE": "P1001",
			"PCD_PAY_MSG":  "card declined",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	cred := &Credential{PayReqURL: server.URL + "/charge"}
	res, err := client.ChargeBillingKey(context.Background(), cred, ChargeParams{BillingKey: "bk1", Amount: 9900})
	require.NoError(t, err, "a decline is a result, not a transport error")
	assert.False(t, res.OK)
	assert.Equal(t, "P1001", res.Code)
	assert.Equal(t, "card declined", res.Message)
}

func TestRefundFormatsPaymentDate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"PCD_PAY_RST": "success"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	cred := &Credential{PayReqURL: server.URL + "/refund"}
	res, err := client.Refund(context.Background(), cred, RefundParams{
		PaymentID:   "order_42",
		PaymentDate: time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC),
		Amount:      12000,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "20240615", gotBody["PCD_PAY_DATE"])
	assert.Equal(t, "test_refund", gotBody["PCD_REFUND_KEY"])
}

func TestConfirmPaymentUsesOAuthToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gpay/oauth/1.0/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result":       "T0000",
			"access_token": "tok_abc",
		})
	})
	var gotAuth string
	mux.HandleFunc("/confirm", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"PCD_PAY_RST": "success", "PCD_PAY_CODE": "0000"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	res, err := client.ConfirmPayment(context.Background(), ConfirmParams{
		ConfirmURL: server.URL + "/confirm",
		AuthKey:    "cbAuth",
		ReqKey:     "req123",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Bearer tok_abc", gotAuth)
}

func TestConfirmPaymentOAuthSentinelIsExact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The legacy token endpoint does not use the word success.
		json.NewEncoder(w).Encode(map[string]any{
			"result":     "success",
			"result_msg": "wrong sentinel for this sub-API",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.ConfirmPayment(context.Background(), ConfirmParams{ReqKey: "req123"})
	require.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	for i := 0; i < 5; i++ {
		_, err := client.Authenticate(context.Background(), WorkAuth)
		require.Error(t, err)
	}
	require.Equal(t, 5, hits)

	_, err := client.Authenticate(context.Background(), WorkAuth)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, hits, "open breaker must not reach the gateway")
}

func TestObserveHookReportsCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": "success", "AuthKey": "a"})
	}))
	defer server.Close()

	type observed struct {
		endpoint string
		ok       bool
	}
	var calls []observed
	client := NewClient(testConfig(server.URL), func(endpoint string, ok bool, _ time.Duration) {
		calls = append(calls, observed{endpoint, ok})
	})

	_, err := client.Authenticate(context.Background(), WorkAuth)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, observed{"auth", true}, calls[0])
}
