package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podoMarketAPI/internal/config"
)

func TestSplitVAT(t *testing.T) {
	supply, tax := SplitVAT(11000)
	assert.Equal(t, 10000, supply)
	assert.Equal(t, 1000, tax)

	supply, tax = SplitVAT(9900)
	assert.Equal(t, supply+tax, 9900, "split must always sum back to the total")
	assert.Equal(t, 900, tax)

	supply, tax = SplitVAT(0)
	assert.Equal(t, 0, supply)
	assert.Equal(t, 0, tax)
}

func TestSanitizeReceiptKey(t *testing.T) {
	assert.Equal(t, "sub_u1_20240131", SanitizeReceiptKey("sub_u1_20240131"))
	assert.Equal(t, "order42", SanitizeReceiptKey("order#42!"))

	long := SanitizeReceiptKey("abcdefghijklmnopqrstuvwxyz0123456789")
	assert.Len(t, long, 24)
}

func TestIdentityFragment(t *testing.T) {
	assert.Equal(t, "5678", IdentityFragment("010-1234-5678"))
	assert.Equal(t, "123", IdentityFragment("123"))
	assert.Equal(t, "", IdentityFragment(""))
}

func TestIssueSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cashbill", r.URL.Path)
		assert.Equal(t, "key123", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"code": 1, "message": "issued"})
	}))
	defer server.Close()

	svc := NewReceiptService(config.Receipt{BaseURL: server.URL, APIKey: "key123"})
	err := svc.Issue(context.Background(), ReceiptParams{
		PaymentID:  "order#42",
		Amount:     11000,
		BuyerName:  "Kim",
		BuyerPhone: "010-1234-5678",
		TradeDate:  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "order42", gotBody["mgtKey"])
	assert.Equal(t, "20240615", gotBody["tradeDate"])
	assert.Equal(t, float64(10000), gotBody["supplyCost"])
	assert.Equal(t, float64(1000), gotBody["tax"])
	assert.Equal(t, "5678", gotBody["identityNum"])
}

func TestIssueRejectedCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": -11000, "message": "bad identity"})
	}))
	defer server.Close()

	svc := NewReceiptService(config.Receipt{BaseURL: server.URL})
	err := svc.Issue(context.Background(), ReceiptParams{PaymentID: "p", Amount: 1000, TradeDate: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad identity")
}

func TestIssueNotConfigured(t *testing.T) {
	svc := NewReceiptService(config.Receipt{})
	err := svc.Issue(context.Background(), ReceiptParams{PaymentID: "p", Amount: 1000, TradeDate: time.Now()})
	assert.Error(t, err)
}
