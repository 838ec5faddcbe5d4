package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlePassCallbackRejectsMissingFields(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	tests := []struct {
		name string
		body string
	}{
		{"no payer", `{"PCD_PAY_OID": "order1"}`},
		{"no order id", `{"PCD_PAYER_NO": "user1"}`},
		{"empty body", `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/pass", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			h.HandlePassCallback(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandlePassCallbackRejectsMalformedBody(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/pass", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandlePassCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlePassCallbackRejectsNonNumericTotal(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/pass",
		strings.NewReader(`{"PCD_PAYER_NO": "user1", "PCD_PAY_OID": "order1", "PCD_PAY_TOTAL": "1e+07"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandlePassCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleBillingKeyCallbackRejectsNonNumericTotal(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/billing-key",
		strings.NewReader(`{"PCD_PAY_RST": "success", "PCD_PAYER_NO": "user1", "PCD_PAYER_ID": "bk1", "PCD_PAY_TOTAL": "abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandleBillingKeyCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleBillingKeyCallbackRequiresPayer(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/billing-key",
		strings.NewReader(`{"PCD_PAY_RST": "success", "PCD_PAYER_ID": "billing-key"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandleBillingKeyCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleBillingKeyCallbackRequiresKeyOnSuccess(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/billing-key",
		strings.NewReader(`{"PCD_PAY_RST": "success", "PCD_PAYER_NO": "user1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandleBillingKeyCallback(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// A declined registration never reaches the billing service; the window
// still gets its redirect so the app can show the failure.
func TestHandleBillingKeyCallbackDeclineRedirects(t *testing.T) {
	h := NewPaymentHandler(nil, nil, "paymentresult://callback")

	req := httptest.NewRequest(http.MethodPost, "/callbacks/payple/billing-key",
		strings.NewReader(`{"PCD_PAY_RST": "error", "PCD_PAYER_NO": "user1", "PCD_PAY_MSG": "declined"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.HandleBillingKeyCallback(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "paymentresult://callback?")
	assert.Contains(t, rr.Body.String(), "PCD_PAY_RST=error")
}
