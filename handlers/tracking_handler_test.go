package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleDeliveryWebhookValidation(t *testing.T) {
	h := NewTrackingHandler(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `not json`},
		{"missing carrier", `{"trackingNumber": "1234567890"}`},
		{"missing tracking number", `{"carrierId": "kr.cjlogistics"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.HandleDeliveryWebhook(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}
