package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podoMarketAPI/middleware"
	"podoMarketAPI/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	billingService *services.BillingService
	clientURI      string
}

func NewPaymentHandler(paymentService *services.PaymentService, billingService *services.BillingService, clientURI string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		billingService: billingService,
		clientURI:      clientURI,
	}
}

// POST /api/v1/payments/stage - register a pending order before the
// client opens the gateway's payment window
func (h *PaymentHandler) StagePendingOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		PaymentID string `json:"paymentId"`
		Goods     string `json:"goods"`
		Amount    int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentID == "" || req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "paymentId and a positive amount are required")
		return
	}

	pending, err := h.paymentService.StagePendingOrder(ctx, userID, req.PaymentID, req.Goods, req.Amount)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, pending)
}

// POST /callbacks/payple/pass - inbound payment result for a staged
// order. Always answers 200 with the redirect HTML so the payment
// window can hand control back to the app.
func (h *PaymentHandler) HandlePassCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	fields, err := parseCallbackFields(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields["PCD_PAYER_NO"] == "" || fields["PCD_PAY_OID"] == "" {
		respondWithError(w, http.StatusBadRequest, "PCD_PAYER_NO and PCD_PAY_OID are required")
		return
	}

	amount, err := parseCallbackAmount(fields)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	cb := services.PassCallback{
		UserID:     fields["PCD_PAYER_NO"],
		PaymentID:  fields["PCD_PAY_OID"],
		Result:     fields["PCD_PAY_RST"],
		Message:    fields["PCD_PAY_MSG"],
		AuthKey:    fields["PCD_AUTH_KEY"],
		ReqKey:     fields["PCD_PAY_REQKEY"],
		ConfirmURL: fields["PCD_PAY_COFURL"],
		BillingKey: fields["PCD_PAYER_ID"],
		Amount:     amount,
		CardName:   fields["PCD_PAY_CARDNAME"],
		CardNumber: fields["PCD_PAY_CARDNUM"],
		PayerName:  fields["PCD_PAYER_NAME"],
		PayerPhone: fields["PCD_PAYER_HP"],
	}

	status, err := h.paymentService.ConfirmPass(ctx, cb)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "No pending order for this payment")
		return
	}
	if err != nil {
		log.Printf("Pass callback for %s/%s failed: %v", cb.UserID, cb.PaymentID, err)
		respondWithError(w, http.StatusInternalServerError, "internal")
		return
	}

	fields["status"] = string(status)
	respondWithRedirect(w, h.clientURI, fields)
}

// parseCallbackAmount reads PCD_PAY_TOTAL as an integer amount. A
// missing total is zero; a non-numeric one is a client error.
func parseCallbackAmount(fields map[string]string) (int, error) {
	total := fields["PCD_PAY_TOTAL"]
	if total == "" {
		return 0, nil
	}
	amount, err := strconv.Atoi(total)
	if err != nil {
		return 0, errors.New("PCD_PAY_TOTAL must be an integer")
	}
	return amount, nil
}

// POST /callbacks/payple/billing-key - result of a billing key
// registration. A successful one creates the subscription.
func (h *PaymentHandler) HandleBillingKeyCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	fields, err := parseCallbackFields(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := fields["PCD_PAYER_NO"]
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "PCD_PAYER_NO is required")
		return
	}

	if strings.EqualFold(fields["PCD_PAY_RST"], "success") {
		billingKey := fields["PCD_PAYER_ID"]
		if billingKey == "" {
			respondWithError(w, http.StatusBadRequest, "PCD_PAYER_ID is required on success")
			return
		}
		amount, err := parseCallbackAmount(fields)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		err = h.billingService.EnrollFromCallback(ctx, userID, billingKey, amount, fields["PCD_PAY_CODE"], fields["PCD_PAY_MSG"])
		if err != nil {
			log.Printf("Billing key enrollment for %s failed: %v", userID, err)
			respondWithError(w, http.StatusInternalServerError, "internal")
			return
		}
	} else {
		log.Printf("Billing key registration declined for %s: %s", userID, fields["PCD_PAY_MSG"])
	}

	respondWithRedirect(w, h.clientURI, fields)
}
