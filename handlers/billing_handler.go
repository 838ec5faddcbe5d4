package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"podoMarketAPI/middleware"
	"podoMarketAPI/services"
)

type BillingHandler struct {
	billingService *services.BillingService
}

func NewBillingHandler(billingService *services.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// POST /internal/renewal-pass - charge all due subscriptions once.
// Invoked by the scheduler; guarded by the cron secret.
func (h *BillingHandler) RunRenewalPass(w http.ResponseWriter, r *http.Request) {
	// A pass walks every due record and each one hits the gateway
	// twice, so it gets a generous deadline.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	summary, err := h.billingService.RunRenewalPass(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GET /api/v1/subscription - current subscription for the caller
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sub, err := h.billingService.GetSubscription(ctx, userID)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "No subscription")
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

// POST /api/v1/subscription/cancel - revoke the billing key and stop
// renewals at period end
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	err := h.billingService.Cancel(ctx, userID)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Subscription canceled"})
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "No subscription")
	case errors.Is(err, services.ErrNotActive):
		respondWithError(w, http.StatusConflict, "Subscription is not active")
	default:
		respondWithProviderError(w, err)
	}
}
