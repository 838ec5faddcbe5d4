package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"podoMarketAPI/middleware"
	"podoMarketAPI/services"
)

type RefundHandler struct {
	refundService *services.RefundService
}

func NewRefundHandler(refundService *services.RefundService) *RefundHandler {
	return &RefundHandler{
		refundService: refundService,
	}
}

// POST /api/v1/orders/refund - cancel a settled order's payment,
// restore stock and drop the order
func (h *RefundHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		respondWithError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	audit, err := h.refundService.Refund(ctx, userID, req.OrderID)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, audit)
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "Order belongs to another user")
	default:
		respondWithProviderError(w, err)
	}
}
