package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"podoMarketAPI/services"
)

type TrackingHandler struct {
	trackingService *services.TrackingService
}

func NewTrackingHandler(trackingService *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

// POST /webhooks/delivery - carrier status ping. Acknowledged
// immediately so the upstream does not retry; the provider lookup and
// order updates run detached from the request.
func (h *TrackingHandler) HandleDeliveryWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CarrierID      string `json:"carrierId"`
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CarrierID == "" || req.TrackingNumber == "" {
		respondWithError(w, http.StatusBadRequest, "carrierId and trackingNumber are required")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h.trackingService.UpdateFromWebhook(ctx, req.CarrierID, req.TrackingNumber)
	}()
}
