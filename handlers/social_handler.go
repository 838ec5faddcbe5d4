package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"podoMarketAPI/internal/types/notification"
	"podoMarketAPI/services"
)

type SocialHandler struct {
	notificationService *services.NotificationService
}

func NewSocialHandler(notificationService *services.NotificationService) *SocialHandler {
	return &SocialHandler{
		notificationService: notificationService,
	}
}

// POST /internal/triggers/likes - forwarded like-counter change
func (h *SocialHandler) HandleLikeChange(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, notification.TypeLike)
}

// POST /internal/triggers/comments - forwarded comment change
func (h *SocialHandler) HandleCommentChange(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, notification.TypeComment)
}

func (h *SocialHandler) handleChange(w http.ResponseWriter, r *http.Request, kind notification.Type) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var ev notification.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if ev.PostID == "" || ev.OwnerID == "" {
		respondWithError(w, http.StatusBadRequest, "postId and ownerId are required")
		return
	}

	created, err := h.notificationService.HandleChange(ctx, kind, ev)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"created": created})
}
