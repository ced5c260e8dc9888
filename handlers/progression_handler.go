package handlers

import (
	"context"
	"net/http"
	"time"

	"timeWalletAPI/middleware"
	"timeWalletAPI/services"
)

type ProgressionHandler struct {
	progressionService *services.ProgressionService
}

func NewProgressionHandler(progressionService *services.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{
		progressionService: progressionService,
	}
}

// GET /api/v1/streak - Current and longest streak
func (h *ProgressionHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	st, err := h.progressionService.GetStreak(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}

// GET /api/v1/badges - Badges earned so far
func (h *ProgressionHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	badges, err := h.progressionService.GetBadges(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}
