package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"timeWalletAPI/internal/types/focus"
	"timeWalletAPI/middleware"
	"timeWalletAPI/services"
)

type FocusHandler struct {
	focusService *services.FocusService
}

func NewFocusHandler(focusService *services.FocusService) *FocusHandler {
	return &FocusHandler{
		focusService: focusService,
	}
}

// POST /api/v1/focus/sessions - Record a finished focus session
func (h *FocusHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req focus.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.focusService.RecordSession(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/focus/sessions?limit=50 - Recent sessions
func (h *FocusHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := h.focusService.GetSessions(ctx, clerkID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// GET /api/v1/focus/stats?days=30 - Work minutes per day for the chart
func (h *FocusHandler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	stats, err := h.focusService.DailyStats(ctx, clerkID, days)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
