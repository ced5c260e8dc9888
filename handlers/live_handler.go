package handlers

import (
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gorilla/websocket"

	"timeWalletAPI/services"
	"timeWalletAPI/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The mobile client connects from its own origin; CORS is handled at
	// the router level for plain HTTP, and the token check below gates ws.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LiveHandler struct {
	liveFeed    *services.LiveFeedManager
	userService *services.UserService
}

func NewLiveHandler(liveFeed *services.LiveFeedManager, userService *services.UserService) *LiveHandler {
	return &LiveHandler{
		liveFeed:    liveFeed,
		userService: userService,
	}
}

// GET /api/v1/live?token=<clerk jwt> - Upgrade to the live event feed.
// Browsers cannot set an Authorization header on a websocket handshake, so
// the session token rides in the query string instead.
func (h *LiveHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Token required")
		return
	}

	claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{Token: token})
	if err != nil {
		utils.Sugar.Warnf("Live feed token verification failed: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	userID, err := h.userService.GetUserIDFromClerkID(r.Context(), claims.Subject)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Sugar.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	client := h.liveFeed.Register(userID, conn)
	utils.Sugar.Infof("Live feed connected for user %s at %s", userID, time.Now().Format(time.RFC3339))

	go client.WritePump()
	go client.ReadPump()
}
