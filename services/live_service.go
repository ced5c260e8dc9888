package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"timeWalletAPI/internal/types/live"
	"timeWalletAPI/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// LiveFeedManager fans row-change events out to every websocket a user has
// open. Services publish after their write commits, so a delivered event
// always reflects persisted state; local client caches treat these events as
// invalidations.
type LiveFeedManager struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*LiveClient]bool
}

func NewLiveFeedManager() *LiveFeedManager {
	return &LiveFeedManager{
		clients: make(map[uuid.UUID]map[*LiveClient]bool),
	}
}

type LiveClient struct {
	manager *LiveFeedManager
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
}

func (m *LiveFeedManager) Register(userID uuid.UUID, conn *websocket.Conn) *LiveClient {
	client := &LiveClient{
		manager: m,
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, 32),
	}

	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[*LiveClient]bool)
	}
	m.clients[userID][client] = true
	m.mu.Unlock()

	return client
}

func (m *LiveFeedManager) unregister(c *LiveClient) {
	m.mu.Lock()
	if set, ok := m.clients[c.UserID]; ok {
		if set[c] {
			delete(set, c)
			close(c.Send)
		}
		if len(set) == 0 {
			delete(m.clients, c.UserID)
		}
	}
	m.mu.Unlock()
}

// Publish sends one event to every connection the user has open. Slow
// consumers get dropped rather than blocking the publisher.
func (m *LiveFeedManager) Publish(userID uuid.UUID, kind live.EventKind, action string, payload interface{}) {
	event := live.Event{
		Kind:      kind,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		utils.Sugar.Errorf("Failed to marshal live event: %v", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for client := range m.clients[userID] {
		select {
		case client.Send <- data:
		default:
			utils.Sugar.Warnf("Live feed client for user %s is lagging, dropping event", userID)
		}
	}
}

// ReadPump drains the connection. Clients never send application messages on
// the feed; this loop only services pings and detects disconnects.
func (c *LiveClient) ReadPump() {
	defer func() {
		c.manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump pushes queued events to the client and keeps the connection
// alive with pings.
func (c *LiveClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
