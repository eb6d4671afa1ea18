package notification

import (
	"sync"

	"go.uber.org/zap"
)

// Socket is the part of a websocket connection the hub writes to.
type Socket interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub fans in-app notifications out to the live sockets of each user.
type Hub struct {
	mu      sync.RWMutex
	sockets map[string]map[Socket]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sockets: map[string]map[Socket]struct{}{},
		logger:  logger,
	}
}

func (h *Hub) Register(userID string, s Socket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sockets[userID] == nil {
		h.sockets[userID] = map[Socket]struct{}{}
	}
	h.sockets[userID][s] = struct{}{}
}

func (h *Hub) Unregister(userID string, s Socket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sockets[userID], s)
	if len(h.sockets[userID]) == 0 {
		delete(h.sockets, userID)
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sockets[userID])
}

// Push writes n to every socket of its user and returns how many received it.
// Sockets that fail a write are dropped.
func (h *Hub) Push(n *Notification) int {
	h.mu.RLock()
	targets := make([]Socket, 0, len(h.sockets[n.UserID]))
	for s := range h.sockets[n.UserID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if err := s.WriteJSON(pushMessage{Event: "notification", Notification: n}); err != nil {
			h.logger.Debug("Dropping websocket after failed write",
				zap.String("user_id", n.UserID), zap.Error(err))
			h.Unregister(n.UserID, s)
			_ = s.Close()
			continue
		}
		sent++
	}
	return sent
}

type pushMessage struct {
	Event        string        `json:"event"`
	Notification *Notification `json:"notification"`
}
