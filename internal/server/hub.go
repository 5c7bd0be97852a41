package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fraudscore/internal/domain"
	"fraudscore/internal/service"
)

// writeTimeout bounds one websocket write; a stalled subscriber is dropped
// rather than backing up the broadcaster.
const writeTimeout = 10 * time.Second

// subscriberBuffer is the per-client send queue depth.
const subscriberBuffer = 64

// ScoreUpdate is the JSON document pushed to websocket subscribers for every
// freshly scored transaction.
type ScoreUpdate struct {
	TransNum  string    `json:"trans_num"`
	Amount    float64   `json:"amt"`
	Time      time.Time `json:"trans_time"`
	FraudProb float64   `json:"fraud_prob"`
}

// Hub fans scored transactions out to websocket subscribers. Slow clients
// are disconnected when their send queue fills.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[chan ScoreUpdate]struct{}
}

// Compile-time interface check.
var _ service.Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stdout, "[ws-hub] ", log.LstdFlags)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[chan ScoreUpdate]struct{}),
	}
}

// NotifyScore implements service.Notifier. Never blocks the caller.
func (h *Hub) NotifyScore(tx *domain.Transaction) {
	if tx.FraudProb == nil {
		return
	}
	update := ScoreUpdate{
		TransNum:  tx.TransNum,
		Amount:    tx.Amount,
		Time:      tx.Time,
		FraudProb: *tx.FraudProb,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- update:
		default:
			// Queue full; the writer goroutine will notice the close.
			close(ch)
			delete(h.clients, ch)
		}
	}
}

// ServeHTTP upgrades the connection and streams score updates until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	ch := make(chan ScoreUpdate, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	// Reader goroutine: we never expect client messages, but reading is
	// required to observe close frames.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(ch)
				return
			}
		}
	}()

	defer conn.Close()
	for update := range ch {
		payload, err := json.Marshal(update)
		if err != nil {
			h.logger.Printf("encode score update: %v", err)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(ch)
			return
		}
	}
}

// remove unregisters a client channel exactly once.
func (h *Hub) remove(ch chan ScoreUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		close(ch)
		delete(h.clients, ch)
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
